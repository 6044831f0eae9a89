package loader_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/demoreport/internal/adapters/loader"
	"github.com/okian/demoreport/internal/adapters/tabular"
)

// mockReader returns a one-row table naming the file, or a configured error.
type mockReader struct {
	delay  time.Duration
	errors map[string]error

	mu      sync.Mutex
	active  int32
	maxSeen int32
	calls   []string
}

func (m *mockReader) ReadFile(path string, _ rune) (*tabular.Table, error) {
	n := atomic.AddInt32(&m.active, 1)
	defer atomic.AddInt32(&m.active, -1)

	m.mu.Lock()
	if n > m.maxSeen {
		m.maxSeen = n
	}
	m.calls = append(m.calls, path)
	m.mu.Unlock()

	time.Sleep(m.delay)
	if err, ok := m.errors[path]; ok {
		return nil, err
	}
	return &tabular.Table{Header: []string{"file"}, Rows: [][]string{{path}}}, nil
}

func files(paths ...string) []loader.File {
	out := make([]loader.File, len(paths))
	for i, p := range paths {
		out[i] = loader.File{Path: p, Comma: '\t'}
	}
	return out
}

func TestPoolReadAll(t *testing.T) {
	convey.Convey("Given a pool of two workers", t, func() {
		ctx := context.Background()
		reader := &mockReader{delay: 10 * time.Millisecond}
		pool := loader.NewPool(loader.WithWorkers(2), loader.WithReader(reader))
		convey.So(pool.Workers(), convey.ShouldEqual, 2)

		convey.Convey("When five files are read", func() {
			tables, err := pool.ReadAll(ctx, files("a", "b", "c", "d", "e"))

			convey.Convey("Then tables come back in file order", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(tables, convey.ShouldHaveLength, 5)
				for i, want := range []string{"a", "b", "c", "d", "e"} {
					convey.So(tables[i].Rows[0][0], convey.ShouldEqual, want)
				}
			})

			convey.Convey("Then no more than two reads overlap", func() {
				convey.So(reader.maxSeen, convey.ShouldBeLessThanOrEqualTo, 2)
				convey.So(reader.calls, convey.ShouldHaveLength, 5)
			})
		})

		convey.Convey("When two files fail", func() {
			errB := errors.New("b is unreadable")
			errD := errors.New("d is unreadable")
			reader.errors = map[string]error{"b": errB, "d": errD}
			_, err := pool.ReadAll(ctx, files("a", "b", "c", "d"))

			convey.Convey("Then the earliest failure is returned", func() {
				convey.So(errors.Is(err, errB), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When there are no files", func() {
			tables, err := pool.ReadAll(ctx, nil)

			convey.So(err, convey.ShouldBeNil)
			convey.So(tables, convey.ShouldBeEmpty)
		})

		convey.Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := pool.ReadAll(cctx, files("a", "b"))

			convey.Convey("Then the pool reports that it stopped", func() {
				convey.So(errors.Is(err, loader.ErrStopped), convey.ShouldBeTrue)
				convey.So(errors.Is(err, context.Canceled), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given a pool with default options", t, func() {
		pool := loader.NewPool(loader.WithWorkers(0), loader.WithReader(nil), loader.WithLogger(nil))

		convey.Convey("Then invalid options are ignored", func() {
			convey.So(pool.Workers(), convey.ShouldBeGreaterThan, 0)
		})
	})
}
