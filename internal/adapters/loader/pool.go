// Package loader reads results files with a bounded pool of workers.
package loader

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/demoreport/internal/adapters/tabular"
	"github.com/okian/demoreport/pkg/logger"
)

// Reader reads one delimited file.
type Reader interface {
	ReadFile(path string, comma rune) (*tabular.Table, error)
}

type tabularReader struct{}

func (tabularReader) ReadFile(path string, comma rune) (*tabular.Table, error) {
	return tabular.ReadFile(path, comma)
}

// File is one file to read and its field separator.
type File struct {
	Path  string
	Comma rune
}

// Pool reads files concurrently. A Pool holds no state between calls and
// may be reused.
type Pool struct {
	workers int
	reader  Reader
	logger  logger.Logger
}

// NewPool creates a pool with one worker per CPU unless WithWorkers says
// otherwise.
func NewPool(opts ...Option) *Pool {
	p := &Pool{
		workers: runtime.NumCPU(),
		reader:  tabularReader{},
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Workers returns the maximum number of concurrent reads.
func (p *Pool) Workers() int {
	return p.workers
}

type result struct {
	table *tabular.Table
	err   error
}

// ReadAll reads every file and returns the tables in the order of files.
// When several files fail, the error of the earliest one is returned.
// Cancelling ctx stops dispatching and returns ErrStopped.
func (p *Pool) ReadAll(ctx context.Context, files []File) ([]*tabular.Table, error) {
	results := make([]result, len(files))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < min(p.workers, len(files)); w++ {
		wg.Add(1)
		go func(log logger.Logger) {
			defer wg.Done()
			for i := range jobs {
				start := time.Now()
				t, err := p.reader.ReadFile(files[i].Path, files[i].Comma)
				results[i] = result{table: t, err: err}
				log.Debug(ctx, "read results file",
					logger.String("file", files[i].Path),
					logger.Bool("ok", err == nil),
					logger.Int("duration_ms", int(time.Since(start).Milliseconds())))
			}
		}(p.logger.Named("reader-" + strconv.Itoa(w)))
	}

dispatch:
	for i := range files {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStopped, err)
	}
	tables := make([]*tabular.Table, len(files))
	for i, r := range results {
		if r.err != nil {
			return nil, r.err
		}
		tables[i] = r.table
	}
	return tables, nil
}
