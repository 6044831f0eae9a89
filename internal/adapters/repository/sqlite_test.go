package repository_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/demoreport/internal/adapters/repository"
	"github.com/okian/demoreport/internal/domain/model"
)

func TestSQLiteStore(t *testing.T) {
	Convey("Given a SQLite store in a temp dir", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "crossling.2020-06-15.db")
		fixed := time.Date(2020, 6, 15, 12, 0, 0, 0, time.UTC)
		store, err := repository.Open(ctx, path, repository.WithClock(func() time.Time { return fixed }))
		So(err, ShouldBeNil)
		defer store.Close()

		var _ repository.Store = store
		So(store.Path(), ShouldEqual, path)

		recs := []model.NormalizedRecord{
			{
				CanonicalRecord: model.CanonicalRecord{WorkerID: "W1", HitID: "H1", Seq: 0, Source: "a.results"},
				Sex:             "Male", Race: "White", Ethnicity: "NonHisp", Year: "2020",
				Age: model.Age{Years: 34, Numeric: true}, Browser: "firefox",
			},
			{
				CanonicalRecord: model.CanonicalRecord{WorkerID: "W2", Seq: 1},
				Year:            "Date out of range",
			},
		}

		Convey("When assignments are saved", func() {
			err := store.SaveAssignments(ctx, "run-1", recs)

			Convey("Then every assignment is stored", func() {
				So(err, ShouldBeNil)
				n, err := store.Count(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)
			})

			Convey("Then columns hold the record values", func() {
				db, err := sql.Open("sqlite", path)
				So(err, ShouldBeNil)
				defer db.Close()

				var (
					runID, savedAt string
					hit, age       sql.NullString
				)
				err = db.QueryRowContext(ctx,
					`SELECT run_id, age, saved_at, hitid FROM assignments WHERE workerid = 'W2'`,
				).Scan(&runID, &age, &savedAt, &hit)
				So(err, ShouldBeNil)
				So(age.Valid, ShouldBeFalse)
				So(runID, ShouldEqual, "run-1")
				So(hit.Valid, ShouldBeFalse)
				So(savedAt, ShouldEqual, "2020-06-15T12:00:00Z")
			})

			Convey("And saved again", func() {
				So(store.SaveAssignments(ctx, "run-2", recs[:1]), ShouldBeNil)

				Convey("Then the previous contents are replaced", func() {
					n, _ := store.Count(ctx)
					So(n, ShouldEqual, 1)
				})
			})
		})

		Convey("When the database is reopened", func() {
			So(store.SaveAssignments(ctx, "run-1", recs), ShouldBeNil)
			So(store.Close(), ShouldBeNil)

			again, err := repository.Open(ctx, path)

			Convey("Then migrations are skipped and data is kept", func() {
				So(err, ShouldBeNil)
				defer again.Close()
				n, err := again.Count(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)
			})
		})
	})

	Convey("Given a path in a missing directory", t, func() {
		_, err := repository.Open(context.Background(), filepath.Join(t.TempDir(), "nope", "x.db"))

		Convey("Then opening fails", func() {
			So(err, ShouldNotBeNil)
		})
	})
}
