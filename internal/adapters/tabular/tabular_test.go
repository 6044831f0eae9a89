package tabular_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/demoreport/internal/adapters/tabular"
)

func TestRead(t *testing.T) {
	Convey("Given a tab separated results file", t, func() {
		in := "\ufeffhitid\tworkerid\tAnswer.comment\n" +
			"H1\tW1\tsaid \"hi\" twice\n" +
			"\n" +
			"H2\tW2\n"

		Convey("When read", func() {
			table, err := tabular.Read(strings.NewReader(in), '\t')

			Convey("Then the header and ragged rows are returned", func() {
				So(err, ShouldBeNil)
				So(table.Header, ShouldResemble, []string{"hitid", "workerid", "Answer.comment"})
				So(table.Rows, ShouldHaveLength, 2)
				So(table.Rows[0][2], ShouldEqual, `said "hi" twice`)
				So(table.Rows[1], ShouldResemble, []string{"H2", "W2"})
			})
		})
	})

	Convey("Given a comma separated file with quoted fields", t, func() {
		table, err := tabular.Read(strings.NewReader("a,b\n\"x, y\",2\n"), ',')

		So(err, ShouldBeNil)
		So(table.Rows[0], ShouldResemble, []string{"x, y", "2"})
	})

	Convey("Given an empty file", t, func() {
		_, err := tabular.Read(strings.NewReader(""), '\t')

		So(errors.Is(err, tabular.ErrEmptyFile), ShouldBeTrue)
	})

	Convey("Given a path that does not exist", t, func() {
		_, err := tabular.ReadFile(filepath.Join(t.TempDir(), "missing.results"), '\t')

		So(err, ShouldNotBeNil)
		So(errors.Is(err, os.ErrNotExist), ShouldBeTrue)
	})
}

func TestWrite(t *testing.T) {
	Convey("Given rows to write", t, func() {
		rows := [][]string{{"record_id", "mturk_workerid"}, {"mt0", "W, 1"}}

		Convey("When written to a buffer", func() {
			var buf bytes.Buffer
			So(tabular.Write(&buf, rows, ','), ShouldBeNil)

			Convey("Then fields are quoted where needed", func() {
				So(buf.String(), ShouldEqual, "record_id,mturk_workerid\nmt0,\"W, 1\"\n")
			})
		})

		Convey("When written to a file and read back", func() {
			path := filepath.Join(t.TempDir(), "out.csv")
			So(tabular.WriteFile(path, rows), ShouldBeNil)
			table, err := tabular.ReadFile(path, ',')

			Convey("Then the content survives", func() {
				So(err, ShouldBeNil)
				So(table.Header, ShouldResemble, rows[0])
				So(table.Rows[0], ShouldResemble, rows[1])
			})
		})
	})
}
