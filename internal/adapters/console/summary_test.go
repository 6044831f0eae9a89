package console_test

import (
	"bytes"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/demoreport/internal/adapters/console"
	"github.com/okian/demoreport/internal/domain/model"
	"github.com/okian/demoreport/internal/domain/report"
	"github.com/okian/demoreport/internal/domain/types"
)

func TestRenderSummary(t *testing.T) {
	Convey("Given a summary of two periods", t, func() {
		s := report.Summarize([]model.ReportRow{
			{Race: types.RaceWhite, Year: "2020"},
			{Race: types.RaceWhite, Year: "2021"},
			{Race: types.RaceMultiple, Year: "2021"},
		}, []string{"2020", "2021"})

		Convey("When rendered", func() {
			out := console.RenderSummary(s)

			Convey("Then every race row is drawn with a rounded border", func() {
				So(out, ShouldContainSubstring, types.RaceWhite)
				So(out, ShouldContainSubstring, types.RaceMultiple)
				So(out, ShouldStartWith, "╭")
				So(strings.Count(out, "\n"), ShouldBeGreaterThan, 4)
			})
		})

		Convey("When written", func() {
			var buf bytes.Buffer
			So(console.WriteSummary(&buf, s), ShouldBeNil)
			So(buf.String(), ShouldEndWith, "\n")
		})
	})
}
