package testresults_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/demoreport/internal/adapters/tabular"
	"github.com/okian/demoreport/internal/config"
	"github.com/okian/demoreport/internal/domain/schema"
	"github.com/okian/demoreport/internal/testresults"
	"github.com/okian/demoreport/pkg/logger"
)

func init() {
	if err := logger.InitWithWriter(io.Discard, logger.FormatJSON); err != nil {
		panic(err)
	}
}

func TestGenerate(t *testing.T) {
	Convey("Given the default fixture configuration", t, func() {
		ctx := context.Background()
		cfg := testresults.DefaultConfig(t.TempDir())

		Convey("When a fixture is generated", func() {
			fx, err := testresults.Generate(ctx, cfg)
			So(err, ShouldBeNil)

			Convey("Then every listed file exists", func() {
				So(fx.Files, ShouldHaveLength, cfg.Files+1)
				for _, f := range fx.Files {
					_, err := os.Stat(f)
					So(err, ShouldBeNil)
				}
				So(fx.Workers, ShouldHaveLength, cfg.Workers)
				So(fx.Rows, ShouldBeGreaterThan, 0)
			})

			Convey("Then both export conventions are present", func() {
				legacy, err := tabular.ReadFile(fx.Files[0], '\t')
				So(err, ShouldBeNil)
				So(schema.Detect(legacy.Header), ShouldEqual, schema.ConventionLegacy)

				current, err := tabular.ReadFile(fx.Files[1], ',')
				So(err, ShouldBeNil)
				So(schema.Detect(current.Header), ShouldEqual, schema.ConventionCurrent)

				b, err := schema.Bind(current.Header)
				So(err, ShouldBeNil)
				So(b.HasDemographics, ShouldBeTrue)
			})

			Convey("Then the pre-questionnaire file has no demographics", func() {
				old, err := tabular.ReadFile(fx.Files[len(fx.Files)-1], '\t')
				So(err, ShouldBeNil)
				b, err := schema.Bind(old.Header)
				So(err, ShouldBeNil)
				So(b.HasDemographics, ShouldBeFalse)
			})

			Convey("Then the manifest loads", func() {
				So(fx.ManifestPath, ShouldEqual, filepath.Join(cfg.Dir, "synthetic.yaml"))
				m, err := config.LoadManifest(ctx, fx.ManifestPath)
				So(err, ShouldBeNil)
				So(m.Protocol, ShouldEqual, "synthetic")
				So(m.ResultsFiles, ShouldHaveLength, len(fx.Files))
				So(m.ResultsFiles[1].Comma(), ShouldEqual, ',')
				So(m.DateBreaks, ShouldHaveLength, cfg.Years)
				So(m.DateBreaks[0].Label, ShouldEqual, "2019")
			})
		})

		Convey("When the same seed is used twice", func() {
			a, err := testresults.Generate(ctx, cfg)
			So(err, ShouldBeNil)
			cfg.Dir = t.TempDir()
			b, err := testresults.Generate(ctx, cfg)
			So(err, ShouldBeNil)

			Convey("Then the same number of rows is written", func() {
				So(b.Rows, ShouldEqual, a.Rows)
			})
		})

		Convey("When a count is not positive", func() {
			cfg.Workers = 0
			_, err := testresults.Generate(ctx, cfg)

			So(err, ShouldNotBeNil)
		})
	})
}
