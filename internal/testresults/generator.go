// Package testresults writes synthetic results files and a manifest that
// exercise every input variation the report pipeline accepts.
package testresults

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/v2"

	"github.com/okian/demoreport/internal/adapters/tabular"
	"github.com/okian/demoreport/internal/domain/model"
	"github.com/okian/demoreport/pkg/logger"
)

const legacyTimeLayout = "Mon Jan 02 15:04:05 MST 2006"

var (
	sexAnswers       = []string{"Male", "Female", "['Male']", "['Female']"}
	ethnicityAnswers = []string{"NonHisp", "Hisp", "['Not Hispanic or Latino']", "['Hispanic or Latino']"}
	raceTokens       = []string{"amerind;", "asian;", "black;", "other;", "pacif;", "white;"}
	browsers         = []string{"Firefox", "Chrome", "Safari", "Edge"}
)

// profile is one worker's true answers.
type profile struct {
	id        string
	sex       string
	ethnicity string
	race      string // single column token, possibly "a;|b;"
	age       string
}

type generator struct {
	cfg      Config
	rng      *rand.Rand
	pacific  *time.Location
	workers  []profile
	fixture  *Fixture
	hitCount int
}

// Generate writes cfg.Files results files, alternating between the legacy
// tab separated and the current comma separated export format, plus an
// optional pre-questionnaire file, and a manifest listing them all.
func Generate(ctx context.Context, cfg Config) (*Fixture, error) {
	if cfg.Workers <= 0 || cfg.Files <= 0 || cfg.MaxAssignments <= 0 || cfg.Years <= 0 {
		return nil, errors.New("workers, files, assignments and years must be positive")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create fixture dir: %w", err)
	}
	pacific, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		return nil, fmt.Errorf("load zone: %w", err)
	}

	g := &generator{
		cfg:     cfg,
		rng:     rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		pacific: pacific,
		fixture: &Fixture{},
	}
	g.makeWorkers()

	logger.Get().Info(ctx, "generating results files",
		logger.Int("workers", cfg.Workers),
		logger.Int("files", cfg.Files),
		logger.String("dir", cfg.Dir))

	type entry struct {
		path, delimiter, name string
	}
	var entries []entry
	for i := 0; i < cfg.Files; i++ {
		legacy := i%2 == 0
		name := fmt.Sprintf("experiment-%02d", i+1)
		var (
			path  string
			delim string
		)
		if legacy {
			path = filepath.Join(cfg.Dir, name+".results")
			delim = "tab"
			err = g.writeFile(path, '\t', legacyHeader(), g.legacyRow)
		} else {
			path = filepath.Join(cfg.Dir, name+".csv")
			delim = "comma"
			err = g.writeFile(path, ',', currentHeader(), g.currentRow)
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{path, delim, name})
	}
	if cfg.LegacyFile {
		path := filepath.Join(cfg.Dir, "pre-questionnaire.results")
		if err := g.writeFile(path, '\t', oldHeader(), g.oldRow); err != nil {
			return nil, err
		}
		entries = append(entries, entry{path, "tab", "pre-questionnaire"})
	}

	files := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		files = append(files, map[string]any{
			"file":         e.path,
			"delimiter":    e.delimiter,
			"name":         e.name,
			"experimenter": "generator",
		})
		g.fixture.Files = append(g.fixture.Files, e.path)
	}
	if err := g.writeManifest(files); err != nil {
		return nil, err
	}

	for _, w := range g.workers {
		g.fixture.Workers = append(g.fixture.Workers, w.id)
	}
	return g.fixture, nil
}

func (g *generator) makeWorkers() {
	g.workers = make([]profile, g.cfg.Workers)
	for i := range g.workers {
		race := raceTokens[g.rng.IntN(len(raceTokens))]
		if g.rng.IntN(10) == 0 {
			race += "|" + raceTokens[g.rng.IntN(len(raceTokens))]
		}
		age := strconv.Itoa(18 + g.rng.IntN(60))
		switch g.rng.IntN(20) {
		case 0:
			age = "thirty"
		case 1:
			age += ".5"
		}
		g.workers[i] = profile{
			id:        "A" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:13]),
			sex:       sexAnswers[g.rng.IntN(len(sexAnswers))],
			ethnicity: ethnicityAnswers[g.rng.IntN(len(ethnicityAnswers))],
			race:      race,
			age:       age,
		}
	}
}

// answers returns what a worker entered on one assignment. Occasionally an
// answer is skipped or contradicts the worker's profile.
func (g *generator) answers(p profile) profile {
	switch g.rng.IntN(12) {
	case 0:
		p.sex = ""
	case 1:
		p.race = "unknown;"
	case 2:
		p.sex = sexAnswers[g.rng.IntN(len(sexAnswers))]
	}
	return p
}

func (g *generator) submitTime() time.Time {
	span := g.cfg.Start.AddDate(g.cfg.Years, 0, 0).Sub(g.cfg.Start)
	return g.cfg.Start.Add(time.Duration(g.rng.Int64N(int64(span)))).In(g.pacific)
}

type rowFunc func(p profile, hit string, submit time.Time) []string

func (g *generator) writeFile(path string, comma rune, header []string, row rowFunc) error {
	rows := [][]string{header}
	for _, w := range g.workers {
		if g.rng.IntN(3) == 0 {
			continue
		}
		n := 1 + g.rng.IntN(g.cfg.MaxAssignments)
		for j := 0; j < n; j++ {
			g.hitCount++
			hit := fmt.Sprintf("HIT%08d", g.hitCount)
			rows = append(rows, row(g.answers(w), hit, g.submitTime()))
		}
	}
	g.fixture.Rows += len(rows) - 1

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := tabular.Write(f, rows, comma); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func legacyHeader() []string {
	return []string{
		"hitid", "hittypeid", "title", "creationtime", "assignmentid", "workerid",
		"assignmentaccepttime", "assignmentsubmittime", "Answer.experiment", "Answer.list",
		"Answer.browser", "Answer.rsrb.sex", "Answer.rsrb.ethnicity", "Answer.rsrb.age",
		"Answer.rsrb.race", "Answer.rsrb.raceother",
	}
}

func (g *generator) legacyRow(p profile, hit string, submit time.Time) []string {
	accept := submit.Add(-10 * time.Minute)
	return []string{
		hit, "TYPE1", "Listening experiment", accept.Add(-time.Hour).Format(legacyTimeLayout),
		"ASG" + hit, p.id,
		accept.Format(legacyTimeLayout), submit.Format(legacyTimeLayout), "", "list" + strconv.Itoa(g.rng.IntN(4)),
		browsers[g.rng.IntN(len(browsers))], p.sex, p.ethnicity, p.age,
		p.race, "",
	}
}

func currentHeader() []string {
	h := []string{
		"HITId", "HITTypeId", "Title", "CreationTime", "AssignmentId", "WorkerId",
		"AcceptTime", "SubmitTime", "Answer.Experiment", "Answer.userAgent",
		"Answer.rsrb.sex", "Answer.rsrb.ethnicity", "Answer.rsrb.age",
	}
	for _, k := range model.IndicatorKeys {
		h = append(h, "Answer.rsrb.race."+k)
	}
	return h
}

func (g *generator) currentRow(p profile, hit string, submit time.Time) []string {
	accept := submit.Add(-10 * time.Minute)
	row := []string{
		hit, "TYPE2", "Perception study", accept.Add(-time.Hour).Format(time.RFC3339),
		"ASG" + hit, p.id,
		accept.Format(time.RFC3339), submit.Format(time.RFC3339), "current-exp", "Mozilla/5.0",
		p.sex, p.ethnicity, p.age,
	}
	var flags model.RaceIndicators
	if p.race != "unknown;" {
		for _, tok := range strings.Split(p.race, "|") {
			for i, k := range model.IndicatorKeys {
				if tok == k+";" {
					flags[i] = true
				}
			}
		}
	}
	for _, on := range flags {
		row = append(row, strconv.FormatBool(on))
	}
	return row
}

func oldHeader() []string {
	return []string{"hitid", "assignmentid", "workerid", "assignmentsubmittime", "Answer.list"}
}

func (g *generator) oldRow(p profile, hit string, submit time.Time) []string {
	return []string{hit, "ASG" + hit, p.id, submit.Format(legacyTimeLayout), "list0"}
}

func (g *generator) writeManifest(files []map[string]any) error {
	k := koanf.New("::")
	if err := k.Set("protocol", g.cfg.Protocol); err != nil {
		return err
	}
	if err := k.Set("resultsfiles", files); err != nil {
		return err
	}
	for i := 0; i < g.cfg.Years; i++ {
		start := g.cfg.Start.AddDate(i, 0, 0)
		end := start.AddDate(1, 0, -1)
		label := strconv.Itoa(start.Year())
		if err := k.Set("datebreaks::"+label+"::start", start.Format(time.DateOnly)); err != nil {
			return err
		}
		if err := k.Set("datebreaks::"+label+"::end", end.Format(time.DateOnly)); err != nil {
			return err
		}
	}

	data, err := k.Marshal(yaml.Parser())
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	g.fixture.ManifestPath = filepath.Join(g.cfg.Dir, g.cfg.Protocol+".yaml")
	if err := os.WriteFile(g.fixture.ManifestPath, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
