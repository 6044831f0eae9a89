package config

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Period labels are free text, so the manifest is read with a key
// delimiter that cannot reasonably appear in one.
const manifestDelim = "::"

const dateLayout = "2006-01-02"

// Manifest keys that every run must declare.
var requiredManifestKeys = []string{"resultsfiles", "protocol", "datebreaks"}

// ResultsFile is one entry of the manifest's resultsfiles list.
type ResultsFile struct {
	File         string `koanf:"file"`
	Delimiter    string `koanf:"delimiter"`
	Name         string `koanf:"name"`
	Experimenter string `koanf:"experimenter"`
}

// Comma returns the field separator declared for the file. Tab unless the
// entry says comma.
func (r ResultsFile) Comma() rune {
	switch strings.ToLower(strings.TrimSpace(r.Delimiter)) {
	case "comma", ",":
		return ','
	default:
		return '\t'
	}
}

// DateBreak is a labelled, inclusive range of calendar dates.
type DateBreak struct {
	Label string
	Start time.Time
	End   time.Time
}

// Manifest describes one report run: which files to read, the protocol
// name used for output files, and the reporting periods.
type Manifest struct {
	Path         string
	Protocol     string
	ResultsFiles []ResultsFile
	// DateBreaks is ordered by start date, then label.
	DateBreaks []DateBreak
}

// LoadManifest reads and validates the YAML manifest at path. All missing
// required keys are reported together, before any results file is touched.
func LoadManifest(_ context.Context, path string) (*Manifest, error) {
	k := koanf.New(manifestDelim)
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
	}

	var missing []string
	for _, key := range requiredManifestKeys {
		if !k.Exists(key) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w in %s: %s", ErrMissingKeys, path, strings.Join(missing, ", "))
	}

	m := &Manifest{
		Path:     path,
		Protocol: strings.TrimSpace(k.String("protocol")),
	}
	if m.Protocol == "" {
		return nil, fmt.Errorf("%w: protocol must not be empty", ErrInvalidManifest)
	}

	if err := k.UnmarshalWithConf("resultsfiles", &m.ResultsFiles, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: resultsfiles: %w", ErrInvalidManifest, err)
	}
	if len(m.ResultsFiles) == 0 {
		return nil, fmt.Errorf("%w: resultsfiles must list at least one file", ErrInvalidManifest)
	}
	for i, rf := range m.ResultsFiles {
		if strings.TrimSpace(rf.File) == "" {
			return nil, fmt.Errorf("%w: resultsfiles[%d] has no file", ErrInvalidManifest, i)
		}
		switch strings.ToLower(strings.TrimSpace(rf.Delimiter)) {
		case "", "tab", "\t", "comma", ",":
		default:
			return nil, fmt.Errorf("%w: resultsfiles[%d] delimiter %q (want tab or comma)", ErrInvalidManifest, i, rf.Delimiter)
		}
	}

	breaks, err := parseDateBreaks(k)
	if err != nil {
		return nil, err
	}
	m.DateBreaks = breaks
	return m, nil
}

func parseDateBreaks(k *koanf.Koanf) ([]DateBreak, error) {
	labels := k.MapKeys("datebreaks")
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: datebreaks must define at least one period", ErrInvalidManifest)
	}

	breaks := make([]DateBreak, 0, len(labels))
	for _, label := range labels {
		prefix := "datebreaks" + manifestDelim + label + manifestDelim
		start, err := parseDate(k.Get(prefix + "start"))
		if err != nil {
			return nil, fmt.Errorf("%w: datebreaks %s start: %w", ErrInvalidManifest, label, err)
		}
		end, err := parseDate(k.Get(prefix + "end"))
		if err != nil {
			return nil, fmt.Errorf("%w: datebreaks %s end: %w", ErrInvalidManifest, label, err)
		}
		if end.Before(start) {
			return nil, fmt.Errorf("%w: datebreaks %s ends before it starts", ErrInvalidManifest, label)
		}
		breaks = append(breaks, DateBreak{Label: label, Start: start, End: end})
	}

	sort.SliceStable(breaks, func(i, j int) bool {
		if !breaks[i].Start.Equal(breaks[j].Start) {
			return breaks[i].Start.Before(breaks[j].Start)
		}
		return breaks[i].Label < breaks[j].Label
	})
	return breaks, nil
}

// parseDate accepts the YAML forms a date can arrive in: a quoted or bare
// YYYY-MM-DD string, or an already-decoded timestamp.
func parseDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case nil:
		return time.Time{}, errors.New("missing date")
	case time.Time:
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
	case string:
		t, err := time.Parse(dateLayout, strings.TrimSpace(d))
		if err != nil {
			return time.Time{}, fmt.Errorf("date %q: want YYYY-MM-DD", d)
		}
		return t, nil
	default:
		return time.Time{}, fmt.Errorf("unsupported date value %v", v)
	}
}
