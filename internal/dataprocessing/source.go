package dataprocessing

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// SourceKind selects the backend a Source is read with.
type SourceKind string

const (
	// SourceWorkbook is a spreadsheet with one worksheet per series label.
	SourceWorkbook SourceKind = "workbook"
	// SourceDirectory is a directory holding one JSON or YAML file per instrument.
	SourceDirectory SourceKind = "directory"
	// SourceAuto picks workbook or directory from what Path points at.
	SourceAuto SourceKind = "auto"
)

// Source is the location instrument definitions are extracted from.
type Source struct {
	Kind SourceKind
	Path string
}

func (s Source) String() string { return fmt.Sprintf("%s:%s", s.Kind, s.Path) }

// Resolve replaces SourceAuto with the concrete kind of Path.
func (s Source) Resolve() (Source, error) {
	switch s.Kind {
	case SourceWorkbook, SourceDirectory:
		return s, nil
	case SourceAuto, "":
		info, err := os.Stat(s.Path)
		if err != nil {
			return s, &ExtractionError{Source: s.Path, Reason: "source is not readable", Err: err}
		}
		if info.IsDir() {
			s.Kind = SourceDirectory
		} else {
			s.Kind = SourceWorkbook
		}
		return s, nil
	default:
		return s, &ExtractionError{Source: s.Path, Reason: fmt.Sprintf("unknown source kind %q", s.Kind)}
	}
}

// SeriesSpec ties a series label to the tenor of the instruments it issues.
type SeriesSpec struct {
	Label      string
	TenorYears int
}

// DefaultSeries is the series table used when none is configured.
func DefaultSeries() []SeriesSpec {
	return []SeriesSpec{
		{Label: "EDO", TenorYears: 10},
		{Label: "ROD", TenorYears: 12},
	}
}

// SeriesFromMap turns a label to tenor map into specs ordered by label.
func SeriesFromMap(m map[string]int) []SeriesSpec {
	specs := make([]SeriesSpec, 0, len(m))
	for label, tenor := range m {
		specs = append(specs, SeriesSpec{Label: label, TenorYears: tenor})
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Label < specs[j].Label })
	return specs
}

// seriesFor returns the spec with the longest label that prefixes id.
func seriesFor(id string, specs []SeriesSpec) (SeriesSpec, bool) {
	var best SeriesSpec
	found := false
	for _, spec := range specs {
		if strings.HasPrefix(id, spec.Label) && (!found || len(spec.Label) > len(best.Label)) {
			best, found = spec, true
		}
	}
	return best, found
}

func seriesByLabel(label string, specs []SeriesSpec) (SeriesSpec, bool) {
	for _, spec := range specs {
		if spec.Label == label {
			return spec, true
		}
	}
	return SeriesSpec{}, false
}
