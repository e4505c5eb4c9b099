package analyzer

import (
	"iter"
	"sort"
)

// Warning is a file the scan had to skip
type Warning struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Summary aggregates a scan
type Summary struct {
	TotalFiles       int                   `json:"totalFiles"`
	TotalOccurrences int                   `json:"totalOccurrences"`
	ComplexityByFile map[string]Complexity `json:"complexityByFile"`
}

// Report is a fully collected scan in stable order
type Report struct {
	Occurrences []Occurrence `json:"occurrences"`
	Summary     Summary      `json:"summary"`
	Warnings    []Warning    `json:"warnings"`
}

// Collect drains seq into a Report sorted by path, line and column. Files with warnings
// count toward TotalFiles but get no complexity entry
func Collect(seq iter.Seq[FileResult]) Report {
	rep := Report{
		Occurrences: []Occurrence{},
		Warnings:    []Warning{},
		Summary:     Summary{ComplexityByFile: map[string]Complexity{}},
	}
	for fr := range seq {
		rep.Add(fr)
	}
	rep.Sort()
	return rep
}

// Add folds one file result into the report
func (r *Report) Add(fr FileResult) {
	r.Summary.TotalFiles++
	if fr.Warning != "" {
		r.Warnings = append(r.Warnings, Warning{Path: fr.Path, Message: fr.Warning})
		return
	}
	r.Occurrences = append(r.Occurrences, fr.Occurrences...)
	r.Summary.TotalOccurrences += len(fr.Occurrences)
	if r.Summary.ComplexityByFile == nil {
		r.Summary.ComplexityByFile = map[string]Complexity{}
	}
	r.Summary.ComplexityByFile[fr.Path] = fr.Complexity()
}

// Sort orders occurrences by path, line, column and warnings by path
func (r *Report) Sort() {
	sort.SliceStable(r.Occurrences, func(i, j int) bool {
		a, b := r.Occurrences[i], r.Occurrences[j]
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
	sort.SliceStable(r.Warnings, func(i, j int) bool { return r.Warnings[i].Path < r.Warnings[j].Path })
}

// Filter keeps occurrences for which keep returns true and recomputes the summary counts
func (r *Report) Filter(keep func(Occurrence) bool) {
	kept := r.Occurrences[:0]
	perFile := map[string]int{}
	for _, o := range r.Occurrences {
		if keep(o) {
			kept = append(kept, o)
			perFile[o.FilePath]++
		}
	}
	r.Occurrences = kept
	r.Summary.TotalOccurrences = len(kept)
	for p := range r.Summary.ComplexityByFile {
		r.Summary.ComplexityByFile[p] = ScoreComplexity(perFile[p])
	}
}
