package nbtlai

import "github.com/ZaguanLabs/nbtlai/notebook"

// SpanRef is a translatable span located in a document.
type SpanRef struct {
	CellIndex int
	SpanIndex int // index among the cell's translatable spans
	CellKind  notebook.CellKind
	Text      string
	Hash      string
}

// CollectSpans classifies every cell of doc and returns the translatable
// spans in document order. Cells without a processor, and cells tagged
// SkipTag, contribute nothing.
func CollectSpans(doc *notebook.Document, processors []ContentProcessor) []SpanRef {
	byKind := make(map[notebook.CellKind]ContentProcessor, len(processors))
	for _, p := range processors {
		byKind[p.CellKind()] = p
	}

	var refs []SpanRef
	for i, cell := range doc.Cells {
		p, ok := byKind[cell.Kind]
		if !ok || cell.HasTag(SkipTag) {
			continue
		}
		for n, text := range TranslatableTexts(p.Classify(cell.Source)) {
			refs = append(refs, SpanRef{
				CellIndex: i,
				SpanIndex: n,
				CellKind:  cell.Kind,
				Text:      text,
				Hash:      HashText(text),
			})
		}
	}
	return refs
}

// DiffResult represents the difference between two versions of a notebook.
type DiffResult struct {
	// Added contains spans that are new (not in the previous version).
	Added []SpanRef

	// Removed contains spans that are gone from the new version.
	Removed []SpanRef

	// Unchanged contains spans present in both versions.
	Unchanged []SpanRef

	// Modified pairs a removed and an added span found at the same
	// cell and span position.
	Modified []ModifiedSpan
}

// ModifiedSpan represents a span whose text changed in place.
type ModifiedSpan struct {
	Old SpanRef
	New SpanRef
}

// DiffStats contains summary statistics for a diff.
type DiffStats struct {
	Added     int `json:"added"`
	Removed   int `json:"removed"`
	Unchanged int `json:"unchanged"`
	Modified  int `json:"modified"`
}

// Stats returns summary statistics for the diff.
func (d *DiffResult) Stats() DiffStats {
	return DiffStats{
		Added:     len(d.Added),
		Removed:   len(d.Removed),
		Unchanged: len(d.Unchanged),
		Modified:  len(d.Modified),
	}
}

// HasChanges returns true if there are any differences.
func (d *DiffResult) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0 || len(d.Modified) > 0
}

// NeedsTranslation returns the new and modified spans, the ones a cache
// filled from the previous version cannot serve.
func (d *DiffResult) NeedsTranslation() []SpanRef {
	result := make([]SpanRef, 0, len(d.Added)+len(d.Modified))
	result = append(result, d.Added...)
	for _, m := range d.Modified {
		result = append(result, m.New)
	}
	return result
}

// DiffDocuments compares the translatable spans of two notebook versions.
func DiffDocuments(oldDoc, newDoc *notebook.Document, processors []ContentProcessor) *DiffResult {
	return DiffSpans(CollectSpans(oldDoc, processors), CollectSpans(newDoc, processors))
}

// DiffSpans compares two span lists by text hash. Repeated texts count once.
// A removed and an added span at the same position are reported as modified.
func DiffSpans(oldSpans, newSpans []SpanRef) *DiffResult {
	result := &DiffResult{}

	oldSet := uniqueByHash(oldSpans)
	newSet := uniqueByHash(newSpans)

	var removed, added []SpanRef
	for _, s := range oldSet.spans {
		if _, ok := newSet.byHash[s.Hash]; ok {
			result.Unchanged = append(result.Unchanged, s)
		} else {
			removed = append(removed, s)
		}
	}
	for _, s := range newSet.spans {
		if _, ok := oldSet.byHash[s.Hash]; !ok {
			added = append(added, s)
		}
	}

	type position struct{ cell, span int }
	removedAt := make(map[position]int, len(removed))
	for i, s := range removed {
		removedAt[position{s.CellIndex, s.SpanIndex}] = i
	}

	matched := make(map[int]bool)
	for _, s := range added {
		ri, ok := removedAt[position{s.CellIndex, s.SpanIndex}]
		if !ok || matched[ri] {
			result.Added = append(result.Added, s)
			continue
		}
		matched[ri] = true
		result.Modified = append(result.Modified, ModifiedSpan{Old: removed[ri], New: s})
	}
	for i, s := range removed {
		if !matched[i] {
			result.Removed = append(result.Removed, s)
		}
	}

	return result
}

type spanSet struct {
	spans  []SpanRef
	byHash map[string]struct{}
}

func uniqueByHash(spans []SpanRef) spanSet {
	set := spanSet{byHash: make(map[string]struct{}, len(spans))}
	for _, s := range spans {
		hash := s.Hash
		if hash == "" {
			hash = HashText(s.Text)
			s.Hash = hash
		}
		if _, ok := set.byHash[hash]; ok {
			continue
		}
		set.byHash[hash] = struct{}{}
		set.spans = append(set.spans, s)
	}
	return set
}
