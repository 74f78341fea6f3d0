package dedupe

import (
	"slices"

	"github.com/agenthands/genecompare/internal/core/model"
)

// Merge concatenates annotation sets in argument order, keeping the first
// annotation seen for every GO id. Term text is never rewritten, so when two
// sources disagree on the label the earlier source wins.
func Merge(sets ...[]model.GoAnnotation) []model.GoAnnotation {
	n := 0
	for _, s := range sets {
		n += len(s)
	}

	merged := make([]model.GoAnnotation, 0, n)
	seen := make(map[string]struct{}, n)
	for _, s := range sets {
		for _, a := range s {
			if _, ok := seen[a.ID]; ok {
				continue
			}
			seen[a.ID] = struct{}{}
			merged = append(merged, a)
		}
	}
	return merged
}

// SortedUnique returns the non-empty values sorted with duplicates removed.
func SortedUnique(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
