// Package community groups annotated genes by shared GO terms.
package community

import (
	"slices"
	"strings"

	"github.com/agenthands/genecompare/internal/core/dedupe"
	"github.com/agenthands/genecompare/internal/core/model"
)

// Detector runs label propagation over a gene graph in which two records are
// linked when they share at least MinShared GO ids, weighted by the number of
// ids they share.
type Detector struct {
	MaxIterations int
	MinShared     int
}

func NewDetector() *Detector {
	return &Detector{
		MaxIterations: 20,
		MinShared:     1,
	}
}

// Detect returns groups of input ids. Each group is sorted and has at least
// two members; groups are ordered largest first, then by first id.
func (d *Detector) Detect(records []model.GeneRecord) [][]string {
	n := len(records)
	if n < 2 {
		return nil
	}
	minShared := max(d.MinShared, 1)

	byTerm := make(map[string][]int)
	for i, rec := range records {
		for _, id := range dedupe.SortedUnique(rec.GoIDs()) {
			byTerm[id] = append(byTerm[id], i)
		}
	}

	shared := make([]map[int]int, n)
	for i := range shared {
		shared[i] = make(map[int]int)
	}
	for _, members := range byTerm {
		for x := 0; x < len(members); x++ {
			for y := x + 1; y < len(members); y++ {
				a, b := members[x], members[y]
				shared[a][b]++
				shared[b][a]++
			}
		}
	}

	adj := make([]map[int]int, n)
	for i, neighbors := range shared {
		adj[i] = make(map[int]int)
		for j, w := range neighbors {
			if w >= minShared {
				adj[i][j] = w
			}
		}
	}

	labels := make([]int, n)
	for i := range labels {
		labels[i] = i
	}

	for iter := 0; iter < d.MaxIterations; iter++ {
		changed := 0
		for u := 0; u < n; u++ {
			if len(adj[u]) == 0 {
				continue
			}

			weights := make(map[int]int)
			for v, w := range adj[u] {
				weights[labels[v]] += w
			}

			best, bestWeight := -1, 0
			for label, w := range weights {
				if w > bestWeight || (w == bestWeight && label < best) {
					best, bestWeight = label, w
				}
			}
			// Keep the current label on a tie so the loop settles.
			if weights[labels[u]] == bestWeight {
				best = labels[u]
			}

			if labels[u] != best {
				labels[u] = best
				changed++
			}
		}
		if changed == 0 {
			break
		}
	}

	clusters := make(map[int][]string)
	for i, label := range labels {
		clusters[label] = append(clusters[label], records[i].InputID)
	}

	var groups [][]string
	for _, ids := range clusters {
		ids = dedupe.SortedUnique(ids)
		if len(ids) >= 2 {
			groups = append(groups, ids)
		}
	}
	slices.SortFunc(groups, func(a, b []string) int {
		if len(a) != len(b) {
			return len(b) - len(a)
		}
		return strings.Compare(a[0], b[0])
	})
	return groups
}
