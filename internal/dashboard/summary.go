package dashboard

import (
	"sort"

	"github.com/sells-group/sustainfire/internal/scorer"
)

// Bucket is one bar of the risk level histogram.
type Bucket struct {
	Level int `json:"level"`
	Count int `json:"count"`
}

// Summarize counts labels per risk level in ascending level order. Levels
// with no rows are left out unless zeroFill is set, in which case every
// level from 0 to scorer.MaxRiskLevel is present.
func Summarize(labels []int, zeroFill bool) []Bucket {
	counts := make(map[int]int)
	for _, l := range labels {
		counts[l]++
	}
	if zeroFill {
		for level := 0; level <= scorer.MaxRiskLevel; level++ {
			if _, ok := counts[level]; !ok {
				counts[level] = 0
			}
		}
	}

	buckets := make([]Bucket, 0, len(counts))
	for level, n := range counts {
		buckets = append(buckets, Bucket{Level: level, Count: n})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Level < buckets[j].Level })
	return buckets
}

// Total returns the number of rows counted across buckets.
func Total(buckets []Bucket) int {
	var n int
	for _, b := range buckets {
		n += b.Count
	}
	return n
}
