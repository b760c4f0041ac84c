package nms

import (
	"sort"

	"github.com/okian/coinsum/internal/domain/geometry"
	"github.com/okian/coinsum/internal/domain/model"
)

// DefaultMaxDetections caps the survivors of one frame.
const DefaultMaxDetections = 300

// Suppress runs greedy non-max suppression. Candidates are ordered by
// confidence descending; equal confidences keep their input order. A
// remaining candidate is dropped when its IoU with a kept one exceeds
// iouThreshold and either classAgnostic is set or both share a class.
//
// The input slice is not modified. The output is ordered by confidence
// descending.
func Suppress(cands []model.Candidate, iouThreshold float64, classAgnostic bool) []model.Candidate {
	if len(cands) == 0 {
		return []model.Candidate{}
	}

	sorted := make([]model.Candidate, len(cands))
	copy(sorted, cands)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	kept := make([]model.Candidate, 0, len(sorted))
	removed := make([]bool, len(sorted))
	for i := range sorted {
		if removed[i] {
			continue
		}
		anchor := sorted[i]
		kept = append(kept, anchor)

		for j := i + 1; j < len(sorted); j++ {
			if removed[j] {
				continue
			}
			if !classAgnostic && sorted[j].ClassIndex != anchor.ClassIndex {
				continue
			}
			if geometry.IoU(anchor.Box, sorted[j].Box) > iouThreshold {
				removed[j] = true
			}
		}
	}
	return kept
}

// Limit truncates survivors to at most n entries. A non-positive n disables
// the cap.
func Limit(cands []model.Candidate, n int) []model.Candidate {
	if n <= 0 || len(cands) <= n {
		return cands
	}
	return cands[:n]
}
