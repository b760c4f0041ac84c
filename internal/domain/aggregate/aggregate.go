// Package aggregate turns placed detections into a valued frame result.
package aggregate

import (
	"fmt"
	"sort"

	"github.com/okian/coinsum/internal/domain/model"
	"github.com/okian/coinsum/internal/domain/valuetable"
	"github.com/samber/lo"
)

// Aggregate labels each placed detection from the table and sums their
// values. Output order matches input order. An index missing from the table
// fails the whole frame with valuetable.ErrUnknownClass; it is never counted
// as zero.
func Aggregate(frameID string, placed []model.Placed, table *valuetable.Table) (model.FrameResult, error) {
	result := model.FrameResult{
		FrameID:    frameID,
		Detections: make([]model.Detection, 0, len(placed)),
	}

	for i, p := range placed {
		entry, err := table.Lookup(p.ClassIndex)
		if err != nil {
			return model.FrameResult{}, fmt.Errorf("detection %d: %w", i, err)
		}
		result.Detections = append(result.Detections, model.Detection{
			ClassIndex: p.ClassIndex,
			Label:      entry.Label,
			Confidence: p.Confidence,
			Box:        p.Box,
			Value:      entry.Value,
		})
		result.TotalValue += entry.Value
	}

	result.Counts = Counts(result.Detections)
	return result, nil
}

// Counts returns the number of detections per class ordered by class index.
func Counts(detections []model.Detection) []model.ClassCount {
	byClass := lo.CountValuesBy(detections, func(d model.Detection) int { return d.ClassIndex })
	labels := lo.SliceToMap(detections, func(d model.Detection) (int, string) { return d.ClassIndex, d.Label })

	counts := make([]model.ClassCount, 0, len(byClass))
	for class, n := range byClass {
		counts = append(counts, model.ClassCount{ClassIndex: class, Label: labels[class], Count: n})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].ClassIndex < counts[j].ClassIndex })
	return counts
}
