// Package inference holds model collaborators for the frame pipeline. The
// detector itself runs out of process; these adapters hand its output to the
// controller.
package inference

import (
	"context"

	"github.com/okian/coinsum/internal/domain/model"
)

// Passthrough returns the raw output already attached to a frame by a remote
// inference process.
type Passthrough struct{}

// Infer returns f.Raw.
func (Passthrough) Infer(ctx context.Context, f model.Frame) ([]model.RawDetection, error) { //nolint:gocritic // hugeParam: frames travel by value
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.Raw, nil
}
