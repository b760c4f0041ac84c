package api

import (
	"context"
	"net/http"

	"github.com/okian/coinsum/internal/domain/model"
)

// DetectDependencies defines the interface for one-shot post-processing.
type DetectDependencies interface {
	Detect(ctx context.Context, f model.Frame) (model.FrameResult, error)
	Currency() string
}

// DetectHandler handles POST /detect.
type DetectHandler struct {
	deps DetectDependencies
}

// NewDetectHandler creates a new detect handler.
func NewDetectHandler(deps DetectDependencies) *DetectHandler {
	return &DetectHandler{deps: deps}
}

type detectResponse struct {
	model.FrameResult
	Total   string `json:"total"`
	Summary string `json:"summary"`
}

// HandleDetect post-processes the posted detector output and returns the
// valued frame result.
func (h *DetectHandler) HandleDetect(w http.ResponseWriter, r *http.Request) {
	const op = "api.detect"
	req, err := decodeFrame(w, r)
	if err != nil {
		writeKindError(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := h.deps.Detect(r.Context(), req.frame())
	if err != nil {
		writeKindError(w, WrapKind(op, err, nil))
		return
	}
	writeJSON(w, http.StatusOK, detectResponse{
		FrameResult: res,
		Total:       res.FormatTotal(h.deps.Currency()),
		Summary:     res.Summary(),
	})
}
