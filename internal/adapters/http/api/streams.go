package api

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"net/http"
	"strings"

	"github.com/google/uuid"

	service "github.com/okian/coinsum/internal/app"
	"github.com/okian/coinsum/internal/domain/model"
)

// StreamDependencies defines the interface for stream operations.
type StreamDependencies interface {
	Submit(ctx context.Context, streamID string, f model.Frame) error
	SubmitImage(ctx context.Context, streamID, frameID string, img image.Image) error
	Stream(streamID string) (service.StreamStatus, error)
	Streams() []service.StreamStatus
	StopStream(ctx context.Context, streamID string) error
}

// StreamsHandler handles /streams requests.
type StreamsHandler struct {
	deps StreamDependencies
}

// NewStreamsHandler creates a new streams handler.
func NewStreamsHandler(deps StreamDependencies) *StreamsHandler {
	return &StreamsHandler{deps: deps}
}

func streamID(r *http.Request) string {
	return strings.TrimSpace(r.PathValue("id"))
}

// HandlePostFrame handles POST /streams/{id}/frames. Frames are processed
// asynchronously in arrival order; a full stream queue answers 429 and a
// frame id already queued on the stream answers 200 duplicate.
func (h *StreamsHandler) HandlePostFrame(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_frame"
	id := streamID(r)
	if id == "" {
		writeKindError(w, NewKind(op, ErrBadRequest))
		return
	}
	req, err := decodeFrame(w, r)
	if err != nil {
		writeKindError(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	f := req.frame()
	if err := h.deps.Submit(r.Context(), id, f); err != nil {
		writeAck(w, f.ID, WrapKind(op, err, nil))
		return
	}
	writeAck(w, f.ID, nil)
}

// HandlePostImage handles POST /streams/{id}/images. The body is a PNG or
// JPEG frame which is letterboxed before it is queued.
func (h *StreamsHandler) HandlePostImage(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_image"
	id := streamID(r)
	if id == "" {
		writeKindError(w, NewKind(op, ErrBadRequest))
		return
	}
	img, format, err := image.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeKindError(w, WrapKind(op, ErrBadRequest, fmt.Errorf("decode image: %w", err)))
		return
	}

	frameID := strings.TrimSpace(r.URL.Query().Get("frame_id"))
	if frameID == "" {
		frameID = uuid.NewString()
	}
	w.Header().Set("X-Image-Format", format)
	if err := h.deps.SubmitImage(r.Context(), id, frameID, img); err != nil {
		writeAck(w, frameID, WrapKind(op, err, nil))
		return
	}
	writeAck(w, frameID, nil)
}

// HandleGet handles GET /streams/{id}.
func (h *StreamsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_stream"
	st, err := h.deps.Stream(streamID(r))
	if err != nil {
		writeKindError(w, WrapKind(op, err, nil))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HandleList handles GET /streams.
func (h *StreamsHandler) HandleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Streams())
}

// HandleDelete handles DELETE /streams/{id}.
func (h *StreamsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_stream"
	if err := h.deps.StopStream(r.Context(), streamID(r)); err != nil {
		writeKindError(w, WrapKind(op, err, nil))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
