// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/coinsum/internal/adapters/preprocess"
	service "github.com/okian/coinsum/internal/app"
	"github.com/okian/coinsum/internal/domain/model"
	"github.com/okian/coinsum/internal/domain/remap"
	"github.com/okian/coinsum/internal/domain/valuetable"
)

// maxBodyBytes bounds request bodies; raw detector output can be large.
const maxBodyBytes = 8 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Detect(ctx context.Context, f model.Frame) (model.FrameResult, error)
	Submit(ctx context.Context, streamID string, f model.Frame) error
	SubmitImage(ctx context.Context, streamID, frameID string, img image.Image) error
	Stream(streamID string) (service.StreamStatus, error)
	Streams() []service.StreamStatus
	StopStream(ctx context.Context, streamID string) error
	Currency() string
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	detectHandler  *DetectHandler
	streamsHandler *StreamsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		detectHandler:  NewDetectHandler(deps),
		streamsHandler: NewStreamsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /detect", MetricsMiddleware(s.detectHandler.HandleDetect, "detect"))
	mux.HandleFunc("GET /streams", MetricsMiddleware(s.streamsHandler.HandleList, "streams"))
	mux.HandleFunc("POST /streams/{id}/frames", MetricsMiddleware(s.streamsHandler.HandlePostFrame, "stream_frames"))
	mux.HandleFunc("POST /streams/{id}/images", MetricsMiddleware(s.streamsHandler.HandlePostImage, "stream_images"))
	mux.HandleFunc("GET /streams/{id}", MetricsMiddleware(s.streamsHandler.HandleGet, "stream"))
	mux.HandleFunc("DELETE /streams/{id}", MetricsMiddleware(s.streamsHandler.HandleDelete, "stream"))
}

// frameRequest is the wire form of one frame of detector output.
type frameRequest struct {
	FrameID    string                    `json:"frame_id"`
	Width      int                       `json:"width"`
	Height     int                       `json:"height"`
	Shape      model.Shape               `json:"shape"`
	Transform  *model.LetterboxTransform `json:"transform"`
	Detections []model.RawDetection      `json:"detections"`
}

func (f frameRequest) validate() error {
	switch {
	case f.Width <= 0 || f.Height <= 0:
		return errors.New("width and height must be positive")
	case f.Shape.Batch < 0 || f.Shape.Height < 0 || f.Shape.Width < 0:
		return errors.New("shape must not be negative")
	}
	return nil
}

// frame converts the request, assigning a random id when none is given.
func (f frameRequest) frame() model.Frame {
	id := strings.TrimSpace(f.FrameID)
	if id == "" {
		id = uuid.NewString()
	}
	return model.Frame{
		ID:        id,
		Width:     f.Width,
		Height:    f.Height,
		Shape:     f.Shape,
		Transform: f.Transform,
		Raw:       f.Detections,
	}
}

func decodeFrame(w http.ResponseWriter, r *http.Request) (frameRequest, error) {
	var req frameRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return frameRequest{}, fmt.Errorf("decode body: %w", err)
	}
	if err := req.validate(); err != nil {
		return frameRequest{}, err
	}
	return req, nil
}

type ackResponse struct {
	Status    string `json:"status"`
	FrameID   string `json:"frame_id"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// writeAck answers a stream submission. A duplicate frame id is not an
// error: the frame was already queued once.
func writeAck(w http.ResponseWriter, frameID string, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", FrameID: frameID})
	case errors.Is(err, service.ErrDuplicateFrame):
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", FrameID: frameID, Duplicate: true})
	default:
		writeKindError(w, err)
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// classify maps upstream errors to a status code and an error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, remap.ErrInvalidTransform),
		errors.Is(err, preprocess.ErrInvalidImage):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, valuetable.ErrUnknownClass):
		return http.StatusUnprocessableEntity, "unknown_class"
	case errors.Is(err, ErrNotFound), errors.Is(err, service.ErrStreamNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrBackpressure), errors.Is(err, service.ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrTerminated):
		return http.StatusConflict, "terminated"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeKindError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}
