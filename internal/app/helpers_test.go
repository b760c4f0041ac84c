package service_test

import (
	"context"
	"errors"
	"sync"

	service "github.com/okian/coinsum/internal/app"
	"github.com/okian/coinsum/internal/domain/model"
	"github.com/okian/coinsum/internal/domain/valuetable"
	"github.com/okian/coinsum/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// rawBox builds a raw detection from a corner-form box.
func rawBox(x1, y1, x2, y2, obj float64, scores ...float64) model.RawDetection {
	return model.RawDetection{
		CX: (x1 + x2) / 2, CY: (y1 + y2) / 2,
		W: x2 - x1, H: y2 - y1,
		Objectness:  obj,
		ClassScores: scores,
	}
}

func mustTable(entries ...valuetable.Entry) *valuetable.Table {
	t, err := valuetable.New(entries)
	if err != nil {
		panic(err)
	}
	return t
}

func defaultTable() *valuetable.Table {
	return mustTable(valuetable.Default()...)
}

func mustPost(t *valuetable.Table, s service.Settings) *service.PostProcessor {
	p, err := service.NewPostProcessor(t, s)
	if err != nil {
		panic(err)
	}
	return p
}

// fakeModel returns the frame's attached output and records reinitialisations.
type fakeModel struct {
	mu         sync.Mutex
	shapes     []model.Shape
	inferErr   error
	reinitErrs int
}

func (m *fakeModel) Infer(ctx context.Context, f model.Frame) ([]model.RawDetection, error) {
	if m.inferErr != nil {
		return nil, m.inferErr
	}
	return f.Raw, ctx.Err()
}

func (m *fakeModel) Reinitialize(_ context.Context, shape model.Shape) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reinitErrs > 0 {
		m.reinitErrs--
		return errors.New("cuda out of memory")
	}
	m.shapes = append(m.shapes, shape)
	return nil
}

func (m *fakeModel) seen() []model.Shape {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Shape(nil), m.shapes...)
}

// blockingModel holds every inference until release is closed.
type blockingModel struct {
	release chan struct{}
}

func (m *blockingModel) Infer(ctx context.Context, f model.Frame) ([]model.RawDetection, error) {
	select {
	case <-m.release:
		return f.Raw, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type collectSink struct {
	mu       sync.Mutex
	outcomes []service.Outcome
}

func (s *collectSink) Emit(_ context.Context, o service.Outcome) {
	s.mu.Lock()
	s.outcomes = append(s.outcomes, o)
	s.mu.Unlock()
}

func (s *collectSink) all() []service.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]service.Outcome(nil), s.outcomes...)
}
