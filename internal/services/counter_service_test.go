package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/burger-alley/api/internal/repositories"
)

type stubCounterRepo struct {
	nextFn      func(ctx context.Context, counterID string, step int64) (int64, error)
	configureFn func(ctx context.Context, counterID string, cfg repositories.CounterConfig) error
}

func (s *stubCounterRepo) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	return s.nextFn(ctx, counterID, step)
}

func (s *stubCounterRepo) Configure(ctx context.Context, counterID string, cfg repositories.CounterConfig) error {
	if s.configureFn == nil {
		return nil
	}
	return s.configureFn(ctx, counterID, cfg)
}

func TestCounterServiceNextOrderNumberFormat(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	var seq int64
	repo := &stubCounterRepo{
		nextFn: func(_ context.Context, counterID string, _ int64) (int64, error) {
			if counterID != "orders:250310" {
				t.Fatalf("expected per-day counter id, got %q", counterID)
			}
			seq++
			return seq, nil
		},
	}
	svc, err := NewCounterService(CounterServiceDeps{Repository: repo, Clock: fixedClock(now)})
	if err != nil {
		t.Fatalf("NewCounterService returned error: %v", err)
	}

	first, err := svc.NextOrderNumber(context.Background())
	if err != nil {
		t.Fatalf("NextOrderNumber returned error: %v", err)
	}
	if first != "BA250310001" {
		t.Fatalf("expected BA250310001, got %q", first)
	}

	second, err := svc.NextOrderNumber(context.Background())
	if err != nil {
		t.Fatalf("NextOrderNumber returned error: %v", err)
	}
	if second != "BA250310002" {
		t.Fatalf("expected BA250310002, got %q", second)
	}
	if first == second {
		t.Fatalf("consecutive numbers must differ")
	}
}

func TestCounterServiceNextOrderNumberCapsDailySequence(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	var capped *int64
	repo := &stubCounterRepo{
		configureFn: func(_ context.Context, counterID string, cfg repositories.CounterConfig) error {
			if counterID != "orders:250310" {
				t.Fatalf("expected per-day counter id, got %q", counterID)
			}
			capped = cfg.MaxValue
			return nil
		},
		nextFn: func(_ context.Context, _ string, _ int64) (int64, error) {
			// The 999th number of the day is already taken.
			return 0, repositories.NewCounterError(repositories.CounterErrorExhausted, "counter hit its ceiling", nil)
		},
	}
	svc, err := NewCounterService(CounterServiceDeps{Repository: repo, Clock: fixedClock(now)})
	if err != nil {
		t.Fatalf("NewCounterService returned error: %v", err)
	}

	if _, err := svc.NextOrderNumber(context.Background()); !errors.Is(err, ErrCounterExhausted) {
		t.Fatalf("expected ErrCounterExhausted past the daily cap, got %v", err)
	}
	if capped == nil || *capped != 999 {
		t.Fatalf("expected the per-day counter to be capped at 999, got %v", capped)
	}
}

func TestCounterServiceNextValidatesScopeAndName(t *testing.T) {
	svc, err := NewCounterService(CounterServiceDeps{Repository: &stubCounterRepo{}})
	if err != nil {
		t.Fatalf("NewCounterService returned error: %v", err)
	}

	if _, err := svc.Next(context.Background(), " ", "day", CounterGenerationOptions{}); !errors.Is(err, ErrCounterInvalidInput) {
		t.Fatalf("expected ErrCounterInvalidInput for blank scope, got %v", err)
	}
	if _, err := svc.Next(context.Background(), "orders", "", CounterGenerationOptions{}); !errors.Is(err, ErrCounterInvalidInput) {
		t.Fatalf("expected ErrCounterInvalidInput for blank name, got %v", err)
	}
}

func TestCounterServiceNextMapsRepositoryErrors(t *testing.T) {
	repo := &stubCounterRepo{
		nextFn: func(_ context.Context, _ string, _ int64) (int64, error) {
			return 0, repositories.NewCounterError(repositories.CounterErrorExhausted, "counter hit its ceiling", nil)
		},
	}
	svc, err := NewCounterService(CounterServiceDeps{Repository: repo})
	if err != nil {
		t.Fatalf("NewCounterService returned error: %v", err)
	}

	if _, err := svc.Next(context.Background(), "orders", "250310", CounterGenerationOptions{Step: 1}); !errors.Is(err, ErrCounterExhausted) {
		t.Fatalf("expected ErrCounterExhausted, got %v", err)
	}
}

func TestCounterServiceConfiguresOnce(t *testing.T) {
	configured := 0
	repo := &stubCounterRepo{
		nextFn: func(_ context.Context, _ string, _ int64) (int64, error) { return 1, nil },
		configureFn: func(_ context.Context, _ string, _ repositories.CounterConfig) error {
			configured++
			return nil
		},
	}
	svc, err := NewCounterService(CounterServiceDeps{Repository: repo})
	if err != nil {
		t.Fatalf("NewCounterService returned error: %v", err)
	}

	opts := CounterGenerationOptions{Step: 5, PadLength: 4, Prefix: "SEQ-"}
	value, err := svc.Next(context.Background(), "jobs", "batch", opts)
	if err != nil {
		t.Fatalf("Next returned error: %v", err)
	}
	if value.Formatted != "SEQ-0001" {
		t.Fatalf("expected SEQ-0001, got %q", value.Formatted)
	}
	if _, err := svc.Next(context.Background(), "jobs", "batch", opts); err != nil {
		t.Fatalf("Next returned error: %v", err)
	}
	if configured != 1 {
		t.Fatalf("expected configuration exactly once, got %d", configured)
	}
}
