package domaincheck

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hitoshi/gameportal/internal/model"
)

// --- モック定義 ---

type mockVerifier struct {
	mu       sync.Mutex
	bindings []*model.DomainBinding
	listErr  error
	results  map[string]model.DomainCheckStatus
	failIDs  map[string]bool
	verified []string

	delay    time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (m *mockVerifier) List(ctx context.Context) ([]*model.DomainBinding, error) {
	return m.bindings, m.listErr
}

func (m *mockVerifier) Verify(ctx context.Context, b *model.DomainBinding) (*model.DomainCheckResult, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	m.mu.Lock()
	m.verified = append(m.verified, b.ID)
	m.mu.Unlock()

	if m.failIDs[b.ID] {
		return nil, errors.New("update failed")
	}
	return &model.DomainCheckResult{Status: m.results[b.ID]}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestNewScheduler_DefaultConcurrency(t *testing.T) {
	s := NewScheduler(&mockVerifier{}, discardLogger(), 0)
	if s.maxConcurrency != 5 {
		t.Errorf("maxConcurrency = %d, want 5", s.maxConcurrency)
	}
}

func TestScheduler_RunOnce_Summary(t *testing.T) {
	v := &mockVerifier{
		bindings: []*model.DomainBinding{
			{ID: "d1", Domain: "games.example.com"},
			{ID: "d2", Domain: "play.example.org"},
			{ID: "d3", Domain: "arcade.example.net"},
			{ID: "d4", Domain: "broken.example.com"},
		},
		results: map[string]model.DomainCheckStatus{
			"d1": model.DomainCheckValid,
			"d2": model.DomainCheckInvalid,
			"d3": model.DomainCheckError,
		},
		failIDs: map[string]bool{"d4": true},
	}
	s := NewScheduler(v, discardLogger(), 2)

	summary, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	want := Summary{Total: 4, Valid: 1, Invalid: 1, Errors: 2}
	if *summary != want {
		t.Errorf("summary = %+v, want %+v", *summary, want)
	}
	if len(v.verified) != 4 {
		t.Errorf("verified %d domains, want 4 (a failure must not stop the cycle)", len(v.verified))
	}
}

func TestScheduler_RunOnce_RespectsConcurrencyLimit(t *testing.T) {
	v := &mockVerifier{delay: 20 * time.Millisecond, results: map[string]model.DomainCheckStatus{}}
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		v.bindings = append(v.bindings, &model.DomainBinding{ID: id, Domain: id + ".example.com"})
	}
	s := NewScheduler(v, discardLogger(), 2)

	if _, err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if peak := v.peak.Load(); peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak)
	}
}

func TestScheduler_RunOnce_ListError(t *testing.T) {
	v := &mockVerifier{listErr: errors.New("db down")}
	s := NewScheduler(v, discardLogger(), 1)

	if _, err := s.RunOnce(context.Background()); err == nil {
		t.Fatal("RunOnce() should return the list error")
	}
}

func TestScheduler_RunOnce_NoDomains(t *testing.T) {
	s := NewScheduler(&mockVerifier{}, discardLogger(), 1)

	summary, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if summary.Total != 0 {
		t.Errorf("Total = %d, want 0", summary.Total)
	}
}

func TestScheduler_Start_StopsOnCancel(t *testing.T) {
	s := NewScheduler(&mockVerifier{}, discardLogger(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx, time.Hour)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestScheduler_Start_NonPositiveIntervalUsesDefault(t *testing.T) {
	s := NewScheduler(&mockVerifier{}, discardLogger(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx, 0)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
