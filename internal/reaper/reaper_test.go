package reaper

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/prepdeck/testprep-service/internal/repositories"
	"github.com/prepdeck/testprep-service/internal/services"
	"github.com/prepdeck/testprep-service/internal/utils"
)

// stubSessionService counts sweep invocations; the other state machine
// methods are never reached from the reaper.
type stubSessionService struct {
	sweeps atomic.Int64
}

func (s *stubSessionService) Start(ctx context.Context, req *services.StartSessionRequest, userID string) (*services.SessionResponse, error) {
	panic("not used by reaper")
}

func (s *stubSessionService) Get(ctx context.Context, testID string, userID string) (*services.GetSessionResponse, error) {
	panic("not used by reaper")
}

func (s *stubSessionService) List(ctx context.Context, userID string, filters repositories.SessionFilters) (*services.SessionListResponse, error) {
	panic("not used by reaper")
}

func (s *stubSessionService) Advance(ctx context.Context, sessionID string, req *services.AdvanceSessionRequest, userID string) error {
	panic("not used by reaper")
}

func (s *stubSessionService) Complete(ctx context.Context, sessionID string, userID string) (*services.SessionStats, error) {
	panic("not used by reaper")
}

func (s *stubSessionService) Abandon(ctx context.Context, sessionID string) error {
	panic("not used by reaper")
}

func (s *stubSessionService) AbandonExpired(ctx context.Context, idleTimeout time.Duration) (int, error) {
	s.sweeps.Add(1)
	return 0, nil
}

func TestReaper_Run(t *testing.T) {
	t.Run("sweeps on interval and stops on cancel", func(t *testing.T) {
		stub := &stubSessionService{}
		r := New(stub, utils.NewDefaultLogger(), time.Hour, 10*time.Millisecond)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			r.Run(ctx)
			close(done)
		}()

		assert.Eventually(t, func() bool {
			return stub.sweeps.Load() >= 2
		}, time.Second, 5*time.Millisecond)

		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("reaper did not stop after cancellation")
		}
	})
}
