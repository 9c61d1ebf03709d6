package service

import (
	"testing"
	"time"

	"tourops/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type sweepCounts struct {
	open    int
	expired int
	stale   int
}

func (s sweepCounts) CountOpen(now time.Time) (int, error)    { return s.open, nil }
func (s sweepCounts) CountExpired(now time.Time) (int, error) { return s.expired, nil }
func (s sweepCounts) CountStaleAwaiting(window time.Duration) (int, error) {
	return s.stale, nil
}

func TestRefreshOnceSetsGauges(t *testing.T) {
	counts := sweepCounts{open: 3, expired: 2, stale: 1}
	svc := NewSweepService(counts, counts, time.Hour)

	svc.RefreshOnce()

	if got := testutil.ToFloat64(metrics.OpenTokens); got != 3 {
		t.Errorf("OpenTokens = %v, ожидалось 3", got)
	}
	if got := testutil.ToFloat64(metrics.ExpiredTokens); got != 2 {
		t.Errorf("ExpiredTokens = %v, ожидалось 2", got)
	}
	if got := testutil.ToFloat64(metrics.StaleAwaitingSteps); got != 1 {
		t.Errorf("StaleAwaitingSteps = %v, ожидалось 1", got)
	}
}
