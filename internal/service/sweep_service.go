package service

import (
	"context"
	"time"

	"tourops/internal/logger"
	"tourops/internal/metrics"

	"go.uber.org/zap"
)

// Окно, после которого шаг в ожидании подтверждения считается застрявшим.
const staleAwaitingWindow = 24 * time.Hour

// SweepTokenStore — агрегатные выборки по токенам для счетчиков.
type SweepTokenStore interface {
	CountOpen(now time.Time) (int, error)
	CountExpired(now time.Time) (int, error)
}

// SweepStepStore — агрегатные выборки по шагам для счетчиков.
type SweepStepStore interface {
	CountStaleAwaiting(window time.Duration) (int, error)
}

// SweepService — периодический пересчет агрегатных счетчиков "залежалости".
// Пересчет только читает данные, идемпотентен и безопасен при параллельных
// пользовательских изменениях; корректность токенов от него не зависит
// (просрочка проверяется по метке времени при чтении).
type SweepService struct {
	tokens   SweepTokenStore
	steps    SweepStepStore
	interval time.Duration
}

// NewSweepService создает новый сервис пересчета счетчиков.
func NewSweepService(tokens SweepTokenStore, steps SweepStepStore, interval time.Duration) *SweepService {
	return &SweepService{tokens: tokens, steps: steps, interval: interval}
}

// Run запускает цикл пересчета до отмены контекста.
func (s *SweepService) Run(ctx context.Context) {
	s.RefreshOnce()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RefreshOnce()
		}
	}
}

// RefreshOnce выполняет один пересчет счетчиков.
func (s *SweepService) RefreshOnce() {
	now := time.Now()
	if n, err := s.tokens.CountOpen(now); err == nil {
		metrics.OpenTokens.Set(float64(n))
	} else {
		logger.L().Warn("пересчет открытых токенов не удался", zap.Error(err))
	}
	if n, err := s.tokens.CountExpired(now); err == nil {
		metrics.ExpiredTokens.Set(float64(n))
	} else {
		logger.L().Warn("пересчет просроченных токенов не удался", zap.Error(err))
	}
	if n, err := s.steps.CountStaleAwaiting(staleAwaitingWindow); err == nil {
		metrics.StaleAwaitingSteps.Set(float64(n))
	} else {
		logger.L().Warn("пересчет застрявших шагов не удался", zap.Error(err))
	}
}
