package background

import (
	"context"
	"log/slog"
	"sync"
	"time"

	pkglogger "github.com/Diego-Toledo1/secure-smart-locker/pkg/logger"
)

// ExpiredReleaser frees lockers whose rental window ended before now.
type ExpiredReleaser interface {
	ReleaseExpired(ctx context.Context, now time.Time) ([]int64, error)
}

// ExpiryManager periodically releases lockers whose rental has expired
type ExpiryManager struct {
	lockers     ExpiredReleaser
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	interval    time.Duration
	now         func() time.Time
	stopCh      chan struct{}
	stopOnce    sync.Once
}

func NewExpiryManager(
	lockers ExpiredReleaser,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
	interval time.Duration,
) *ExpiryManager {
	return &ExpiryManager{
		lockers:     lockers,
		logger:      logger,
		auditLogger: auditLogger,
		interval:    interval,
		now:         time.Now,
		stopCh:      make(chan struct{}),
	}
}

// Start runs a sweep immediately and then once per interval until Stop is
// called or ctx is cancelled. It blocks.
func (em *ExpiryManager) Start(ctx context.Context) {
	ticker := time.NewTicker(em.interval)
	defer ticker.Stop()

	em.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			em.runSweep(ctx)
		case <-em.stopCh:
			em.logger.Info("expiry manager stopped")
			return
		case <-ctx.Done():
			em.logger.Info("expiry manager context cancelled")
			return
		}
	}
}

func (em *ExpiryManager) runSweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	released, err := em.lockers.ReleaseExpired(sweepCtx, em.now())
	if err != nil {
		em.logger.Error("failed to release expired lockers", slog.Any("error", err))
		return
	}

	for _, id := range released {
		em.auditLogger.LogLockerAction(ctx, "expire", id, 0, 0)
	}

	if len(released) > 0 {
		em.logger.Info("expired lockers released", slog.Int("count", len(released)))
	}
}

// Stop signals the expiry manager to stop. It is safe to call more than once.
func (em *ExpiryManager) Stop() {
	em.stopOnce.Do(func() { close(em.stopCh) })
}
