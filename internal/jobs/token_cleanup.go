package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// TokenStore is the slice of the refresh token store the cleanup job needs.
type TokenStore interface {
	DeleteExpiredTokens(ctx context.Context) error
	CleanupRevokedTokens(ctx context.Context) error
}

// TokenCleanup periodically purges refresh tokens that are expired or have
// been revoked for more than a day, keeping the token table from growing
// without bound.
type TokenCleanup struct {
	store    TokenStore
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

// NewTokenCleanup creates a new token cleanup job
func NewTokenCleanup(store TokenStore, logger *slog.Logger, interval time.Duration) *TokenCleanup {
	if interval == 0 {
		interval = 1 * time.Hour
	}
	return &TokenCleanup{
		store:    store,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the cleanup loop
func (j *TokenCleanup) Start() {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return
	}
	j.running = true
	j.mu.Unlock()

	j.wg.Add(1)
	go j.run()
	j.logger.Info("token cleanup started", "interval", j.interval)
}

// Stop gracefully stops the cleanup loop
func (j *TokenCleanup) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	j.running = false
	j.mu.Unlock()

	close(j.stopCh)
	j.wg.Wait()
	j.logger.Info("token cleanup stopped")
}

// run is the main loop
func (j *TokenCleanup) run() {
	defer j.wg.Done()

	// Short delay to let the database connection settle before the first pass
	select {
	case <-time.After(5 * time.Second):
	case <-j.stopCh:
		return
	}
	j.cleanup()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.cleanup()
		case <-j.stopCh:
			return
		}
	}
}

// cleanup performs one purge pass
func (j *TokenCleanup) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := j.store.DeleteExpiredTokens(ctx); err != nil {
		j.logger.Error("failed to delete expired refresh tokens", "error", err)
	}
	if err := j.store.CleanupRevokedTokens(ctx); err != nil {
		j.logger.Error("failed to clean up revoked refresh tokens", "error", err)
	}
}

// RunOnce runs a single cleanup pass (for testing or manual trigger)
func (j *TokenCleanup) RunOnce(ctx context.Context) error {
	if err := j.store.DeleteExpiredTokens(ctx); err != nil {
		return err
	}
	return j.store.CleanupRevokedTokens(ctx)
}

// IsRunning returns whether the job is running
func (j *TokenCleanup) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}
