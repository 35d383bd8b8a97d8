package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Pinger is anything whose reachability can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a plain function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// Monitor probes the task store and the optional cache on a cron schedule.
type Monitor struct {
	store Pinger
	cache Pinger

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	cron     *cron.Cron
	logger   *zap.Logger
}

// New builds a monitor. cache may be nil when no cache is configured.
func New(store, cache Pinger, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Monitor{
		store:    store,
		cache:    cache,
		interval: interval,
		cron:     cron.New(cron.WithSeconds()),
		logger:   logger,
	}

	_, _ = m.cron.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()
		m.Refresh(ctx)
	})
	return m
}

// Start probes once and then launches the scheduler.
func (m *Monitor) Start() {
	ctx, cancel := context.WithTimeout(context.Background(), m.interval)
	m.Refresh(ctx)
	cancel()

	m.cron.Start()
	m.logger.Info("health monitor started", zap.Duration("interval", m.interval))
}

// Stop waits for a running probe to finish or for ctx to expire.
func (m *Monitor) Stop(ctx context.Context) {
	stopCtx := m.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	m.logger.Info("health monitor stopped")
}

// IsOnline reports whether the task store answered the last probe.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.Store
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Refresh probes every dependency and records the result.
func (m *Monitor) Refresh(ctx context.Context) Status {
	status := Status{
		Store:        m.check(ctx, "store", m.store, 3*time.Second),
		CacheEnabled: m.cache != nil,
		LastCheck:    time.Now(),
	}
	if m.cache != nil {
		status.Cache = m.check(ctx, "cache", m.cache, 2*time.Second)
	}

	m.mu.Lock()
	previous := m.status
	m.status = status
	m.mu.Unlock()

	if !previous.LastCheck.IsZero() && previous.Store != status.Store {
		m.logger.Info("task store availability changed", zap.Bool("online", status.Store))
	}
	return status
}

func (m *Monitor) check(ctx context.Context, name string, p Pinger, timeout time.Duration) bool {
	if p == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		m.logger.Warn("health probe failed", zap.String("component", name), zap.Error(err))
		return false
	}
	return true
}
