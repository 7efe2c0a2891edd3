package service

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/teamops/teamops/internal/service/publisher"
)

// HealthMonitor periodically sweeps every registered publisher's health
// check and caches the latest results for the discovery endpoint.
type HealthMonitor struct {
	registry *publisher.Registry
	logger   *zap.Logger
	cron     *cron.Cron
	spec     string

	mu        sync.RWMutex
	latest    map[string]publisher.Result
	checkedAt time.Time
}

func NewHealthMonitor(registry *publisher.Registry, spec string, logger *zap.Logger) *HealthMonitor {
	return &HealthMonitor{
		registry: registry,
		logger:   logger,
		cron:     cron.New(),
		spec:     spec,
		latest:   make(map[string]publisher.Result),
	}
}

// Start runs one sweep immediately, then on the configured cron spec.
func (m *HealthMonitor) Start() error {
	m.Sweep()
	if _, err := m.cron.AddFunc(m.spec, m.Sweep); err != nil {
		return err
	}
	m.cron.Start()
	m.logger.Info("Publisher health monitor started", zap.String("spec", m.spec))
	return nil
}

func (m *HealthMonitor) Stop() {
	<-m.cron.Stop().Done()
	m.logger.Info("Publisher health monitor stopped")
}

// Sweep runs every publisher's health check once.
func (m *HealthMonitor) Sweep() {
	results := make(map[string]publisher.Result)
	for _, info := range m.registry.List() {
		pub, err := m.registry.Resolve(info.Slug)
		if err != nil {
			continue
		}
		res := pub.HealthCheck()
		results[info.Slug] = res
		if !res.Success {
			m.logger.Warn("Publisher health check failed",
				zap.String("platform", info.Slug),
				zap.String("message", res.Message))
		}
	}

	m.mu.Lock()
	m.latest = results
	m.checkedAt = time.Now().UTC()
	m.mu.Unlock()
}

// Latest returns the most recent sweep results and when they were taken.
func (m *HealthMonitor) Latest() (map[string]publisher.Result, time.Time) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]publisher.Result, len(m.latest))
	for k, v := range m.latest {
		out[k] = v
	}
	return out, m.checkedAt
}
