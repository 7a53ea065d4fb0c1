package di

import (
	"sync"

	"github.com/samber/do/v2"

	"github.com/dmid-labs/scangate/internal/health"
)

// ProbeService wraps the downstream readiness probe.
type ProbeService struct {
	Probe     *health.Probe
	started   bool
	startedMu sync.Mutex
}

// NewProbe creates the downstream probe from configuration.
// The probe is created but not started - call Start() after container
// init so the background goroutine outlives construction failures.
func NewProbe(i do.Injector) (*ProbeService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	loggerSvc := do.MustInvoke[*LoggerService](i)

	cfg := cfgSvc.Get()
	check := health.NewHTTPCheck(cfg.Downstream.URL, nil)
	probe := health.NewProbe(check, cfg.Probe, loggerSvc.Logger)

	return &ProbeService{Probe: probe}, nil
}

// Start begins background probing and records that it is running.
func (s *ProbeService) Start() {
	s.startedMu.Lock()
	defer s.startedMu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.Probe.Start()
}

// Shutdown implements do.Shutdowner for graceful probe cleanup.
func (s *ProbeService) Shutdown() error {
	s.startedMu.Lock()
	defer s.startedMu.Unlock()
	if s.started {
		s.Probe.Stop()
		s.started = false
	}
	return nil
}
