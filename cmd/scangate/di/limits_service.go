package di

import (
	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"

	"github.com/dmid-labs/scangate/internal/config"
	"github.com/dmid-labs/scangate/internal/proxy"
)

// ConcurrencyService wraps the global in-flight request limiter.
type ConcurrencyService struct {
	Limiter *proxy.ConcurrencyLimiter
}

// NewConcurrency creates the concurrency limiter and keeps its limit in
// sync across config hot-reloads.
func NewConcurrency(i do.Injector) (*ConcurrencyService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)

	limiter := proxy.NewConcurrencyLimiter(int64(cfgSvc.Get().Server.MaxConcurrent))

	cfgSvc.OnReload(func(newCfg *config.Config) error {
		limiter.SetLimit(int64(newCfg.Server.MaxConcurrent))
		log.Debug().
			Int("max_concurrent", newCfg.Server.MaxConcurrent).
			Msg("concurrency limit updated")
		return nil
	})

	return &ConcurrencyService{Limiter: limiter}, nil
}

// RateLimitService wraps the per-principal rate limiter.
type RateLimitService struct {
	Limiter *proxy.RateLimiter
}

// NewRateLimit creates the rate limiter. It reads limits from live
// configuration on every request, so no reload hook is needed.
func NewRateLimit(i do.Injector) (*RateLimitService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)

	return &RateLimitService{Limiter: proxy.NewRateLimiter(cfgSvc)}, nil
}
