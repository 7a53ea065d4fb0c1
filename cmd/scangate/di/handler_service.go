package di

import (
	"net/http"

	"github.com/samber/do/v2"

	"github.com/dmid-labs/scangate/internal/proxy"
)

// HandlerService wraps the HTTP handler.
type HandlerService struct {
	Handler http.Handler
}

// NewHandler creates the HTTP handler with all middleware.
func NewHandler(i do.Injector) (*HandlerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	gateSvc := do.MustInvoke[*GateService](i)
	probeSvc := do.MustInvoke[*ProbeService](i)
	concurrencySvc := do.MustInvoke[*ConcurrencyService](i)
	rateSvc := do.MustInvoke[*RateLimitService](i)

	client := proxy.NewDownstreamClient(cfgSvc, probeSvc.Probe)

	handler := proxy.SetupRoutes(
		cfgSvc,
		gateSvc.Store,
		client,
		concurrencySvc.Limiter,
		rateSvc.Limiter,
		probeSvc.Probe,
	)

	return &HandlerService{Handler: handler}, nil
}
