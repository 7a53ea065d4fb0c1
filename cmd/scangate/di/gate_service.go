package di

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/dmid-labs/scangate/internal/proxy"
	"github.com/dmid-labs/scangate/internal/token"
)

// VerifyCacheService wraps the token verification cache.
type VerifyCacheService struct {
	Cache *token.VerifyCache
}

// NewVerifyCache creates the token signature-verification cache.
func NewVerifyCache(_ do.Injector) (*VerifyCacheService, error) {
	cache, err := token.NewVerifyCache()
	if err != nil {
		return nil, fmt.Errorf("failed to create verify cache: %w", err)
	}
	return &VerifyCacheService{Cache: cache}, nil
}

// Shutdown implements do.Shutdowner for cache cleanup.
func (s *VerifyCacheService) Shutdown() error {
	if s.Cache != nil {
		s.Cache.Close()
	}
	return nil
}

// GateService wraps the live auth state store backing the credential
// gate and the /token exchange.
type GateService struct {
	Store *proxy.AuthStateStore
}

// NewGate creates the auth state store from live configuration.
func NewGate(i do.Injector) (*GateService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	cacheSvc := do.MustInvoke[*VerifyCacheService](i)

	return &GateService{
		Store: proxy.NewAuthStateStore(cfgSvc, cacheSvc.Cache),
	}, nil
}
