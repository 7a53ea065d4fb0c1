package di

import "github.com/samber/do/v2"

// RegisterSingletons registers all service providers as singletons.
// Services are registered in dependency order:
// 1. Config (no dependencies)
// 2. Logger (depends on Config)
// 3. VerifyCache (no dependencies)
// 4. Gate (depends on Config, VerifyCache)
// 5. Probe (depends on Config, Logger)
// 6. Concurrency (depends on Config)
// 7. RateLimit (depends on Config)
// 8. Handler (depends on all above services)
// 9. Server (depends on Handler, Config).
func RegisterSingletons(i do.Injector) {
	do.Provide(i, NewConfig)
	do.Provide(i, NewLogger)
	do.Provide(i, NewVerifyCache)
	do.Provide(i, NewGate)
	do.Provide(i, NewProbe)
	do.Provide(i, NewConcurrency)
	do.Provide(i, NewRateLimit)
	do.Provide(i, NewHandler)
	do.Provide(i, NewHTTPServer)
}
