package ports

import "context"

//go:generate mockgen -destination=mocks/mocks.go -package=mocks collateral-ledger/internal/core/ports AssetRegistry,ValueRail,EventSink,EventJournal,IdempotencyCache,LedgerService,SignatureService,TokenService,HealthChecker

// HealthChecker checks external dependency health.
type HealthChecker interface {
	// Ping verifies connectivity. Returns nil if healthy.
	Ping(ctx context.Context) error
	// Name returns the dependency name (e.g., "postgresql", "redis").
	Name() string
}
