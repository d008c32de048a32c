// Package ingestion wires the ingestion pipeline: posts, identity
// resolution, attribution, interaction upserts, and the stats fast path
// behind one batch service.
package ingestion

import (
	"engage_backend/internal/attribution"
	catalogrepo "engage_backend/internal/catalog/repository"
	"engage_backend/internal/events"
	identityrepo "engage_backend/internal/identity/repository"
	identitysvc "engage_backend/internal/identity/service"
	"engage_backend/internal/ingestion/repository"
	"engage_backend/internal/ingestion/service"
	"engage_backend/internal/stats"
	"engage_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the ingestion bounded context.
type Module struct {
	service *service.Service
}

// NewModule builds the ingestion service and its collaborators. The analysis
// enqueuer is injected because queue wiring lives in the scheduler module.
func NewModule(pool *pgxpool.Pool, statsRepo *stats.Repository, analysis service.AnalysisEnqueuer, bus events.Bus, log *logger.Logger) *Module {
	identity := identitysvc.New(identityrepo.New(), log)
	attributor := attribution.New(attribution.NewRepository(), log)

	svc := service.New(
		repository.NewTxRunner(pool),
		catalogrepo.New(),
		repository.New(),
		identity,
		attributor,
		statsRepo,
		analysis,
		bus,
		log,
	)

	return &Module{service: svc}
}

// Service exposes the batch service to the scheduler worker.
func (m *Module) Service() *service.Service {
	return m.service
}
