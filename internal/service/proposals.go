package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/upclt/consignado-api/internal/domain"
	"github.com/upclt/consignado-api/internal/infra/observability"
	"github.com/upclt/consignado-api/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var proposalsTracer = otel.Tracer("service/proposals")

// ProposalService serves proposal listings and reconciles partner-reported
// statuses on demand. Refresh degrades gracefully: when the partner is
// unreachable the caller still gets the stored records, with a message
// saying the sync did not happen.
type ProposalService struct {
	store          port.ProposalStore
	facta          port.FactaGateway
	cache          port.Cache[[]domain.Proposal]
	metrics        *observability.Metrics
	logger         *zap.Logger
	maxConcurrency int
}

// NewProposalService creates the service with all dependencies injected.
func NewProposalService(store port.ProposalStore, facta port.FactaGateway, cache port.Cache[[]domain.Proposal], metrics *observability.Metrics, logger *zap.Logger, maxConcurrency int) *ProposalService {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &ProposalService{
		store:          store,
		facta:          facta,
		cache:          cache,
		metrics:        metrics,
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}
}

func cacheKey(userID string) string {
	return fmt.Sprintf("proposals:%s", userID)
}

// List returns the user's proposals, newest first, served from cache when
// fresh.
func (s *ProposalService) List(ctx context.Context, userID string) (*domain.ProposalListResult, error) {
	ctx, span := proposalsTracer.Start(ctx, "Proposals.List")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	if cached, ok := s.cache.Get(cacheKey(userID)); ok {
		s.metrics.IncrCacheHit("proposals")
		return &domain.ProposalListResult{Propostas: cached}, nil
	}
	s.metrics.IncrCacheMiss("proposals")

	records, err := s.store.ListProposals(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(cacheKey(userID), records)
	return &domain.ProposalListResult{Propostas: records}, nil
}

// ListAll returns every proposal in the system. Admin surface only; never
// cached.
func (s *ProposalService) ListAll(ctx context.Context) (*domain.ProposalListResult, error) {
	ctx, span := proposalsTracer.Start(ctx, "Proposals.ListAll")
	defer span.End()

	records, err := s.store.ListAllProposals(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.ProposalListResult{Propostas: records}, nil
}

// Refresh reconciles partner statuses onto the user's proposals. Partner
// failures are not errors here: the stored records are returned as-is with
// an informational message.
func (s *ProposalService) Refresh(ctx context.Context, userID string) (*domain.ProposalListResult, error) {
	ctx, span := proposalsTracer.Start(ctx, "Proposals.Refresh")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("proposals_refresh", time.Since(start))
	}()

	records, err := s.store.ListProposals(ctx, userID)
	if err != nil {
		return nil, err
	}

	tracked := make(map[string]string, len(records)) // codigo_af -> proposal id
	codigos := make([]string, 0, len(records))
	for _, r := range records {
		if r.CodigoAF == "" {
			continue
		}
		tracked[r.CodigoAF] = r.ID
		codigos = append(codigos, r.CodigoAF)
	}
	if len(codigos) == 0 {
		return &domain.ProposalListResult{
			Mensagem:  "Nenhuma proposta para atualizar",
			Propostas: records,
		}, nil
	}

	statuses, err := s.facta.QueryProposalStatuses(ctx, codigos)
	if err != nil || statuses.Erro {
		s.metrics.IncrExternalError("facta")
		s.logger.Warn("status sync with partner failed",
			zap.String("user_id", userID),
			zap.Int("proposals", len(codigos)),
			zap.Error(err),
		)
		return &domain.ProposalListResult{
			Mensagem:  "Não foi possível sincronizar com a Facta. Exibindo dados locais.",
			Propostas: records,
		}, nil
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)
	for _, ps := range statuses.Propostas {
		id, ok := tracked[ps.CodigoAF.String()]
		if !ok {
			continue
		}
		patch := domain.PartnerStatusPatch{
			StatusFacta: ps.StatusProposta,
			StatusCrivo: ps.StatusCrivo,
		}
		g.Go(func() error {
			if err := s.store.UpdatePartnerStatus(gCtx, id, patch); err != nil {
				s.logger.Warn("failed to patch partner status",
					zap.String("proposal_id", id),
					zap.Error(err),
				)
			}
			return nil // patch failures never abort the batch
		})
	}
	_ = g.Wait()

	s.cache.Delete(cacheKey(userID))
	refreshed, err := s.store.ListProposals(ctx, userID)
	if err != nil {
		// The patches landed; serve what we had rather than failing.
		s.logger.Warn("re-fetch after refresh failed", zap.Error(err))
		return &domain.ProposalListResult{
			Mensagem:  "Status atualizado com sucesso",
			Propostas: records,
		}, nil
	}
	s.cache.Set(cacheKey(userID), refreshed)

	return &domain.ProposalListResult{
		Mensagem:  "Status atualizado com sucesso",
		Propostas: refreshed,
	}, nil
}

// Occurrences returns the partner's occurrence log for one of the user's
// proposals. Ownership is checked against the user's own records first.
func (s *ProposalService) Occurrences(ctx context.Context, userID, codigoAF string) (json.RawMessage, error) {
	ctx, span := proposalsTracer.Start(ctx, "Proposals.Occurrences")
	defer span.End()
	span.SetAttributes(attribute.String("proposta.codigo_af", codigoAF))

	if codigoAF == "" {
		return nil, &domain.ErrValidation{Field: "codigo_af", Message: "campo obrigatório"}
	}

	records, err := s.store.ListProposals(ctx, userID)
	if err != nil {
		return nil, err
	}
	owned := false
	for _, r := range records {
		if r.CodigoAF == codigoAF {
			owned = true
			break
		}
	}
	if !owned {
		return nil, &domain.ErrNotFound{Resource: "proposta", ID: codigoAF}
	}

	return s.facta.QueryOccurrences(ctx, codigoAF)
}
