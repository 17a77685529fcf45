// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"encoding/json"

	"github.com/upclt/consignado-api/internal/domain"
)

// TokenSource yields a valid partner bearer token, refreshing it when the
// cached one is about to expire. Implemented by the Facta token cache.
type TokenSource interface {
	GetToken(ctx context.Context) (string, error)
}

// FactaGateway is the partner webservice surface used by the contracting
// pipeline and the status synchronizer. Step methods return the parsed
// response plus the raw payload for the audit snapshot; the error return
// covers transport and credential failures only — a business-level partner
// error comes back as Erro=true in the parsed response.
type FactaGateway interface {
	CreateSimulation(ctx context.Context, req *domain.ContractingRequest) (*domain.SimulationResponse, json.RawMessage, error)
	SavePersonalData(ctx context.Context, req *domain.ContractingRequest, idSimulador string) (*domain.PersonalDataResponse, json.RawMessage, error)
	RegisterProposal(ctx context.Context, codigoCliente, idSimulador string) (*domain.ProposalRegisterResponse, json.RawMessage, error)
	SendFormalizationLink(ctx context.Context, codigoAF, tipoEnvio string) (*domain.LinkSendResponse, json.RawMessage, error)
	QueryProposalStatuses(ctx context.Context, codigosAF []string) (*domain.ProposalStatusResponse, error)
	QueryOccurrences(ctx context.Context, codigoAF string) (json.RawMessage, error)
}

// ProposalStore defines the persistence operations for proposals.
// Implemented by the Supabase adapter (or any other persistence layer).
// CreateProposal is called exactly once per contracting attempt; only
// UpdatePartnerStatus mutates a record afterwards.
type ProposalStore interface {
	CreateProposal(ctx context.Context, p *domain.Proposal) (*domain.Proposal, error)
	ListProposals(ctx context.Context, userID string) ([]domain.Proposal, error)
	ListAllProposals(ctx context.Context) ([]domain.Proposal, error)
	UpdatePartnerStatus(ctx context.Context, proposalID string, patch domain.PartnerStatusPatch) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// ChatCompleter sends a conversation to the hosted LLM gateway and returns
// the assistant reply.
type ChatCompleter interface {
	Complete(ctx context.Context, messages []domain.ChatMessage) (string, error)
}
