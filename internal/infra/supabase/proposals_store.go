package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/upclt/consignado-api/internal/domain"
	"github.com/upclt/consignado-api/internal/infra/resilience"

	"go.opentelemetry.io/otel/attribute"
)

// --- Proposals API (implements port.ProposalStore) ---

// CreateProposal inserts one proposal row. Single attempt: the pipeline
// writes exactly one record per contracting attempt, so an insert is never
// retried (a timeout after a partner-side success must not produce
// duplicates).
func (c *Client) CreateProposal(ctx context.Context, p *domain.Proposal) (*domain.Proposal, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateProposal")
	defer span.End()
	span.SetAttributes(attribute.String("proposal.status", p.Status))

	body, err := c.doPost(ctx, "proposals", p)
	if err != nil {
		return nil, &domain.ErrPersistence{Op: "create proposal", Err: err}
	}

	// return=representation yields the inserted row in a one-element array.
	var rows []domain.Proposal
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, &domain.ErrPersistence{Op: "create proposal", Err: fmt.Errorf("decode inserted row: %w", err)}
	}
	if len(rows) == 0 {
		return nil, &domain.ErrPersistence{Op: "create proposal", Err: fmt.Errorf("insert returned no rows")}
	}
	return &rows[0], nil
}

// ListProposals fetches the proposals owned by one user, newest first.
func (c *Client) ListProposals(ctx context.Context, userID string) ([]domain.Proposal, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListProposals")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	path := fmt.Sprintf("proposals?user_id=eq.%s&order=created_at.desc", url.QueryEscape(userID))
	return c.listProposals(ctx, path)
}

// ListAllProposals fetches every proposal, newest first. Admin surface only.
func (c *Client) ListAllProposals(ctx context.Context) ([]domain.Proposal, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListAllProposals")
	defer span.End()

	return c.listProposals(ctx, "proposals?order=created_at.desc")
}

func (c *Client) listProposals(ctx context.Context, path string) ([]domain.Proposal, error) {
	var proposals []domain.Proposal

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := c.doRequest(ctx, http.MethodGet, path)
			if err != nil {
				return err
			}

			if body == nil || string(body) == "[]" {
				proposals = []domain.Proposal{}
				return nil
			}

			if err := json.Unmarshal(body, &proposals); err != nil {
				return fmt.Errorf("failed to decode proposals: %w", err)
			}
			return nil
		})
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/proposals", Err: err}
	}

	return proposals, nil
}

// UpdatePartnerStatus reconciles partner-reported state onto one proposal.
// After insert only status_facta, status_crivo and updated_at ever change;
// updated_at marks when the row was last reconciled.
func (c *Client) UpdatePartnerStatus(ctx context.Context, proposalID string, patch domain.PartnerStatusPatch) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdatePartnerStatus")
	defer span.End()
	span.SetAttributes(attribute.String("proposal.id", proposalID))

	data := map[string]any{}
	if patch.StatusFacta != "" {
		data["status_facta"] = patch.StatusFacta
	}
	if patch.StatusCrivo != "" {
		data["status_crivo"] = patch.StatusCrivo
	}
	if len(data) == 0 {
		return nil
	}
	data["updated_at"] = time.Now().UTC().Format(time.RFC3339)

	path := fmt.Sprintf("proposals?id=eq.%s", url.QueryEscape(proposalID))
	err := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
		return c.doPatch(ctx, path, data)
	})
	if err != nil {
		return &domain.ErrPersistence{Op: "update partner status", Err: err}
	}
	return nil
}
