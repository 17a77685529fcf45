package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/upclt/consignado-api/internal/domain"
	"github.com/upclt/consignado-api/internal/infra/observability"
	"github.com/upclt/consignado-api/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var contractingTracer = otel.Tracer("service/contracting")

// Pipeline step names, persisted in the result envelope and metrics.
const (
	StepSimulacao = "simulacao"
	StepDados     = "dados_pessoais"
	StepProposta  = "proposta"
	StepLink      = "envio_link"
)

// ContractingService runs the four partner steps of a contracting attempt
// and persists exactly one proposal record per attempt, at the first
// terminal outcome. Steps are single-attempt on purpose: partner-side ids
// are consumed by each step and a blind retry would duplicate state there.
type ContractingService struct {
	facta   port.FactaGateway
	store   port.ProposalStore
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewContractingService creates the pipeline with its dependencies injected.
func NewContractingService(facta port.FactaGateway, store port.ProposalStore, metrics *observability.Metrics, logger *zap.Logger) *ContractingService {
	return &ContractingService{
		facta:   facta,
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
}

// Contract runs one contracting attempt end to end. The returned result is
// always renderable to the caller: step failures come back as
// {erro:true, mensagem, etapa}, not as transport errors.
func (s *ContractingService) Contract(ctx context.Context, userID string, req *domain.ContractingRequest) (*domain.ContractingResult, error) {
	ctx, span := contractingTracer.Start(ctx, "Contracting.Contract")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	if err := req.Validate(); err != nil {
		return nil, err
	}

	attemptID := uuid.NewString()
	span.SetAttributes(attribute.String("contracting.attempt_id", attemptID))
	s.logger.Info("contracting attempt started",
		zap.String("attempt_id", attemptID),
		zap.String("user_id", userID),
		zap.String("banco_id", req.BancoID),
		zap.Int("prazo", req.Prazo),
	)

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("contracting", time.Since(start))
	}()

	draft := s.newDraft(userID, req)

	// --- Step 1: simulation ---
	sim, rawSim, err := s.facta.CreateSimulation(ctx, req)
	if err != nil {
		return s.fail(ctx, draft, StepSimulacao, domain.StatusErroSimulacao, errMessage(err, "Falha ao criar simulação"), nil)
	}
	if sim.Erro {
		return s.fail(ctx, draft, StepSimulacao, domain.StatusErroSimulacao, sim.Mensagem, rawSim)
	}
	draft.IDSimulador = sim.IDSimulador.String()
	s.metrics.IncrPipelineStep(StepSimulacao, "ok")

	// --- Step 2: personal data ---
	pd, rawPD, err := s.facta.SavePersonalData(ctx, req, draft.IDSimulador)
	if err != nil {
		return s.fail(ctx, draft, StepDados, domain.StatusErroDados, errMessage(err, "Falha ao enviar dados pessoais"), nil)
	}
	if pd.Erro {
		return s.fail(ctx, draft, StepDados, domain.StatusErroDados, pd.Mensagem, rawPD)
	}
	draft.CodigoCliente = pd.CodigoCliente.String()
	s.metrics.IncrPipelineStep(StepDados, "ok")

	// --- Step 3: proposal registration ---
	reg, rawReg, err := s.facta.RegisterProposal(ctx, draft.CodigoCliente, draft.IDSimulador)
	if err != nil {
		return s.fail(ctx, draft, StepProposta, domain.StatusErroProposta, errMessage(err, "Falha ao cadastrar proposta"), nil)
	}
	if reg.Erro {
		return s.fail(ctx, draft, StepProposta, domain.StatusErroProposta, reg.Mensagem, rawReg)
	}
	draft.CodigoAF = reg.Codigo.String()
	draft.URLFormalizacao = reg.URLFormalizacao
	s.metrics.IncrPipelineStep(StepProposta, "ok")

	// --- Step 4: formalization link. Non-fatal: the proposal exists on the
	// partner side regardless of whether the link was delivered. ---
	linkMsg := "Link de formalização enviado"
	link, rawLink, err := s.facta.SendFormalizationLink(ctx, draft.CodigoAF, req.TipoEnvio)
	switch {
	case err != nil:
		s.metrics.IncrPipelineStep(StepLink, "error")
		s.logger.Warn("link send failed",
			zap.String("codigo_af", draft.CodigoAF),
			zap.Error(err),
		)
		linkMsg = "Proposta cadastrada, mas o envio do link falhou. Use a URL de formalização."
	case link.Erro:
		s.metrics.IncrPipelineStep(StepLink, "error")
		s.logger.Warn("link send rejected",
			zap.String("codigo_af", draft.CodigoAF),
			zap.String("mensagem", link.Mensagem),
		)
		linkMsg = "Proposta cadastrada, mas o envio do link falhou. Use a URL de formalização."
	default:
		s.metrics.IncrPipelineStep(StepLink, "ok")
	}

	// The audit snapshot of a signed-off attempt keeps every partner
	// response, including a rejected link send.
	snapshot := map[string]json.RawMessage{
		"simulador": rawSim,
		"dados":     rawPD,
		"proposta":  rawReg,
	}
	if rawLink != nil {
		snapshot["link"] = rawLink
	}
	draft.APIResponse = marshalSnapshot(snapshot)

	draft.Status = domain.StatusAguardandoAssinatura
	stored := s.persist(ctx, draft)

	summary := &domain.ProposalSummary{
		CodigoAF:        draft.CodigoAF,
		URLFormalizacao: draft.URLFormalizacao,
		Status:          draft.Status,
	}
	if stored != nil {
		summary.ID = stored.ID
	}

	return &domain.ContractingResult{
		Erro:     false,
		Mensagem: linkMsg,
		Proposta: summary,
	}, nil
}

func (s *ContractingService) newDraft(userID string, req *domain.ContractingRequest) *domain.Proposal {
	return &domain.Proposal{
		UserID:        userID,
		CPF:           req.CPF,
		Nome:          req.Nome,
		Celular:       req.Celular,
		Email:         req.Email,
		BancoID:       req.BancoID,
		BancoNome:     req.BancoNome,
		CodigoTabela:  req.CodigoTabela,
		ValorOperacao: req.ValorOperacao,
		ValorParcela:  req.ValorParcela,
		Parcelas:      req.Prazo,
		Coeficiente:   req.CoeficienteValue(),
	}
}

func marshalSnapshot(steps map[string]json.RawMessage) json.RawMessage {
	b, err := json.Marshal(steps)
	if err != nil {
		return nil
	}
	return b
}

// fail records the terminal failure (metrics + single proposal insert) and
// maps it to the {erro, mensagem, etapa} envelope.
func (s *ContractingService) fail(ctx context.Context, draft *domain.Proposal, step, status, message string, raw json.RawMessage) (*domain.ContractingResult, error) {
	s.metrics.IncrPipelineStep(step, "error")
	if message == "" {
		message = "Erro não especificado pelo parceiro"
	}

	draft.Status = status
	draft.APIResponse = raw
	s.persist(ctx, draft)

	s.logger.Warn("contracting step failed",
		zap.String("step", step),
		zap.String("status", status),
		zap.String("mensagem", message),
	)

	return &domain.ContractingResult{
		Erro:     true,
		Mensagem: message,
		Etapa:    step,
	}, nil
}

// persist writes the single record for this attempt. A store failure is
// logged and swallowed: the partner-side state already exists and the caller
// still needs the outcome.
func (s *ContractingService) persist(ctx context.Context, draft *domain.Proposal) *domain.Proposal {
	stored, err := s.store.CreateProposal(ctx, draft)
	if err != nil {
		s.metrics.IncrExternalError("supabase")
		s.logger.Error("failed to persist proposal",
			zap.String("status", draft.Status),
			zap.String("codigo_af", draft.CodigoAF),
			zap.Error(err),
		)
		return nil
	}
	s.metrics.IncrProposalCreated(draft.Status)
	return stored
}

// errMessage keeps partner auth problems visible to the caller; transport
// noise gets the generic step message.
func errMessage(err error, fallback string) string {
	var ua *domain.ErrUpstreamAuth
	if errors.As(err, &ua) {
		return "Falha de autenticação com o parceiro"
	}
	return fallback
}
