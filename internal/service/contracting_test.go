package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/upclt/consignado-api/internal/domain"
	"github.com/upclt/consignado-api/internal/infra/observability"
	"github.com/upclt/consignado-api/internal/service"

	"go.uber.org/zap"
)

// --- Mocks ---

type mockFactaGateway struct {
	simResp  *domain.SimulationResponse
	simErr   error
	pdResp   *domain.PersonalDataResponse
	pdErr    error
	regResp  *domain.ProposalRegisterResponse
	regErr   error
	linkResp *domain.LinkSendResponse
	linkErr  error

	simCalls, pdCalls, regCalls, linkCalls int
	statusCalls                            int
	statusResp                             *domain.ProposalStatusResponse
	statusErr                              error
}

func (m *mockFactaGateway) CreateSimulation(_ context.Context, _ *domain.ContractingRequest) (*domain.SimulationResponse, json.RawMessage, error) {
	m.simCalls++
	return m.simResp, json.RawMessage(`{"step":1}`), m.simErr
}

func (m *mockFactaGateway) SavePersonalData(_ context.Context, _ *domain.ContractingRequest, _ string) (*domain.PersonalDataResponse, json.RawMessage, error) {
	m.pdCalls++
	return m.pdResp, json.RawMessage(`{"step":2}`), m.pdErr
}

func (m *mockFactaGateway) RegisterProposal(_ context.Context, _, _ string) (*domain.ProposalRegisterResponse, json.RawMessage, error) {
	m.regCalls++
	return m.regResp, json.RawMessage(`{"step":3}`), m.regErr
}

func (m *mockFactaGateway) SendFormalizationLink(_ context.Context, _, _ string) (*domain.LinkSendResponse, json.RawMessage, error) {
	m.linkCalls++
	return m.linkResp, json.RawMessage(`{"step":4}`), m.linkErr
}

func (m *mockFactaGateway) QueryProposalStatuses(_ context.Context, _ []string) (*domain.ProposalStatusResponse, error) {
	m.statusCalls++
	return m.statusResp, m.statusErr
}

func (m *mockFactaGateway) QueryOccurrences(_ context.Context, _ string) (json.RawMessage, error) {
	return json.RawMessage(`[]`), nil
}

type mockProposalStore struct {
	mu         sync.Mutex
	created    []*domain.Proposal
	createErr  error
	records    []domain.Proposal
	listErr    error
	patches    map[string]domain.PartnerStatusPatch
	patchErr   error
	listCalls  int
	patchCalls int
}

func (m *mockProposalStore) CreateProposal(_ context.Context, p *domain.Proposal) (*domain.Proposal, error) {
	m.created = append(m.created, p)
	if m.createErr != nil {
		return nil, m.createErr
	}
	stored := *p
	stored.ID = "prop-1"
	return &stored, nil
}

func (m *mockProposalStore) ListProposals(_ context.Context, _ string) ([]domain.Proposal, error) {
	m.listCalls++
	return m.records, m.listErr
}

func (m *mockProposalStore) ListAllProposals(_ context.Context) ([]domain.Proposal, error) {
	return m.records, m.listErr
}

func (m *mockProposalStore) UpdatePartnerStatus(_ context.Context, id string, patch domain.PartnerStatusPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patchCalls++
	if m.patches == nil {
		m.patches = map[string]domain.PartnerStatusPatch{}
	}
	m.patches[id] = patch
	return m.patchErr
}

func validRequest() *domain.ContractingRequest {
	return &domain.ContractingRequest{
		CPF:            "12345678901",
		DataNascimento: "01/01/1990",
		ValorRenda:     3500,
		Matricula:      "MAT-001",
		CodigoTabela:   53722,
		Prazo:          36,
		ValorOperacao:  6472.17,
		ValorParcela:   500,
		Coeficiente:    "0.077260",
		BancoID:        "facta",
		BancoNome:      "Facta Financeira",
		Nome:           "Maria da Silva",
		Sexo:           "F",
		EstadoCivil:    "solteira",
		RG:             "123456789",
		EstadoRG:       "SP",
		OrgaoEmissor:   "SSP",
		DataExpedicao:  "10/10/2010",
		EstadoNatural:  "SP",
		CidadeNatural:  "São Paulo",
		Celular:        "11999998888",
		Email:          "maria@example.com",
		CEP:            "01001000",
		Endereco:       "Praça da Sé",
		Numero:         "100",
		Bairro:         "Sé",
		Cidade:         "São Paulo",
		Estado:         "SP",
		NomeMae:        "Joana da Silva",
		TipoConta:      "corrente",
		TipoChavePix:   "cpf",
		ChavePix:       "12345678901",
		TipoEnvio:      domain.EnvioWhatsApp,
	}
}

func okGateway() *mockFactaGateway {
	return &mockFactaGateway{
		simResp:  &domain.SimulationResponse{IDSimulador: "sim-1"},
		pdResp:   &domain.PersonalDataResponse{CodigoCliente: "cli-1"},
		regResp:  &domain.ProposalRegisterResponse{Codigo: "af-100", URLFormalizacao: "https://facta.example/sign/af-100"},
		linkResp: &domain.LinkSendResponse{},
	}
}

// --- Tests ---

func TestContractSuccess(t *testing.T) {
	gw := okGateway()
	store := &mockProposalStore{}
	svc := service.NewContractingService(gw, store, observability.NewMetrics(), zap.NewNop())

	result, err := svc.Contract(context.Background(), "user-1", validRequest())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if result.Erro {
		t.Errorf("expected erro=false, got true (%s)", result.Mensagem)
	}
	if result.Proposta == nil {
		t.Fatal("expected proposal summary")
	}
	if result.Proposta.CodigoAF != "af-100" {
		t.Errorf("codigo_af = %q, want af-100", result.Proposta.CodigoAF)
	}
	if result.Proposta.Status != domain.StatusAguardandoAssinatura {
		t.Errorf("status = %q, want %q", result.Proposta.Status, domain.StatusAguardandoAssinatura)
	}

	if len(store.created) != 1 {
		t.Fatalf("expected exactly one persisted record, got %d", len(store.created))
	}
	rec := store.created[0]
	if rec.Status != domain.StatusAguardandoAssinatura {
		t.Errorf("record status = %q, want %q", rec.Status, domain.StatusAguardandoAssinatura)
	}
	if rec.UserID != "user-1" {
		t.Errorf("record user_id = %q, want user-1", rec.UserID)
	}
	if rec.IDSimulador != "sim-1" || rec.CodigoCliente != "cli-1" || rec.CodigoAF != "af-100" {
		t.Errorf("partner ids not carried: %+v", rec)
	}
	if rec.Coeficiente != 0.077260 {
		t.Errorf("record coeficiente = %v, want the submitted 0.077260", rec.Coeficiente)
	}

	var snapshot map[string]json.RawMessage
	if err := json.Unmarshal(rec.APIResponse, &snapshot); err != nil {
		t.Fatalf("api_response is not a step snapshot: %v", err)
	}
	for step, want := range map[string]string{
		"simulador": `{"step":1}`,
		"dados":     `{"step":2}`,
		"proposta":  `{"step":3}`,
		"link":      `{"step":4}`,
	} {
		if got := string(snapshot[step]); got != want {
			t.Errorf("snapshot[%q] = %s, want %s", step, got, want)
		}
	}
}

func TestContractSimulationBusinessError(t *testing.T) {
	gw := okGateway()
	gw.simResp = &domain.SimulationResponse{Erro: true, Mensagem: "CPF com restrição"}
	store := &mockProposalStore{}
	svc := service.NewContractingService(gw, store, observability.NewMetrics(), zap.NewNop())

	result, err := svc.Contract(context.Background(), "user-1", validRequest())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !result.Erro {
		t.Error("expected erro=true")
	}
	if result.Etapa != service.StepSimulacao {
		t.Errorf("etapa = %q, want %q", result.Etapa, service.StepSimulacao)
	}
	if result.Mensagem != "CPF com restrição" {
		t.Errorf("mensagem = %q, want the partner message", result.Mensagem)
	}

	if gw.pdCalls != 0 || gw.regCalls != 0 || gw.linkCalls != 0 {
		t.Errorf("later steps must not run after a step-1 failure: pd=%d reg=%d link=%d", gw.pdCalls, gw.regCalls, gw.linkCalls)
	}
	if len(store.created) != 1 {
		t.Fatalf("expected exactly one persisted record, got %d", len(store.created))
	}
	if store.created[0].Status != domain.StatusErroSimulacao {
		t.Errorf("record status = %q, want %q", store.created[0].Status, domain.StatusErroSimulacao)
	}
	if got := string(store.created[0].APIResponse); got != `{"step":1}` {
		t.Errorf("error record api_response = %s, want the rejecting step's body", got)
	}
}

func TestContractPersonalDataFailure(t *testing.T) {
	gw := okGateway()
	gw.pdErr = &domain.ErrExternalService{Service: "facta", Err: errors.New("timeout")}
	store := &mockProposalStore{}
	svc := service.NewContractingService(gw, store, observability.NewMetrics(), zap.NewNop())

	result, err := svc.Contract(context.Background(), "user-1", validRequest())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !result.Erro || result.Etapa != service.StepDados {
		t.Errorf("expected step-2 failure envelope, got %+v", result)
	}
	if gw.regCalls != 0 {
		t.Error("step 3 must not run after a step-2 failure")
	}
	if len(store.created) != 1 || store.created[0].Status != domain.StatusErroDados {
		t.Errorf("expected one erro_dados record, got %+v", store.created)
	}
}

func TestContractLinkFailureIsNonFatal(t *testing.T) {
	gw := okGateway()
	gw.linkResp = &domain.LinkSendResponse{Erro: true, Mensagem: "celular inválido"}
	store := &mockProposalStore{}
	svc := service.NewContractingService(gw, store, observability.NewMetrics(), zap.NewNop())

	result, err := svc.Contract(context.Background(), "user-1", validRequest())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if result.Erro {
		t.Error("link failure must not fail the attempt")
	}
	if result.Proposta == nil || result.Proposta.URLFormalizacao == "" {
		t.Fatal("formalization URL must still be returned")
	}
	if len(store.created) != 1 || store.created[0].Status != domain.StatusAguardandoAssinatura {
		t.Errorf("expected one aguardando_assinatura record, got %+v", store.created)
	}

	// The rejection body still belongs in the audit snapshot.
	var snapshot map[string]json.RawMessage
	if err := json.Unmarshal(store.created[0].APIResponse, &snapshot); err != nil {
		t.Fatalf("api_response is not a step snapshot: %v", err)
	}
	if got := string(snapshot["link"]); got != `{"step":4}` {
		t.Errorf("snapshot[\"link\"] = %s, want the rejection body", got)
	}
}

func TestContractPersistsSubmittedCoefficient(t *testing.T) {
	gw := okGateway()
	store := &mockProposalStore{}
	svc := service.NewContractingService(gw, store, observability.NewMetrics(), zap.NewNop())

	// A bank-specific coefficient must be stored as quoted, not replaced by
	// the shared-table value for the term.
	req := validRequest()
	req.Coeficiente = "0.081000"
	if _, err := svc.Contract(context.Background(), "user-1", req); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(store.created) != 1 || store.created[0].Coeficiente != 0.081 {
		t.Errorf("expected coeficiente 0.081 persisted, got %+v", store.created)
	}
}

func TestContractRejectsNonNumericCoefficient(t *testing.T) {
	gw := okGateway()
	store := &mockProposalStore{}
	svc := service.NewContractingService(gw, store, observability.NewMetrics(), zap.NewNop())

	req := validRequest()
	req.Coeficiente = "abc"
	_, err := svc.Contract(context.Background(), "user-1", req)

	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if validation.Field != "coeficiente" {
		t.Errorf("field = %q, want coeficiente", validation.Field)
	}
	if gw.simCalls != 0 || len(store.created) != 0 {
		t.Error("nothing may be called or written for a garbage coefficient")
	}
}

func TestContractValidationFailureTouchesNothing(t *testing.T) {
	gw := okGateway()
	store := &mockProposalStore{}
	svc := service.NewContractingService(gw, store, observability.NewMetrics(), zap.NewNop())

	req := validRequest()
	req.CPF = ""
	_, err := svc.Contract(context.Background(), "user-1", req)

	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if gw.simCalls != 0 {
		t.Error("partner must not be called for invalid input")
	}
	if len(store.created) != 0 {
		t.Error("no record may be written for invalid input")
	}
}

func TestContractPersistFailureStillReportsOutcome(t *testing.T) {
	gw := okGateway()
	store := &mockProposalStore{createErr: &domain.ErrPersistence{Op: "create proposal", Err: errors.New("down")}}
	svc := service.NewContractingService(gw, store, observability.NewMetrics(), zap.NewNop())

	result, err := svc.Contract(context.Background(), "user-1", validRequest())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Erro {
		t.Error("store failure must not hide the partner-side success")
	}
	if result.Proposta == nil || result.Proposta.CodigoAF != "af-100" {
		t.Errorf("expected summary with codigo_af, got %+v", result.Proposta)
	}
}
