package facta

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/upclt/consignado-api/internal/domain"
	"github.com/upclt/consignado-api/internal/infra/resilience"
	"github.com/upclt/consignado-api/internal/port"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("facta")

// Client implements port.FactaGateway over the Facta webservice. Contracting
// steps are single-attempt calls: no retry, no circuit breaker — a failed
// step terminates the attempt and partner-side ids are not reusable. Only
// the status query goes through the breaker, because it degrades gracefully.
// The bulkhead caps in-flight partner calls across all requests; Facta
// throttles aggressive clients.
type Client struct {
	httpClient       *http.Client
	baseURL          string
	tokens           port.TokenSource
	loginCertificado string
	convenio         string
	averbador        string
	cb               *gobreaker.CircuitBreaker
	bulkhead         *resilience.Bulkhead
	logger           *zap.Logger
}

// NewClient creates the Facta gateway.
func NewClient(httpClient *http.Client, baseURL string, tokens port.TokenSource, loginCertificado, convenio, averbador string, cb *gobreaker.CircuitBreaker, bulkhead *resilience.Bulkhead, logger *zap.Logger) *Client {
	return &Client{
		httpClient:       httpClient,
		baseURL:          baseURL,
		tokens:           tokens,
		loginCertificado: loginCertificado,
		convenio:         convenio,
		averbador:        averbador,
		cb:               cb,
		bulkhead:         bulkhead,
		logger:           logger,
	}
}

// postForm sends one form-encoded POST with the cached bearer token and
// decodes the JSON reply into out. The raw body is returned for the audit
// snapshot. Business errors (erro=true) are NOT errors here.
func (c *Client) postForm(ctx context.Context, path string, form url.Values, out any) (json.RawMessage, error) {
	if err := c.bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.bulkhead.Release()

	token, err := c.tokens.GetToken(ctx)
	if err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s%s", c.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("facta: request failed",
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, &domain.ErrExternalService{Service: "facta" + path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "facta" + path, Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &domain.ErrUpstreamAuth{Message: string(body)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("facta: non-2xx response",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return nil, &domain.ErrExternalService{
			Service: "facta" + path,
			Err:     fmt.Errorf("status %d: %s", resp.StatusCode, string(body)),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return nil, &domain.ErrExternalService{Service: "facta" + path, Err: fmt.Errorf("decode response: %w", err)}
	}

	c.logger.Debug("facta: request OK", zap.String("path", path), zap.Int("status", resp.StatusCode))
	return json.RawMessage(body), nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) (json.RawMessage, error) {
	if err := c.bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.bulkhead.Release()

	token, err := c.tokens.GetToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s%s", c.baseURL, path), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "facta", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "facta", Err: err}
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &domain.ErrUpstreamAuth{Message: string(body)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.ErrExternalService{
			Service: "facta",
			Err:     fmt.Errorf("status %d: %s", resp.StatusCode, string(body)),
		}
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return nil, &domain.ErrExternalService{Service: "facta", Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return json.RawMessage(body), nil
}

// formatAmount renders monetary values the way the partner expects:
// no exponent, no trailing zeros invented beyond the value itself.
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CreateSimulation submits step 1 (etapa1-simulador) and returns the
// simulation id on success.
func (c *Client) CreateSimulation(ctx context.Context, req *domain.ContractingRequest) (*domain.SimulationResponse, json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "Facta.CreateSimulation")
	defer span.End()

	form := url.Values{}
	form.Set("produto", "D")
	form.Set("tipo_operacao", "13")
	form.Set("averbador", c.averbador)
	form.Set("convenio", c.convenio)
	form.Set("cpf", req.CPF)
	form.Set("data_nascimento", req.DataNascimento)
	form.Set("login_certificado", c.loginCertificado)
	form.Set("codigo_tabela", strconv.Itoa(req.CodigoTabela))
	form.Set("prazo", strconv.Itoa(req.Prazo))
	form.Set("valor_operacao", formatAmount(req.ValorOperacao))
	form.Set("valor_parcela", formatAmount(req.ValorParcela))
	form.Set("coeficiente", req.Coeficiente)

	var out domain.SimulationResponse
	raw, err := c.postForm(ctx, "/proposta/etapa1-simulador", form, &out)
	if err != nil {
		return nil, nil, err
	}
	return &out, raw, nil
}

// SavePersonalData submits step 2 (etapa2-dados-pessoais) keyed by the
// simulation id and returns the partner client code.
func (c *Client) SavePersonalData(ctx context.Context, req *domain.ContractingRequest, idSimulador string) (*domain.PersonalDataResponse, json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "Facta.SavePersonalData")
	defer span.End()

	form := url.Values{}
	form.Set("id_simulador", idSimulador)
	form.Set("cpf", req.CPF)
	form.Set("nome", req.Nome)
	form.Set("sexo", req.Sexo)
	form.Set("estado_civil", req.EstadoCivil)
	form.Set("data_nascimento", req.DataNascimento)
	form.Set("rg", req.RG)
	form.Set("estado_rg", req.EstadoRG)
	form.Set("orgao_emissor", req.OrgaoEmissor)
	form.Set("data_expedicao", req.DataExpedicao)
	form.Set("estado_natural", req.EstadoNatural)
	form.Set("cidade_natural", req.CidadeNatural)
	form.Set("nacionalidade", "1")
	form.Set("celular", req.Celular)
	form.Set("renda", formatAmount(req.ValorRenda))
	form.Set("cep", req.CEP)
	form.Set("endereco", req.Endereco)
	form.Set("numero", req.Numero)
	if req.Complemento != "" {
		form.Set("complemento", req.Complemento)
	}
	form.Set("bairro", req.Bairro)
	form.Set("cidade", req.Cidade)
	form.Set("estado", req.Estado)
	form.Set("nome_mae", req.NomeMae)
	if req.NomePai != "" {
		form.Set("nome_pai", req.NomePai)
	} else {
		form.Set("nome_pai", "NAO DECLARADO")
	}
	form.Set("valor_patrimonio", "1")
	form.Set("cliente_iletrado_impossibilitado", "N")
	form.Set("tipo_conta", req.TipoConta)
	if req.Banco != "" {
		form.Set("banco", req.Banco)
		if req.Agencia != "" {
			form.Set("agencia", req.Agencia)
		}
		if req.Conta != "" {
			form.Set("conta", req.Conta)
		}
	}
	form.Set("matricula", req.Matricula)
	form.Set("email", req.Email)
	form.Set("tipo_chave_pix", req.TipoChavePix)
	form.Set("chave_pix", req.ChavePix)
	if req.CNPJEmpregador != "" {
		form.Set("cnpj_empregador", req.CNPJEmpregador)
	}
	if req.DataAdmissao != "" {
		form.Set("data_admissao", req.DataAdmissao)
	}

	var out domain.PersonalDataResponse
	raw, err := c.postForm(ctx, "/proposta/etapa2-dados-pessoais", form, &out)
	if err != nil {
		return nil, nil, err
	}
	return &out, raw, nil
}

// RegisterProposal submits step 3 (etapa3-proposta-cadastro) and returns the
// proposal code (codigo_af) and the formalization URL.
func (c *Client) RegisterProposal(ctx context.Context, codigoCliente, idSimulador string) (*domain.ProposalRegisterResponse, json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "Facta.RegisterProposal")
	defer span.End()

	form := url.Values{}
	form.Set("codigo_cliente", codigoCliente)
	form.Set("id_simulador", idSimulador)

	var out domain.ProposalRegisterResponse
	raw, err := c.postForm(ctx, "/proposta/etapa3-proposta-cadastro", form, &out)
	if err != nil {
		return nil, nil, err
	}
	return &out, raw, nil
}

// SendFormalizationLink submits step 4 (envio-link). A business error here
// is reported back but the caller treats it as non-fatal — the proposal
// already exists on the partner side.
func (c *Client) SendFormalizationLink(ctx context.Context, codigoAF, tipoEnvio string) (*domain.LinkSendResponse, json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "Facta.SendFormalizationLink")
	defer span.End()
	span.SetAttributes(attribute.String("proposta.codigo_af", codigoAF))

	form := url.Values{}
	form.Set("codigo_af", codigoAF)
	form.Set("tipo_envio", tipoEnvio)

	var out domain.LinkSendResponse
	raw, err := c.postForm(ctx, "/proposta/envio-link", form, &out)
	if err != nil {
		return nil, nil, err
	}
	return &out, raw, nil
}

// QueryProposalStatuses fetches the current partner status for a batch of
// proposals in one call (comma-joined codes). Guarded by the circuit
// breaker: the synchronizer degrades gracefully when this fails.
func (c *Client) QueryProposalStatuses(ctx context.Context, codigosAF []string) (*domain.ProposalStatusResponse, error) {
	ctx, span := tracer.Start(ctx, "Facta.QueryProposalStatuses")
	defer span.End()
	span.SetAttributes(attribute.Int("proposta.count", len(codigosAF)))

	q := url.Values{}
	q.Set("convenio", c.convenio)
	q.Set("averbador", c.averbador)
	q.Set("propostas", strings.Join(codigosAF, ","))

	result, err := c.cb.Execute(func() (any, error) {
		var out domain.ProposalStatusResponse
		if _, err := c.getJSON(ctx, "/proposta/andamento-propostas?"+q.Encode(), &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, &domain.ErrCircuitOpen{Service: "facta/andamento-propostas"}
		}
		return nil, err
	}
	return result.(*domain.ProposalStatusResponse), nil
}

// QueryOccurrences fetches the partner's occurrence log for one proposal and
// returns it verbatim — the UI renders whatever Facta reports.
func (c *Client) QueryOccurrences(ctx context.Context, codigoAF string) (json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "Facta.QueryOccurrences")
	defer span.End()

	q := url.Values{}
	q.Set("af", codigoAF)
	return c.getJSON(ctx, "/proposta/consulta-ocorrencias?"+q.Encode(), nil)
}
