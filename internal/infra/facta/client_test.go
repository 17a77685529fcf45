package facta_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/upclt/consignado-api/internal/domain"
	"github.com/upclt/consignado-api/internal/infra/facta"
	"github.com/upclt/consignado-api/internal/infra/resilience"

	"go.uber.org/zap"
)

type stubTokens struct{ token string }

func (s *stubTokens) GetToken(context.Context) (string, error) { return s.token, nil }

func newClient(srv *httptest.Server) *facta.Client {
	return facta.NewClient(
		srv.Client(),
		srv.URL,
		&stubTokens{token: "tok-1"},
		"1024",
		"3",
		"10010",
		resilience.NewCircuitBreaker("facta-test"),
		resilience.NewBulkhead(4),
		zap.NewNop(),
	)
}

func TestCreateSimulationFormEncoding(t *testing.T) {
	var form map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/proposta/etapa1-simulador" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("unexpected Authorization header %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/x-www-form-urlencoded" {
			t.Errorf("unexpected Content-Type %q", got)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		form = map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		fmt.Fprint(w, `{"erro":false,"id_simulador":35012}`)
	}))
	defer srv.Close()

	c := newClient(srv)
	req := &domain.ContractingRequest{
		CPF:            "12345678901",
		DataNascimento: "01/01/1990",
		CodigoTabela:   53722,
		Prazo:          36,
		ValorOperacao:  6472.17,
		ValorParcela:   500,
		Coeficiente:    "0.077260",
	}

	resp, raw, err := c.CreateSimulation(context.Background(), req)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.Erro {
		t.Error("expected erro=false")
	}
	// Numeric partner ids must decode as strings.
	if resp.IDSimulador.String() != "35012" {
		t.Errorf("id_simulador = %q, want 35012", resp.IDSimulador.String())
	}
	if len(raw) == 0 {
		t.Error("expected the raw payload back")
	}

	want := map[string]string{
		"produto":           "D",
		"tipo_operacao":     "13",
		"averbador":         "10010",
		"convenio":          "3",
		"login_certificado": "1024",
		"cpf":               "12345678901",
		"codigo_tabela":     "53722",
		"prazo":             "36",
		"valor_operacao":    "6472.17",
		"valor_parcela":     "500",
		"coeficiente":       "0.077260",
	}
	for k, v := range want {
		if form[k] != v {
			t.Errorf("form[%s] = %q, want %q", k, form[k], v)
		}
	}
}

func TestQueryProposalStatusesBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/proposta/andamento-propostas" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("convenio") != "3" || q.Get("averbador") != "10010" {
			t.Errorf("unexpected query %v", q)
		}
		if q.Get("propostas") != "af-1,af-2" {
			t.Errorf("propostas = %q, want comma-joined batch", q.Get("propostas"))
		}
		fmt.Fprint(w, `{"erro":false,"propostas":[{"codigo_af":"af-1","status_proposta":"PAGO"}]}`)
	}))
	defer srv.Close()

	c := newClient(srv)
	resp, err := c.QueryProposalStatuses(context.Background(), []string{"af-1", "af-2"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(resp.Propostas) != 1 || resp.Propostas[0].StatusProposta != "PAGO" {
		t.Errorf("unexpected parse %+v", resp.Propostas)
	}
}

func TestSavePersonalDataDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		if got := r.PostForm.Get("nome_pai"); got != "NAO DECLARADO" {
			t.Errorf("nome_pai default = %q, want NAO DECLARADO", got)
		}
		if got := r.PostForm.Get("nacionalidade"); got != "1" {
			t.Errorf("nacionalidade = %q, want 1", got)
		}
		if got := r.PostForm.Get("id_simulador"); got != "sim-9" {
			t.Errorf("id_simulador = %q, want sim-9", got)
		}
		fmt.Fprint(w, `{"erro":false,"codigo_cliente":"cli-7"}`)
	}))
	defer srv.Close()

	c := newClient(srv)
	resp, _, err := c.SavePersonalData(context.Background(), &domain.ContractingRequest{}, "sim-9")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.CodigoCliente.String() != "cli-7" {
		t.Errorf("codigo_cliente = %q, want cli-7", resp.CodigoCliente.String())
	}
}
