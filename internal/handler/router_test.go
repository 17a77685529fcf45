package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/upclt/consignado-api/internal/handler"
	"github.com/upclt/consignado-api/internal/infra/observability"
	"github.com/upclt/consignado-api/internal/service"

	"go.uber.org/zap"
)

func newTestRouter() http.Handler {
	svcs := handler.Services{
		Offers: service.NewOfferCalculator(zap.NewNop()),
		Auth:   service.NewAuthService("test-secret"),
	}
	return handler.NewRouter(svcs, observability.NewMetrics(), zap.NewNop())
}

func TestHealthz(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestSimulacao(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/simulacao?margem=500&prazo=36", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Erro   bool `json:"erro"`
		Bancos []struct {
			BancoID      string  `json:"bancoId"`
			ValorParcela float64 `json:"valorParcela"`
			Parcelas     int     `json:"parcelas"`
		} `json:"bancos"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Erro {
		t.Error("expected erro=false")
	}
	if len(resp.Bancos) == 0 {
		t.Fatal("expected offers")
	}
	if resp.Bancos[0].ValorParcela != 500 || resp.Bancos[0].Parcelas != 36 {
		t.Errorf("unexpected offer %+v", resp.Bancos[0])
	}
}

func TestSimulacaoBadParams(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/simulacao?margem=abc&prazo=36", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestSimulacaoPrazos(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/simulacao/prazos", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Prazos []int `json:"prazos"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(resp.Prazos) == 0 {
		t.Error("expected terms")
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := newTestRouter()

	routes := []struct {
		method, path string
	}{
		{http.MethodPost, "/v1/contratacao"},
		{http.MethodGet, "/v1/propostas"},
		{http.MethodPost, "/v1/propostas/atualizar"},
		{http.MethodGet, "/v1/propostas/ocorrencias?codigo_af=af-1"},
		{http.MethodGet, "/v1/admin/propostas"},
	}
	for _, rt := range routes {
		req := httptest.NewRequest(rt.method, rt.path, nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", rt.method, rt.path, rec.Code)
		}

		var resp struct {
			Erro     bool   `json:"erro"`
			Mensagem string `json:"mensagem"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s %s: invalid JSON: %v", rt.method, rt.path, err)
		}
		if !resp.Erro || resp.Mensagem == "" {
			t.Errorf("%s %s: expected {erro:true,mensagem} envelope, got %+v", rt.method, rt.path, resp)
		}
	}
}

func TestGarbageTokenRejected(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/propostas", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}
