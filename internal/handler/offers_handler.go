package handler

import (
	"net/http"
	"strconv"

	"github.com/upclt/consignado-api/internal/domain"
	"github.com/upclt/consignado-api/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Simulação — GET /v1/simulacao, GET /v1/simulacao/prazos
// ============================================================

type offersResponse struct {
	Erro   bool           `json:"erro"`
	Bancos []domain.Offer `json:"bancos"`
}

type termsResponse struct {
	Erro   bool  `json:"erro"`
	Prazos []int `json:"prazos"`
}

func offersHandler(calc *service.OfferCalculator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/simulacao")
		defer span.End()

		margin, err := strconv.ParseFloat(r.URL.Query().Get("margem"), 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "parâmetro 'margem' inválido")
			return
		}
		term, err := strconv.Atoi(r.URL.Query().Get("prazo"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "parâmetro 'prazo' inválido")
			return
		}

		offers, err := calc.ComputeOffers(ctx, margin, term)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, offersResponse{Bancos: offers})
	}
}

func termsHandler(calc *service.OfferCalculator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, termsResponse{Prazos: calc.Terms()})
	}
}
