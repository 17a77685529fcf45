package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/upclt/consignado-api/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

// errorResponse is the standard {erro, mensagem} envelope for failures.
type errorResponse struct {
	Erro     bool   `json:"erro"`
	Mensagem string `json:"mensagem"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Erro: true, Mensagem: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var validation *domain.ErrValidation
	var unauthorized *domain.ErrUnauthorized
	var circuitOpen *domain.ErrCircuitOpen
	var configuration *domain.ErrConfiguration
	var upstreamAuth *domain.ErrUpstreamAuth
	var external *domain.ErrExternalService
	var persistence *domain.ErrPersistence

	switch {
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &configuration):
		logger.Error("missing configuration", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "serviço indisponível por erro de configuração")
	case errors.As(err, &upstreamAuth):
		logger.Error("partner auth failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "falha de autenticação com o parceiro")
	case errors.As(err, &external):
		logger.Error("external service error", zap.Error(err))
		writeError(w, http.StatusBadGateway, "falha na comunicação com serviço externo")
	case errors.As(err, &persistence):
		logger.Error("persistence error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "falha ao acessar o banco de dados")
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "erro interno")
	}
}
