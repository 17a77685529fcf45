package handler

import (
	"encoding/json"
	"net/http"

	"github.com/upclt/consignado-api/internal/domain"
	"github.com/upclt/consignado-api/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Contratação — POST /v1/contratacao
// ============================================================

func contractingHandler(svc *service.ContractingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/contratacao")
		defer span.End()

		userID := UserIDFromContext(ctx)

		var req domain.ContractingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "corpo da requisição inválido")
			return
		}

		result, err := svc.Contract(ctx, userID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		// Step failures are a domain outcome, not a transport failure: the
		// envelope says what went wrong and the response is still 200.
		writeJSON(w, http.StatusOK, result)
	}
}
