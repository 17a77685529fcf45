package handler

import (
	"encoding/json"
	"net/http"

	"github.com/upclt/consignado-api/internal/domain"
	"github.com/upclt/consignado-api/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Chat — POST /v1/chat
// ============================================================

func chatHandler(svc *service.ChatService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/chat")
		defer span.End()

		var req domain.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "corpo da requisição inválido")
			return
		}

		resp, err := svc.Respond(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
