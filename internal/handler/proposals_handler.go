package handler

import (
	"net/http"

	"github.com/upclt/consignado-api/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Propostas — GET /v1/propostas, POST /v1/propostas/atualizar,
//             GET /v1/propostas/ocorrencias, GET /v1/admin/propostas
// ============================================================

func listProposalsHandler(svc *service.ProposalService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/propostas")
		defer span.End()

		result, err := svc.List(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func refreshProposalsHandler(svc *service.ProposalService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/propostas/atualizar")
		defer span.End()

		result, err := svc.Refresh(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func occurrencesHandler(svc *service.ProposalService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/propostas/ocorrencias")
		defer span.End()

		codigoAF := r.URL.Query().Get("codigo_af")
		raw, err := svc.Occurrences(ctx, UserIDFromContext(ctx), codigoAF)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(raw)
	}
}

func adminListProposalsHandler(svc *service.ProposalService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/admin/propostas")
		defer span.End()

		result, err := svc.ListAll(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}
