package service

import (
	"context"
	"strings"

	"github.com/upclt/consignado-api/internal/domain"
	"github.com/upclt/consignado-api/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var chatTracer = otel.Tracer("service/chat")

const maxChatMessages = 30

// ChatService fronts the hosted completions gateway for the in-app support
// assistant.
type ChatService struct {
	completer port.ChatCompleter
	logger    *zap.Logger
}

// NewChatService creates a new chat service.
func NewChatService(completer port.ChatCompleter, logger *zap.Logger) *ChatService {
	return &ChatService{completer: completer, logger: logger}
}

// Respond validates the conversation and returns the assistant reply.
func (s *ChatService) Respond(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	ctx, span := chatTracer.Start(ctx, "Chat.Respond")
	defer span.End()

	if len(req.Messages) == 0 {
		return nil, &domain.ErrValidation{Field: "messages", Message: "campo obrigatório"}
	}
	if len(req.Messages) > maxChatMessages {
		return nil, &domain.ErrValidation{Field: "messages", Message: "conversa muito longa"}
	}
	for _, m := range req.Messages {
		if m.Role != "user" && m.Role != "assistant" {
			return nil, &domain.ErrValidation{Field: "messages", Message: "role deve ser 'user' ou 'assistant'"}
		}
		if strings.TrimSpace(m.Content) == "" {
			return nil, &domain.ErrValidation{Field: "messages", Message: "mensagem vazia"}
		}
	}

	reply, err := s.completer.Complete(ctx, req.Messages)
	if err != nil {
		s.logger.Warn("chat completion failed", zap.Error(err))
		return nil, err
	}

	return &domain.ChatResponse{Resposta: reply}, nil
}
