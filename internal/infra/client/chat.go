// Package client holds HTTP clients for auxiliary upstream services.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/upclt/consignado-api/internal/domain"
	"github.com/upclt/consignado-api/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("client")

const assistantSystemPrompt = "Você é um assistente de atendimento de uma plataforma de crédito consignado CLT. " +
	"Responda de forma objetiva e educada, em português, sobre simulação, contratação e acompanhamento de propostas. " +
	"Nunca invente valores de parcela ou taxas: oriente o usuário a usar o simulador."

// ChatClient calls the hosted completions gateway (OpenAI-compatible API).
// Implements port.ChatCompleter.
type ChatClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewChatClient creates a new ChatClient.
func NewChatClient(httpClient *http.Client, baseURL, apiKey, model string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *ChatClient {
	return &ChatClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		cb:         cb,
		cfg:        cfg,
	}
}

type completionsRequest struct {
	Model    string               `json:"model"`
	Messages []domain.ChatMessage `json:"messages"`
}

type completionsResponse struct {
	Choices []struct {
		Message domain.ChatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends the conversation (system prompt prepended) and returns the
// assistant reply.
func (c *ChatClient) Complete(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	ctx, span := tracer.Start(ctx, "ChatClient.Complete")
	defer span.End()
	span.SetAttributes(attribute.Int("chat.messages", len(messages)))

	payload := completionsRequest{
		Model:    c.model,
		Messages: append([]domain.ChatMessage{{Role: "system", Content: assistantSystemPrompt}}, messages...),
	}

	var out completionsResponse

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := json.Marshal(payload)
			if err != nil {
				return err
			}

			url := fmt.Sprintf("%s/v1/chat/completions", c.baseURL)
			httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return err
			}
			httpReq.Header.Set("Content-Type", "application/json")
			httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

			resp, err := c.httpClient.Do(httpReq)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("chat gateway returned status %d", resp.StatusCode)
			}

			return json.NewDecoder(resp.Body).Decode(&out)
		})
	})

	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return "", &domain.ErrCircuitOpen{Service: "chat"}
		}
		return "", &domain.ErrExternalService{Service: "chat", Err: err}
	}

	if len(out.Choices) == 0 {
		return "", &domain.ErrExternalService{Service: "chat", Err: fmt.Errorf("empty completion")}
	}
	return out.Choices[0].Message.Content, nil
}
