package domain

// ChatMessage is one turn of the assistant conversation, OpenAI-style.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the internal POST /v1/chat payload.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
}

// ChatResponse wraps the assistant reply in the standard envelope.
type ChatResponse struct {
	Erro     bool   `json:"erro"`
	Mensagem string `json:"mensagem,omitempty"`
	Resposta string `json:"resposta,omitempty"`
}
