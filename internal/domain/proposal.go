package domain

import "encoding/json"

// Proposal status values. A proposal is written exactly once per contracting
// attempt, at the first terminal outcome; the erro_* statuses record which
// step the attempt died on.
const (
	StatusErroSimulacao        = "erro_simulacao"
	StatusErroDados            = "erro_dados"
	StatusErroProposta         = "erro_proposta"
	StatusAguardandoAssinatura = "aguardando_assinatura"
)

// Proposal is the durable record of a contracting attempt, mapped to the
// proposals table. Partner correlation ids (id_simulador, codigo_cliente,
// codigo_af, url_formalizacao) are filled progressively as steps complete.
type Proposal struct {
	ID              string          `json:"id,omitempty"`
	UserID          string          `json:"user_id"`
	CPF             string          `json:"cpf"`
	Nome            string          `json:"nome"`
	Celular         string          `json:"celular"`
	Email           string          `json:"email"`
	BancoID         string          `json:"banco_id"`
	BancoNome       string          `json:"banco_nome"`
	CodigoTabela    int             `json:"codigo_tabela"`
	ValorOperacao   float64         `json:"valor_operacao"`
	ValorParcela    float64         `json:"valor_parcela"`
	Parcelas        int             `json:"parcelas"`
	Coeficiente     float64         `json:"coeficiente"`
	IDSimulador     string          `json:"id_simulador,omitempty"`
	CodigoCliente   string          `json:"codigo_cliente,omitempty"`
	CodigoAF        string          `json:"codigo_af,omitempty"`
	URLFormalizacao string          `json:"url_formalizacao,omitempty"`
	Status          string          `json:"status"`
	StatusFacta     string          `json:"status_facta,omitempty"`
	StatusCrivo     string          `json:"status_crivo,omitempty"`
	APIResponse     json.RawMessage `json:"api_response,omitempty"`
	CreatedAt       string          `json:"created_at,omitempty"`
	UpdatedAt       string          `json:"updated_at,omitempty"`
}

// PartnerStatusPatch is the only mutation allowed on an existing proposal:
// the status synchronizer reconciling partner-reported state.
type PartnerStatusPatch struct {
	StatusFacta string
	StatusCrivo string
}

// ProposalListResult is the envelope returned by the listing and refresh
// operations. Refresh keeps Erro false even when the partner is unreachable:
// the pre-refresh records are still served and Mensagem says why.
type ProposalListResult struct {
	Erro      bool       `json:"erro"`
	Mensagem  string     `json:"mensagem,omitempty"`
	Propostas []Proposal `json:"propostas"`
}

// ProposalSummary is the trimmed view returned after a successful contracting
// attempt.
type ProposalSummary struct {
	ID              string `json:"id,omitempty"`
	CodigoAF        string `json:"codigoAf"`
	URLFormalizacao string `json:"urlFormalizacao"`
	Status          string `json:"status"`
}
