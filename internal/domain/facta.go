package domain

import (
	"bytes"
	"encoding/json"
)

// Wire types for the Facta webservice. Every response carries the
// {erro, mensagem} pair; per-step payloads add their correlation ids.

// FlexibleString decodes JSON values that Facta returns sometimes as a
// string and sometimes as a number (id_simulador, codigo_cliente).
type FlexibleString string

func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexibleString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexibleString(n.String())
	return nil
}

func (f FlexibleString) String() string { return string(f) }

// TokenResponse — GET /gera-token (Basic auth).
type TokenResponse struct {
	Erro     bool   `json:"erro"`
	Mensagem string `json:"mensagem"`
	Token    string `json:"token"`
}

// SimulationResponse — POST /proposta/etapa1-simulador.
type SimulationResponse struct {
	Erro        bool           `json:"erro"`
	Mensagem    string         `json:"mensagem"`
	IDSimulador FlexibleString `json:"id_simulador"`
}

// PersonalDataResponse — POST /proposta/etapa2-dados-pessoais.
type PersonalDataResponse struct {
	Erro          bool           `json:"erro"`
	Mensagem      string         `json:"mensagem"`
	CodigoCliente FlexibleString `json:"codigo_cliente"`
}

// ProposalRegisterResponse — POST /proposta/etapa3-proposta-cadastro.
type ProposalRegisterResponse struct {
	Erro            bool           `json:"erro"`
	Mensagem        string         `json:"mensagem"`
	Codigo          FlexibleString `json:"codigo"`
	URLFormalizacao string         `json:"url_formalizacao"`
}

// LinkSendResponse — POST /proposta/envio-link.
type LinkSendResponse struct {
	Erro     bool   `json:"erro"`
	Mensagem string `json:"mensagem"`
}

// PartnerProposalStatus is one row of the batch status query.
type PartnerProposalStatus struct {
	CodigoAF       FlexibleString `json:"codigo_af"`
	StatusProposta string         `json:"status_proposta"`
	StatusCrivo    string         `json:"status_crivo"`
}

// ProposalStatusResponse — GET /proposta/andamento-propostas.
type ProposalStatusResponse struct {
	Erro      bool                    `json:"erro"`
	Mensagem  string                  `json:"mensagem"`
	Propostas []PartnerProposalStatus `json:"propostas"`
}
