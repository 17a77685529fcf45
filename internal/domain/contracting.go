package domain

import (
	"strconv"
	"strings"
)

// Delivery channels accepted by the formalization link step.
const (
	EnvioSMS      = "sms"
	EnvioWhatsApp = "whatsapp"
)

// ContractingRequest carries the full borrower/offer payload for one
// contracting attempt. Fields mirror what the partner requires across the
// four pipeline steps; required vs optional is enforced by Validate so the
// pipeline never builds form data from an untyped bag.
type ContractingRequest struct {
	// Margin / simulation data
	CPF            string  `json:"cpf"`
	DataNascimento string  `json:"dataNascimento"`
	ValorRenda     float64 `json:"valorRenda"`
	Matricula      string  `json:"matricula"`
	CNPJEmpregador string  `json:"cnpjEmpregador,omitempty"`
	DataAdmissao   string  `json:"dataAdmissao,omitempty"`

	// Chosen operation
	CodigoTabela  int     `json:"codigoTabela"`
	Prazo         int     `json:"prazo"`
	ValorOperacao float64 `json:"valorOperacao"`
	ValorParcela  float64 `json:"valorParcela"`
	Coeficiente   string  `json:"coeficiente"`
	BancoID       string  `json:"bancoId"`
	BancoNome     string  `json:"bancoNome"`

	// Personal data
	Nome          string `json:"nome"`
	Sexo          string `json:"sexo"`
	EstadoCivil   string `json:"estadoCivil"`
	RG            string `json:"rg"`
	EstadoRG      string `json:"estadoRg"`
	OrgaoEmissor  string `json:"orgaoEmissor"`
	DataExpedicao string `json:"dataExpedicao"`
	EstadoNatural string `json:"estadoNatural"`
	CidadeNatural string `json:"cidadeNatural"`
	Celular       string `json:"celular"`
	Email         string `json:"email"`

	// Address
	CEP         string `json:"cep"`
	Endereco    string `json:"endereco"`
	Numero      string `json:"numero"`
	Complemento string `json:"complemento,omitempty"`
	Bairro      string `json:"bairro"`
	Cidade      string `json:"cidade"`
	Estado      string `json:"estado"`

	// Parents
	NomeMae string `json:"nomeMae"`
	NomePai string `json:"nomePai,omitempty"`

	// Banking / PIX
	TipoConta    string `json:"tipoConta"`
	Banco        string `json:"banco,omitempty"`
	Agencia      string `json:"agencia,omitempty"`
	Conta        string `json:"conta,omitempty"`
	TipoChavePix string `json:"tipoChavePix"`
	ChavePix     string `json:"chavePix"`

	// Link delivery
	TipoEnvio string `json:"tipoEnvio"`
}

// Validate checks the required fields and the delivery channel. Optional
// fields (complemento, nome_pai, employer data, conventional bank account
// when a PIX key is given) are allowed to be empty.
func (r *ContractingRequest) Validate() error {
	required := []struct {
		field, value string
	}{
		{"cpf", r.CPF},
		{"dataNascimento", r.DataNascimento},
		{"matricula", r.Matricula},
		{"coeficiente", r.Coeficiente},
		{"bancoId", r.BancoID},
		{"bancoNome", r.BancoNome},
		{"nome", r.Nome},
		{"sexo", r.Sexo},
		{"estadoCivil", r.EstadoCivil},
		{"rg", r.RG},
		{"estadoRg", r.EstadoRG},
		{"orgaoEmissor", r.OrgaoEmissor},
		{"dataExpedicao", r.DataExpedicao},
		{"estadoNatural", r.EstadoNatural},
		{"cidadeNatural", r.CidadeNatural},
		{"celular", r.Celular},
		{"email", r.Email},
		{"cep", r.CEP},
		{"endereco", r.Endereco},
		{"numero", r.Numero},
		{"bairro", r.Bairro},
		{"cidade", r.Cidade},
		{"estado", r.Estado},
		{"nomeMae", r.NomeMae},
		{"tipoConta", r.TipoConta},
		{"tipoChavePix", r.TipoChavePix},
		{"chavePix", r.ChavePix},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return &ErrValidation{Field: f.field, Message: "campo obrigatório"}
		}
	}
	if _, err := strconv.ParseFloat(strings.TrimSpace(r.Coeficiente), 64); err != nil {
		return &ErrValidation{Field: "coeficiente", Message: "deve ser numérico"}
	}
	if r.Prazo <= 0 {
		return &ErrValidation{Field: "prazo", Message: "deve ser positivo"}
	}
	if r.ValorOperacao <= 0 {
		return &ErrValidation{Field: "valorOperacao", Message: "deve ser positivo"}
	}
	if r.ValorParcela <= 0 {
		return &ErrValidation{Field: "valorParcela", Message: "deve ser positivo"}
	}
	if r.CodigoTabela <= 0 {
		return &ErrValidation{Field: "codigoTabela", Message: "deve ser positivo"}
	}
	if r.TipoEnvio != EnvioSMS && r.TipoEnvio != EnvioWhatsApp {
		return &ErrValidation{Field: "tipoEnvio", Message: "deve ser 'sms' ou 'whatsapp'"}
	}
	return nil
}

// CoeficienteValue returns the coefficient exactly as submitted to the
// partner, as a number for persistence. Validate guarantees it parses.
func (r *ContractingRequest) CoeficienteValue() float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(r.Coeficiente), 64)
	return v
}

// ContractingResult is the outcome reported to the UI. Etapa is only set on
// step failures; Proposta only on success.
type ContractingResult struct {
	Erro     bool             `json:"erro"`
	Mensagem string           `json:"mensagem"`
	Etapa    string           `json:"etapa,omitempty"`
	Proposta *ProposalSummary `json:"proposta,omitempty"`
}
