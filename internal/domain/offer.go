package domain

// Bank is a partner bank presented to the borrower. Today every bank quotes
// through the same coefficient table, so Coefficients is nil for all of them;
// a bank that negotiates its own table sets it and the calculator picks it up
// without further changes.
type Bank struct {
	ID           string          `json:"id"`
	Nome         string          `json:"nome"`
	Sigla        string          `json:"sigla"`
	TaxaMensal   float64         `json:"taxaMensal"`
	Destaque     string          `json:"destaque,omitempty"`
	Coefficients map[int]float64 `json:"-"`
}

// Offer is a derived quote for one bank. It has no identity beyond its
// inputs and is never stored.
type Offer struct {
	BancoID       string  `json:"bancoId"`
	BancoNome     string  `json:"bancoNome"`
	Sigla         string  `json:"sigla"`
	TaxaMensal    float64 `json:"taxaMensal"`
	Destaque      string  `json:"destaque,omitempty"`
	Parcelas      int     `json:"parcelas"`
	ValorParcela  float64 `json:"valorParcela"`
	ValorLiberado float64 `json:"valorLiberado"`
	ValorTotal    float64 `json:"valorTotal"`
	Coeficiente   float64 `json:"coeficiente"`
}
