package service

import (
	"context"
	"math"

	"github.com/upclt/consignado-api/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var offersTracer = otel.Tracer("service/offers")

// defaultBanks is the partner bank catalog shown to borrowers. All of them
// currently quote through the shared coefficient table (Coefficients nil).
var defaultBanks = []domain.Bank{
	{ID: "facta", Nome: "Facta Financeira", Sigla: "FACTA", TaxaMensal: 1.80, Destaque: "Liberação mais rápida"},
	{ID: "bmg", Nome: "Banco BMG", Sigla: "BMG", TaxaMensal: 1.85},
	{ID: "safra", Nome: "Banco Safra", Sigla: "SAFRA", TaxaMensal: 1.79, Destaque: "Melhor taxa"},
	{ID: "pan", Nome: "Banco Pan", Sigla: "PAN", TaxaMensal: 1.84},
}

// OfferCalculator derives loan offers from a consignable margin. It is pure
// arithmetic over the coefficient table; nothing here touches the partner.
type OfferCalculator struct {
	banks  []domain.Bank
	logger *zap.Logger
}

// NewOfferCalculator creates the calculator over the default bank catalog.
func NewOfferCalculator(logger *zap.Logger) *OfferCalculator {
	return &OfferCalculator{banks: defaultBanks, logger: logger}
}

// round2 keeps monetary values at two decimal places, rounding half away
// from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// PrincipalFromInstallment inverts the coefficient relation: the released
// amount whose installment equals the given value at the given term.
func PrincipalFromInstallment(installment float64, term int) float64 {
	return round2(installment / Coefficient(term))
}

// TotalPayable is the sum of all installments.
func TotalPayable(installment float64, term int) float64 {
	return round2(installment * float64(term))
}

// Terms lists the quotable terms.
func (c *OfferCalculator) Terms() []int {
	return AvailableTerms()
}

// ComputeOffers quotes every catalog bank for one margin and term. The
// margin is taken as the installment: consignado pricing fixes the
// installment at the consignable margin and derives the released amount
// from it.
func (c *OfferCalculator) ComputeOffers(ctx context.Context, margin float64, term int) ([]domain.Offer, error) {
	_, span := offersTracer.Start(ctx, "OfferCalculator.ComputeOffers")
	defer span.End()
	span.SetAttributes(attribute.Float64("offer.margin", margin), attribute.Int("offer.term", term))

	if margin <= 0 {
		return nil, &domain.ErrValidation{Field: "margem", Message: "deve ser positivo"}
	}
	if term <= 0 {
		return nil, &domain.ErrValidation{Field: "prazo", Message: "deve ser positivo"}
	}

	installment := round2(margin)
	offers := make([]domain.Offer, 0, len(c.banks))
	for _, b := range c.banks {
		coef := Coefficient(term)
		if b.Coefficients != nil {
			if bc, ok := b.Coefficients[term]; ok {
				coef = bc
			}
		}
		offers = append(offers, domain.Offer{
			BancoID:       b.ID,
			BancoNome:     b.Nome,
			Sigla:         b.Sigla,
			TaxaMensal:    b.TaxaMensal,
			Destaque:      b.Destaque,
			Parcelas:      term,
			ValorParcela:  installment,
			ValorLiberado: round2(installment / coef),
			ValorTotal:    TotalPayable(installment, term),
			Coeficiente:   coef,
		})
	}

	c.logger.Debug("offers computed",
		zap.Float64("margin", margin),
		zap.Int("term", term),
		zap.Int("banks", len(offers)),
	)
	return offers, nil
}
