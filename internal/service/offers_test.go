package service_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/upclt/consignado-api/internal/domain"
	"github.com/upclt/consignado-api/internal/service"

	"go.uber.org/zap"
)

func TestCoefficientKnownTerms(t *testing.T) {
	cases := map[int]float64{
		5:  0.258812,
		12: 0.153060,
		24: 0.102963,
		36: 0.077260,
	}
	for term, want := range cases {
		if got := service.Coefficient(term); got != want {
			t.Errorf("Coefficient(%d) = %f, want %f", term, got, want)
		}
	}
}

func TestCoefficientUnknownTermFallsBack(t *testing.T) {
	if got := service.Coefficient(7); got != service.Coefficient(service.MaxTerm) {
		t.Errorf("Coefficient(7) = %f, want the %d-month coefficient", got, service.MaxTerm)
	}
	if got := service.Coefficient(0); got != service.Coefficient(service.MaxTerm) {
		t.Errorf("Coefficient(0) = %f, want the %d-month coefficient", got, service.MaxTerm)
	}
}

func TestAvailableTermsSorted(t *testing.T) {
	terms := service.AvailableTerms()
	if len(terms) != 12 {
		t.Fatalf("expected 12 terms, got %d", len(terms))
	}
	for i := 1; i < len(terms); i++ {
		if terms[i] <= terms[i-1] {
			t.Errorf("terms not ascending at index %d: %v", i, terms)
		}
	}
	if terms[len(terms)-1] != service.MaxTerm {
		t.Errorf("longest term = %d, want %d", terms[len(terms)-1], service.MaxTerm)
	}
}

func TestTotalPayable(t *testing.T) {
	cases := []struct {
		installment float64
		term        int
		want        float64
	}{
		{250, 6, 1500},
		{250, 12, 3000},
		{250, 36, 9000},
	}
	for _, c := range cases {
		if got := service.TotalPayable(c.installment, c.term); got != c.want {
			t.Errorf("TotalPayable(%f, %d) = %f, want %f", c.installment, c.term, got, c.want)
		}
	}
}

func TestPrincipalFromInstallmentRoundTrip(t *testing.T) {
	// Deriving the principal and re-applying the coefficient must come back
	// to the installment within rounding tolerance.
	for _, term := range service.AvailableTerms() {
		installment := 412.37
		principal := service.PrincipalFromInstallment(installment, term)
		back := principal * service.Coefficient(term)
		if math.Abs(back-installment) > 0.01 {
			t.Errorf("term %d: round trip %f -> %f -> %f drifts more than a cent", term, installment, principal, back)
		}
	}
}

func TestComputeOffers(t *testing.T) {
	calc := service.NewOfferCalculator(zap.NewNop())

	offers, err := calc.ComputeOffers(context.Background(), 1000, 36)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(offers) == 0 {
		t.Fatal("expected at least one offer")
	}

	// Every catalog bank quotes through the shared table, so the amounts
	// must be identical across offers.
	first := offers[0]
	if first.ValorParcela != 1000 {
		t.Errorf("installment = %f, want the margin itself (1000)", first.ValorParcela)
	}
	wantLiberado := math.Round(1000/service.Coefficient(36)*100) / 100
	for _, o := range offers {
		if o.Parcelas != 36 {
			t.Errorf("bank %s: parcelas = %d, want 36", o.BancoID, o.Parcelas)
		}
		if o.ValorLiberado != wantLiberado {
			t.Errorf("bank %s: valor_liberado = %f, want %f", o.BancoID, o.ValorLiberado, wantLiberado)
		}
		if o.ValorTotal != 36000 {
			t.Errorf("bank %s: valor_total = %f, want 36000", o.BancoID, o.ValorTotal)
		}
	}
}

func TestComputeOffersRejectsBadInput(t *testing.T) {
	calc := service.NewOfferCalculator(zap.NewNop())

	if _, err := calc.ComputeOffers(context.Background(), 0, 12); err == nil {
		t.Error("expected validation error for zero margin")
	}
	if _, err := calc.ComputeOffers(context.Background(), 500, -1); err == nil {
		t.Error("expected validation error for negative term")
	}
	var validation *domain.ErrValidation
	_, err := calc.ComputeOffers(context.Background(), -10, 12)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.As(err, &validation) {
		t.Errorf("expected ErrValidation, got %T", err)
	}
}
