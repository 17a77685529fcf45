// Package service holds the business logic: offer calculation, the
// contracting pipeline and proposal status synchronization.
package service

import "sort"

// MaxTerm is the longest term quoted and the fallback when an unknown term
// is requested.
const MaxTerm = 36

// coefficientTable maps term (months) to the partner's installment
// coefficient: installment = principal * coefficient. Values are fixed by
// the current Facta convention table.
var coefficientTable = map[int]float64{
	5:  0.258812,
	6:  0.258812,
	8:  0.205558,
	10: 0.173927,
	12: 0.153060,
	14: 0.138306,
	15: 0.132458,
	18: 0.119019,
	20: 0.112470,
	24: 0.102963,
	30: 0.083036,
	36: 0.077260,
}

// Coefficient returns the coefficient for a term. Unknown terms fall back to
// the longest term rather than failing the quote.
func Coefficient(term int) float64 {
	if c, ok := coefficientTable[term]; ok {
		return c
	}
	return coefficientTable[MaxTerm]
}

// AvailableTerms returns every quotable term in ascending order.
func AvailableTerms() []int {
	terms := make([]int, 0, len(coefficientTable))
	for t := range coefficientTable {
		terms = append(terms, t)
	}
	sort.Ints(terms)
	return terms
}
