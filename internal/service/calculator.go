package service

import (
	"math"
)

// Payment is the outcome of an annuity loan calculation.
type Payment struct {
	Monthly     float64
	Total       float64
	Overpayment float64
}

// CalculatorInput is the credit calculator form.
type CalculatorInput struct {
	Amount float64 `form:"amount" validate:"gt=0,lte=100000000"`
	Rate   float64 `form:"rate" validate:"gte=0,lte=100"`
	Months int     `form:"months" validate:"gte=1,lte=600"`
}

// Annuity computes equal monthly payments for a loan of amount at an annual
// percentage rate over months. A zero rate, or one too small to register in
// float64, splits the amount evenly.
func Annuity(in CalculatorInput) (*Payment, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	n := float64(in.Months)
	monthly := in.Amount / n
	if m := in.Rate / 1200; m > 0 {
		if k := math.Pow(1+m, n); k > 1 {
			monthly = in.Amount * m * k / (k - 1)
		}
	}
	total := monthly * n
	return &Payment{
		Monthly:     round2(monthly),
		Total:       round2(total),
		Overpayment: round2(total - in.Amount),
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
