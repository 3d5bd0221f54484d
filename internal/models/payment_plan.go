package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/teambition/rrule-go"
)

// PlanParams describes the financed part of a sale.
type PlanParams struct {
	Principal    float64 // amount left after the down payment
	InterestRate float64 // percent over the whole term
	Installments int
	StartDate    time.Time
	PaymentDay   int // 0 means the day of StartDate
}

// FinancedTotal returns principal plus interest, rounded to cents.
func FinancedTotal(principal, interestRate float64) decimal.Decimal {
	p := decimal.NewFromFloat(principal)
	rate := decimal.NewFromFloat(interestRate).Div(decimal.NewFromInt(100))
	return p.Add(p.Mul(rate)).Round(2)
}

// BuildPaymentPlan generates one obligation per month, starting the month
// after StartDate. Every installment but the last is rounded down to a whole
// currency unit; the last one absorbs the remainder so the plan sums exactly
// to FinancedTotal.
func BuildPaymentPlan(params PlanParams) []Payment {
	n := params.Installments
	if n <= 0 {
		return []Payment{}
	}

	total := FinancedTotal(params.Principal, params.InterestRate)
	base := total.Div(decimal.NewFromInt(int64(n))).Floor()
	last := total.Sub(base.Mul(decimal.NewFromInt(int64(n - 1))))

	day := params.PaymentDay
	if day <= 0 || day > 31 {
		day = params.StartDate.Day()
	}

	months := monthAnchors(params.StartDate, n)
	plan := make([]Payment, 0, n)
	for i, anchor := range months {
		amount := base
		if i == n-1 {
			amount = last
		}
		plan = append(plan, Payment{
			ID:     uuid.New().String(),
			Date:   FormatDay(clampDay(anchor, day)),
			Amount: amount.InexactFloat64(),
		})
	}
	return plan
}

// monthAnchors returns the first day of each of the n months after start.
func monthAnchors(start time.Time, n int) []time.Time {
	first := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location()).AddDate(0, 1, 0)

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.MONTHLY,
		Dtstart: first,
		Count:   n,
	})
	if err == nil {
		if anchors := rule.All(); len(anchors) == n {
			return anchors
		}
	}

	// Fallback keeps the plan total even if the rule cannot be built
	anchors := make([]time.Time, n)
	for i := range anchors {
		anchors[i] = first.AddDate(0, i, 0)
	}
	return anchors
}

// clampDay moves anchor to the given day, or to the month's last day when
// the month is shorter.
func clampDay(anchor time.Time, day int) time.Time {
	lastDay := time.Date(anchor.Year(), anchor.Month()+1, 0, 0, 0, 0, 0, anchor.Location()).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(anchor.Year(), anchor.Month(), day, 0, 0, 0, 0, anchor.Location())
}
