package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrPaymentNotFound = errors.New("payment not found in plan")
	ErrSaleNotActive   = errors.New("sale is not active")
)

type SaleStatus string

const (
	SaleStatusActive    SaleStatus = "ACTIVE"
	SaleStatusCompleted SaleStatus = "COMPLETED"
	SaleStatusDefaulted SaleStatus = "DEFAULTED"
)

// Payment is one scheduled installment of a sale.
type Payment struct {
	ID                   string  `json:"id"`
	Date                 string  `json:"date"`
	Amount               float64 `json:"amount"`
	IsPaid               bool    `json:"isPaid"`
	PaidDate             string  `json:"paidDate,omitempty"`
	LastNotificationDate string  `json:"lastNotificationDate,omitempty"`
}

// NotifiedOn reports whether a reminder was already sent on the given day.
func (p Payment) NotifiedOn(day time.Time) bool {
	return p.LastNotificationDate != "" && p.LastNotificationDate == FormatDay(day)
}

// Sale is a credit sale with its payment plan, stored as one blob per sale.
type Sale struct {
	ID              string     `json:"id"`
	CustomerID      string     `json:"customerId"`
	ProductID       string     `json:"productId,omitempty"`
	ProductName     string     `json:"productName"`
	TotalAmount     float64    `json:"totalAmount"`
	DownPayment     float64    `json:"downPayment"`
	RemainingAmount float64    `json:"remainingAmount"`
	InterestRate    float64    `json:"interestRate"`
	Installments    int        `json:"installments"`
	StartDate       string     `json:"startDate"`
	PaymentDay      *int       `json:"paymentDay,omitempty"`
	Status          SaleStatus `json:"status"`
	PaymentPlan     []Payment  `json:"paymentPlan"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// NewSaleInput is what a manager submits when recording a sale.
type NewSaleInput struct {
	CustomerID   string  `json:"customerId"`
	ProductID    string  `json:"productId"`
	ProductName  string  `json:"productName"`
	Price        float64 `json:"price"`
	DownPayment  float64 `json:"downPayment"`
	InterestRate float64 `json:"interestRate"`
	Installments int     `json:"installments"`
	StartDate    string  `json:"startDate"`
	PaymentDay   *int    `json:"paymentDay,omitempty"`
}

func (in NewSaleInput) Validate() error {
	if in.CustomerID == "" {
		return errors.New("customerId is required")
	}
	if in.Price <= 0 {
		return errors.New("price must be positive")
	}
	if in.DownPayment < 0 || in.DownPayment > in.Price {
		return errors.New("downPayment must be between 0 and price")
	}
	if in.InterestRate < 0 {
		return errors.New("interestRate must not be negative")
	}
	if in.PaymentDay != nil && (*in.PaymentDay < 1 || *in.PaymentDay > 31) {
		return errors.New("paymentDay must be between 1 and 31")
	}
	return nil
}

// NewSale validates the input and generates the payment plan.
func NewSale(in NewSaleInput, loc *time.Location, now time.Time) (*Sale, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	start := StartOfDay(now.In(loc))
	if in.StartDate != "" {
		parsed, err := ParseDay(in.StartDate, loc)
		if err != nil {
			return nil, fmt.Errorf("startDate: %w", err)
		}
		start = parsed
	}

	paymentDay := 0
	if in.PaymentDay != nil {
		paymentDay = *in.PaymentDay
	}

	principal := decimal.NewFromFloat(in.Price).Sub(decimal.NewFromFloat(in.DownPayment))
	plan := BuildPaymentPlan(PlanParams{
		Principal:    principal.InexactFloat64(),
		InterestRate: in.InterestRate,
		Installments: in.Installments,
		StartDate:    start,
		PaymentDay:   paymentDay,
	})

	financed := decimal.Zero
	for _, p := range plan {
		financed = financed.Add(decimal.NewFromFloat(p.Amount))
	}

	return &Sale{
		ID:              uuid.New().String(),
		CustomerID:      in.CustomerID,
		ProductID:       in.ProductID,
		ProductName:     in.ProductName,
		TotalAmount:     financed.Add(decimal.NewFromFloat(in.DownPayment)).InexactFloat64(),
		DownPayment:     in.DownPayment,
		RemainingAmount: financed.InexactFloat64(),
		InterestRate:    in.InterestRate,
		Installments:    in.Installments,
		StartDate:       FormatDay(start),
		PaymentDay:      in.PaymentDay,
		Status:          SaleStatusActive,
		PaymentPlan:     plan,
		CreatedAt:       now,
	}, nil
}

// FindPayment returns the index of the obligation with the given ID, or -1.
func (s *Sale) FindPayment(paymentID string) int {
	for i := range s.PaymentPlan {
		if s.PaymentPlan[i].ID == paymentID {
			return i
		}
	}
	return -1
}

// MarkPaid settles one obligation and completes the sale once every
// obligation is paid. Marking an already paid obligation is a no-op.
func (s *Sale) MarkPaid(paymentID string, paidAt time.Time) error {
	if s.Status != SaleStatusActive {
		return ErrSaleNotActive
	}
	idx := s.FindPayment(paymentID)
	if idx < 0 {
		return ErrPaymentNotFound
	}

	p := &s.PaymentPlan[idx]
	if p.IsPaid {
		return nil
	}
	p.IsPaid = true
	p.PaidDate = FormatDay(paidAt)

	remaining := decimal.NewFromFloat(s.RemainingAmount).Sub(decimal.NewFromFloat(p.Amount))
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	s.RemainingAmount = remaining.InexactFloat64()

	if s.allPaid() {
		s.Status = SaleStatusCompleted
		s.RemainingAmount = 0
	}
	return nil
}

// MarkDefaulted stops reminders for a sale the manager gave up on.
func (s *Sale) MarkDefaulted() error {
	if s.Status != SaleStatusActive {
		return ErrSaleNotActive
	}
	s.Status = SaleStatusDefaulted
	return nil
}

func (s *Sale) allPaid() bool {
	for _, p := range s.PaymentPlan {
		if !p.IsPaid {
			return false
		}
	}
	return true
}

// PlanSummary aggregates a sale's plan as of a given day.
type PlanSummary struct {
	PaidCount     int     `json:"paidCount"`
	PaidAmount    float64 `json:"paidAmount"`
	PendingCount  int     `json:"pendingCount"`
	PendingAmount float64 `json:"pendingAmount"`
	OverdueCount  int     `json:"overdueCount"`
	OverdueAmount float64 `json:"overdueAmount"`
}

func (s *Sale) Summary(today time.Time) PlanSummary {
	var summary PlanSummary
	paid, pending, overdue := decimal.Zero, decimal.Zero, decimal.Zero

	for _, p := range s.PaymentPlan {
		amount := decimal.NewFromFloat(p.Amount)
		if p.IsPaid {
			summary.PaidCount++
			paid = paid.Add(amount)
			continue
		}
		due, err := ParseDay(p.Date, today.Location())
		if err == nil && due.Before(StartOfDay(today)) {
			summary.OverdueCount++
			overdue = overdue.Add(amount)
			continue
		}
		summary.PendingCount++
		pending = pending.Add(amount)
	}

	summary.PaidAmount = paid.InexactFloat64()
	summary.PendingAmount = pending.InexactFloat64()
	summary.OverdueAmount = overdue.InexactFloat64()
	return summary
}
