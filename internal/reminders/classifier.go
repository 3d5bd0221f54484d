package reminders

import (
	"time"

	"github.com/shopspring/decimal"

	"rassrochka_app/internal/models"
)

// PaymentState is the position of an obligation relative to today.
type PaymentState int

const (
	StateNotYetDue PaymentState = iota
	StateDueToday
	StateOverdue
)

func (s PaymentState) String() string {
	switch s {
	case StateDueToday:
		return "due_today"
	case StateOverdue:
		return "overdue"
	default:
		return "not_yet_due"
	}
}

// Classification holds the state and the signed day distance due − today.
type Classification struct {
	State    PaymentState
	DiffDays int
}

// Classify compares calendar days only; both arguments may carry a time.
func Classify(today, due time.Time) Classification {
	diff := models.DaysBetween(today, due)
	switch {
	case diff == 0:
		return Classification{State: StateDueToday, DiffDays: diff}
	case diff < 0:
		return Classification{State: StateOverdue, DiffDays: diff}
	default:
		return Classification{State: StateNotYetDue, DiffDays: diff}
	}
}

// IsEligible applies the manager's offsets. Offset 0 enables due-today
// reminders, -1 enables the diffDays == -1 case only, and 1 enables every
// overdue obligation no matter how late.
func IsEligible(c Classification, settings models.WhatsAppSettings) bool {
	switch c.State {
	case StateDueToday:
		return settings.HasOffset(models.ReminderOffsetDueDay)
	case StateOverdue:
		if settings.HasOffset(models.ReminderOffsetOverdue) {
			return true
		}
		return c.DiffDays == -1 && settings.HasOffset(models.ReminderOffsetDayBefore)
	default:
		return false
	}
}

// Debt is what the customer owes when obligation idx is reminded.
type Debt struct {
	PriorDebt     decimal.Decimal
	Total         decimal.Decimal
	MonthsOverdue int
}

// ComputeDebt sums the other unpaid obligations due strictly before
// plan[idx]. Obligations with unreadable dates are ignored.
func ComputeDebt(plan []models.Payment, idx int, today time.Time) Debt {
	loc := today.Location()
	current := plan[idx]
	amount := decimal.NewFromFloat(current.Amount)

	due, err := models.ParseDay(current.Date, loc)
	if err != nil {
		return Debt{PriorDebt: decimal.Zero, Total: amount}
	}

	prior := decimal.Zero
	for i, p := range plan {
		if i == idx || p.IsPaid {
			continue
		}
		d, err := models.ParseDay(p.Date, loc)
		if err != nil {
			continue
		}
		if d.Before(due) {
			prior = prior.Add(decimal.NewFromFloat(p.Amount))
		}
	}

	debt := Debt{PriorDebt: prior, Total: amount.Add(prior)}
	if prior.IsPositive() {
		debt.MonthsOverdue = MonthsOverdue(today, due)
	}
	return debt
}

// MonthsOverdue counts calendar months between due and today; a zero-month
// gap counts as one month once today's day-of-month is past the due day.
func MonthsOverdue(today, due time.Time) int {
	months := (today.Year()*12 + int(today.Month())) - (due.Year()*12 + int(due.Month()))
	if months == 0 && today.Day() > due.Day() {
		months = 1
	}
	return months
}
