package reminders

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"rassrochka_app/internal/models"
)

// Field is a placeholder name usable as {field} inside a template.
type Field string

const (
	FieldName      Field = "name"
	FieldProduct   Field = "product"
	FieldAmount    Field = "amount"
	FieldDate      Field = "date"
	FieldDebt      Field = "debt"
	FieldTotal     Field = "total"
	FieldMonths    Field = "months"
	FieldDebtBlock Field = "debtBlock"
)

var knownFields = map[Field]bool{
	FieldName:      true,
	FieldProduct:   true,
	FieldAmount:    true,
	FieldDate:      true,
	FieldDebt:      true,
	FieldTotal:     true,
	FieldMonths:    true,
	FieldDebtBlock: true,
}

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z]+)\}`)

const (
	DefaultTodayTemplate = "Здравствуйте, {name}!\n\n" +
		"Напоминаем, что сегодня ({date}) день оплаты по рассрочке за «{product}».\n" +
		"Сумма платежа: {amount} ₽{debtBlock}\n\n" +
		"Спасибо, что платите вовремя!"

	DefaultOverdueTemplate = "Здравствуйте, {name}!\n\n" +
		"Платёж по рассрочке за «{product}» на сумму {amount} ₽ со сроком оплаты {date} просрочен.{debtBlock}\n\n" +
		"Пожалуйста, внесите оплату как можно скорее."

	messageDateLayout = "02.01.2006"
)

// TemplateData carries the computed values for one reminder.
type TemplateData struct {
	CustomerName  string
	ProductName   string
	Amount        decimal.Decimal
	DueDate       time.Time
	PriorDebt     decimal.Decimal
	Total         decimal.Decimal
	MonthsOverdue int
}

func (d TemplateData) value(f Field) string {
	switch f {
	case FieldName:
		return d.CustomerName
	case FieldProduct:
		return d.ProductName
	case FieldAmount:
		return FormatAmount(d.Amount)
	case FieldDate:
		if d.DueDate.IsZero() {
			return ""
		}
		return d.DueDate.Format(messageDateLayout)
	case FieldDebt:
		return FormatAmount(d.PriorDebt)
	case FieldTotal:
		return FormatAmount(d.Total)
	case FieldMonths:
		return strconv.Itoa(d.MonthsOverdue)
	case FieldDebtBlock:
		return d.debtBlock()
	}
	return ""
}

func (d TemplateData) debtBlock() string {
	if !d.PriorDebt.IsPositive() {
		return ""
	}
	return fmt.Sprintf("\nЗадолженность по прошлым платежам: %s ₽ (%d мес.)\nИтого к оплате: %s ₽",
		FormatAmount(d.PriorDebt), d.MonthsOverdue, FormatAmount(d.Total))
}

// SelectTemplate picks the manager's custom template for the state, falling
// back to the built-in default when none is set.
func SelectTemplate(state PaymentState, templates *models.MessageTemplates) string {
	if state == StateOverdue {
		if templates != nil && strings.TrimSpace(templates.Overdue) != "" {
			return templates.Overdue
		}
		return DefaultOverdueTemplate
	}
	if templates != nil && strings.TrimSpace(templates.Today) != "" {
		return templates.Today
	}
	return DefaultTodayTemplate
}

// Render substitutes every known placeholder. Unknown {tokens} are left as
// written and returned so the caller can warn about them.
func Render(tmpl string, data TemplateData) (string, []string) {
	var unknown []string
	out := placeholderPattern.ReplaceAllStringFunc(tmpl, func(token string) string {
		name := Field(token[1 : len(token)-1])
		if !knownFields[name] {
			unknown = append(unknown, token)
			return token
		}
		return data.value(name)
	})
	return out, unknown
}

// FormatAmount renders money with space-grouped thousands and a decimal
// comma, dropping the fraction for whole amounts: 12 500, 1 234,50.
func FormatAmount(amount decimal.Decimal) string {
	rounded := amount.Round(2)
	if rounded.IsInteger() {
		return humanize.FormatFloat("# ###.", rounded.InexactFloat64())
	}
	return humanize.FormatFloat("# ###,##", rounded.InexactFloat64())
}
