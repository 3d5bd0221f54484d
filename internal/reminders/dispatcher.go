package reminders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"rassrochka_app/internal/models"
)

const (
	DefaultSendTimeout = 10 * time.Second
	lockKeyLayout      = "2006-01-02T15:04"
)

// Store is the persistence the dispatcher needs.
type Store interface {
	ListEnabledSettings(ctx context.Context) ([]models.WhatsAppSettings, error)
	ListSales(ctx context.Context, managerID string) ([]models.Sale, error)
	ListCustomers(ctx context.Context, managerID string) ([]models.Customer, error)
	// MarkNotified stamps one obligation's last notification day inside a
	// single-row read-modify-write of the parent sale.
	MarkNotified(ctx context.Context, managerID, saleID, paymentID, day string) error
}

//go:generate mockgen -destination=mocks/mock_sender.go -package=mocks rassrochka_app/internal/reminders Sender

// Sender delivers one text to one chat using a manager's account.
type Sender interface {
	Send(ctx context.Context, creds models.GreenAPICredentials, chatID, text string) error
}

// Locker claims a key for ttl; false means someone else holds it.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type Options struct {
	Location             *time.Location
	Phone                PhoneNormalizer
	MaxConcurrentTenants int
	SendInterval         time.Duration // minimum gap between two sends of one tenant
	SendTimeout          time.Duration
	LockTTL              time.Duration
	Now                  func() time.Time
}

// Summary counts what one dispatch run did.
type Summary struct {
	Tenants   int `json:"tenants"`
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

func (s *Summary) add(o Summary) {
	s.Processed += o.Processed
	s.Sent += o.Sent
	s.Skipped += o.Skipped
	s.Failed += o.Failed
}

// Dispatcher sends due and overdue payment reminders for every tenant whose
// reminder minute is now.
type Dispatcher struct {
	store  Store
	sender Sender
	locker Locker
	opts   Options
}

// NewDispatcher wires the dispatcher. locker may be nil.
func NewDispatcher(store Store, sender Sender, locker Locker, opts Options) *Dispatcher {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.MaxConcurrentTenants <= 0 {
		opts.MaxConcurrentTenants = 1
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = DefaultSendTimeout
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 2 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Dispatcher{store: store, sender: sender, locker: locker, opts: opts}
}

// Run processes all enabled tenants once. It only returns an error when the
// tenant list itself cannot be loaded. A started run is not cancelled by ctx.
func (d *Dispatcher) Run(ctx context.Context) (Summary, error) {
	ctx = context.WithoutCancel(ctx)
	now := d.opts.Now().In(d.opts.Location)

	tenants, err := d.store.ListEnabledSettings(ctx)
	if err != nil {
		logrus.WithError(err).WithField("severity", "critical").Error("Failed to load tenant settings, aborting reminder run")
		return Summary{}, fmt.Errorf("failed to load tenant settings: %w", err)
	}

	summary := Summary{Tenants: len(tenants)}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(d.opts.MaxConcurrentTenants)
	for _, tenant := range tenants {
		tenant := tenant
		g.Go(func() error {
			result := d.processTenant(ctx, tenant, now)
			mu.Lock()
			summary.add(result)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	logrus.WithFields(logrus.Fields{
		"tenants":   summary.Tenants,
		"processed": summary.Processed,
		"sent":      summary.Sent,
		"skipped":   summary.Skipped,
		"failed":    summary.Failed,
	}).Info("Reminder run finished")

	return summary, nil
}

func (d *Dispatcher) processTenant(ctx context.Context, settings models.WhatsAppSettings, now time.Time) (result Summary) {
	logger := logrus.WithField("manager_id", settings.ManagerID)

	defer func() {
		if r := recover(); r != nil {
			logger.WithField("panic", r).Error("Reminder processing panicked for tenant")
			result.Failed++
		}
	}()

	if !settings.Enabled || !settings.HasCredentials() {
		logger.Debug("Reminders disabled or credentials missing, skipping tenant")
		return result
	}
	if !settings.MatchesTime(now) {
		return result
	}

	if d.locker != nil {
		key := fmt.Sprintf("reminders:lock:%s:%s", settings.ManagerID, now.Format(lockKeyLayout))
		acquired, err := d.locker.TryLock(ctx, key, d.opts.LockTTL)
		if err != nil {
			logger.WithError(err).Warn("Failed to acquire reminder lock, continuing without it")
		} else if !acquired {
			logger.Info("Another run already holds this tenant's reminder minute, skipping")
			return result
		}
	}

	result.Processed = 1

	sales, err := d.store.ListSales(ctx, settings.ManagerID)
	if err != nil {
		logger.WithError(err).Error("Failed to load sales")
		result.Failed++
		return result
	}
	customers, err := d.store.ListCustomers(ctx, settings.ManagerID)
	if err != nil {
		logger.WithError(err).Error("Failed to load customers")
		result.Failed++
		return result
	}

	byID := make(map[string]models.Customer, len(customers))
	for _, c := range customers {
		byID[c.ID] = c
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if d.opts.SendInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(d.opts.SendInterval), 1)
	}

	today := models.StartOfDay(now)
	for i := range sales {
		sale := &sales[i]
		if sale.Status != models.SaleStatusActive {
			continue
		}
		customer, hasCustomer := byID[sale.CustomerID]

		for j := range sale.PaymentPlan {
			payment := sale.PaymentPlan[j]
			if payment.IsPaid || payment.NotifiedOn(today) {
				continue
			}

			entry := logger.WithFields(logrus.Fields{
				"sale_id":    sale.ID,
				"payment_id": payment.ID,
			})

			due, err := models.ParseDay(payment.Date, d.opts.Location)
			if err != nil {
				entry.WithError(err).Warn("Unreadable due date, skipping obligation")
				result.Skipped++
				continue
			}

			class := Classify(today, due)
			if !IsEligible(class, settings) {
				continue
			}

			if !hasCustomer || !customer.HasPhone() {
				entry.WithField("customer_id", sale.CustomerID).Warn("Customer missing or has no phone, skipping reminder")
				result.Skipped++
				continue
			}

			switch d.notify(ctx, entry, settings, sale, j, customer, class, due, today, limiter) {
			case outcomeSent:
				result.Sent++
			case outcomeSkipped:
				result.Skipped++
			case outcomeFailed:
				result.Failed++
			}
		}
	}

	return result
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeSkipped
	outcomeFailed
)

func (d *Dispatcher) notify(
	ctx context.Context,
	entry *logrus.Entry,
	settings models.WhatsAppSettings,
	sale *models.Sale,
	idx int,
	customer models.Customer,
	class Classification,
	due, today time.Time,
	limiter *rate.Limiter,
) outcome {
	payment := sale.PaymentPlan[idx]
	debt := ComputeDebt(sale.PaymentPlan, idx, today)

	text, unknown := Render(SelectTemplate(class.State, settings.Templates), TemplateData{
		CustomerName:  customer.Name,
		ProductName:   sale.ProductName,
		Amount:        decimal.NewFromFloat(payment.Amount),
		DueDate:       due,
		PriorDebt:     debt.PriorDebt,
		Total:         debt.Total,
		MonthsOverdue: debt.MonthsOverdue,
	})
	if len(unknown) > 0 {
		entry.WithField("placeholders", unknown).Warn("Template contains unknown placeholders")
	}

	chatID, err := d.opts.Phone.ChatID(customer.Phone)
	if err != nil {
		entry.WithError(err).WithField("customer_id", customer.ID).Warn("Unusable phone number, skipping reminder")
		return outcomeSkipped
	}

	if err := limiter.Wait(ctx); err != nil {
		entry.WithError(err).Error("Reminder run interrupted before send")
		return outcomeFailed
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.opts.SendTimeout)
	err = d.sender.Send(sendCtx, settings.Credentials(), chatID, text)
	cancel()
	if err != nil {
		entry.WithError(err).WithField("chat_id", chatID).Error("Failed to send reminder")
		return outcomeFailed
	}

	day := models.FormatDay(today)
	sale.PaymentPlan[idx].LastNotificationDate = day

	// The message is out; a failed mark may cause one duplicate next cycle.
	if err := d.store.MarkNotified(context.WithoutCancel(ctx), settings.ManagerID, sale.ID, payment.ID, day); err != nil {
		entry.WithError(err).Error("Reminder sent but failed to persist notification mark")
	}

	entry.WithFields(logrus.Fields{
		"chat_id": chatID,
		"state":   class.State.String(),
		"total":   debt.Total.String(),
	}).Info("Reminder sent")
	return outcomeSent
}
