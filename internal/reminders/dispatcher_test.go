package reminders

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"rassrochka_app/internal/models"
	"rassrochka_app/internal/reminders/mocks"
)

const (
	testManager = "manager-1"
	testChatID  = "79991234567@c.us"
)

var testNow = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

// memStore keeps tenants in memory and hands out copies, the way a real
// store returns freshly decoded blobs.
type memStore struct {
	mu          sync.Mutex
	settings    []models.WhatsAppSettings
	sales       map[string][]models.Sale
	customers   map[string][]models.Customer
	settingsErr error
	salesErr    error
	marks       int
}

func newMemStore() *memStore {
	return &memStore{
		sales:     make(map[string][]models.Sale),
		customers: make(map[string][]models.Customer),
	}
}

func (s *memStore) ListEnabledSettings(ctx context.Context) ([]models.WhatsAppSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settingsErr != nil {
		return nil, s.settingsErr
	}
	return append([]models.WhatsAppSettings(nil), s.settings...), nil
}

func (s *memStore) ListSales(ctx context.Context, managerID string) ([]models.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.salesErr != nil {
		return nil, s.salesErr
	}
	out := make([]models.Sale, 0, len(s.sales[managerID]))
	for _, sale := range s.sales[managerID] {
		sale.PaymentPlan = append([]models.Payment(nil), sale.PaymentPlan...)
		out = append(out, sale)
	}
	return out, nil
}

func (s *memStore) ListCustomers(ctx context.Context, managerID string) ([]models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Customer(nil), s.customers[managerID]...), nil
}

func (s *memStore) MarkNotified(ctx context.Context, managerID, saleID, paymentID, day string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.sales[managerID] {
		sale := &s.sales[managerID][i]
		if sale.ID != saleID {
			continue
		}
		for j := range sale.PaymentPlan {
			if sale.PaymentPlan[j].ID == paymentID {
				sale.PaymentPlan[j].LastNotificationDate = day
				s.marks++
				return nil
			}
		}
	}
	return models.ErrPaymentNotFound
}

func (s *memStore) payment(saleID, paymentID string) models.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sale := range s.sales[testManager] {
		if sale.ID != saleID {
			continue
		}
		for _, p := range sale.PaymentPlan {
			if p.ID == paymentID {
				return p
			}
		}
	}
	return models.Payment{}
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
	err  error
}

func (l *fakeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if l.held == nil {
		l.held = make(map[string]bool)
	}
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func tenantSettings(days ...int) models.WhatsAppSettings {
	return models.WhatsAppSettings{
		ManagerID:        testManager,
		Enabled:          true,
		IDInstance:       "1101000001",
		APITokenInstance: "token",
		ReminderTime:     "09:00",
		ReminderDays:     days,
	}
}

func seedTenant(store *memStore, settings models.WhatsAppSettings, plan ...models.Payment) {
	store.settings = append(store.settings, settings)
	store.customers[settings.ManagerID] = []models.Customer{
		{ID: "cust-1", Name: "Анна", Phone: "8 (999) 123-45-67"},
	}
	store.sales[settings.ManagerID] = []models.Sale{{
		ID:          "sale-1",
		CustomerID:  "cust-1",
		ProductName: "Телевизор",
		Status:      models.SaleStatusActive,
		PaymentPlan: plan,
	}}
}

func newTestDispatcher(store Store, sender Sender, locker Locker) *Dispatcher {
	return NewDispatcher(store, sender, locker, Options{
		Location:             time.UTC,
		Phone:                PhoneNormalizer{CountryCode: "7", TrunkPrefix: "8"},
		MaxConcurrentTenants: 2,
		Now:                  func() time.Time { return testNow },
	})
}

func TestDispatcher_DueTodaySentOncePerDay(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockSender(ctrl)

	store := newMemStore()
	seedTenant(store, tenantSettings(models.ReminderOffsetDueDay),
		models.Payment{ID: "p1", Date: "2026-10-16", Amount: 5000},
	)

	creds := models.GreenAPICredentials{IDInstance: "1101000001", APITokenInstance: "token"}
	sender.EXPECT().
		Send(gomock.Any(), creds, testChatID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ models.GreenAPICredentials, _ string, text string) error {
			assert.Contains(t, text, "Анна")
			assert.Contains(t, text, "5 000 ₽")
			assert.Contains(t, text, "16.10.2026")
			return nil
		}).
		Times(1)

	d := newTestDispatcher(store, sender, nil)

	summary, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, "2026-10-16", store.payment("sale-1", "p1").LastNotificationDate)

	// same day, second cycle: nothing goes out
	summary, err = d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Sent)
	assert.Equal(t, 1, store.marks)
}

func TestDispatcher_OverdueIncludesPriorDebt(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockSender(ctrl)

	store := newMemStore()
	seedTenant(store, tenantSettings(models.ReminderOffsetOverdue),
		models.Payment{ID: "p1", Date: "2026-08-11", Amount: 1000},
		models.Payment{ID: "p2", Date: "2026-09-11", Amount: 2000},
		models.Payment{ID: "p3", Date: "2026-10-11", Amount: 5000},
		models.Payment{ID: "p4", Date: "2026-11-11", Amount: 5000},
	)

	var (
		mu    sync.Mutex
		texts []string
	)
	sender.EXPECT().
		Send(gomock.Any(), gomock.Any(), testChatID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ models.GreenAPICredentials, _ string, text string) error {
			mu.Lock()
			texts = append(texts, text)
			mu.Unlock()
			return nil
		}).
		Times(3)

	summary, err := newTestDispatcher(store, sender, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Sent)

	var latest string
	for _, text := range texts {
		if strings.Contains(text, "11.10.2026") {
			latest = text
		}
		assert.NotContains(t, text, "{")
	}
	require.NotEmpty(t, latest)
	assert.Contains(t, latest, "Задолженность по прошлым платежам: 3 000 ₽ (1 мес.)")
	assert.Contains(t, latest, "Итого к оплате: 8 000 ₽")

	assert.Empty(t, store.payment("sale-1", "p4").LastNotificationDate)
}

func TestDispatcher_DayBeforeOffset(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockSender(ctrl)

	store := newMemStore()
	seedTenant(store, tenantSettings(models.ReminderOffsetDayBefore),
		models.Payment{ID: "yesterday", Date: "2026-10-15", Amount: 1000},
		models.Payment{ID: "tomorrow", Date: "2026-10-17", Amount: 1000},
		models.Payment{ID: "week-ago", Date: "2026-10-09", Amount: 1000},
	)

	sender.EXPECT().Send(gomock.Any(), gomock.Any(), testChatID, gomock.Any()).Return(nil).Times(1)

	summary, err := newTestDispatcher(store, sender, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, "2026-10-16", store.payment("sale-1", "yesterday").LastNotificationDate)
	assert.Empty(t, store.payment("sale-1", "tomorrow").LastNotificationDate)
	assert.Empty(t, store.payment("sale-1", "week-ago").LastNotificationDate)
}

func TestDispatcher_PaidAndFutureNeverSent(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockSender(ctrl)

	store := newMemStore()
	seedTenant(store, tenantSettings(models.ReminderOffsetDayBefore, models.ReminderOffsetDueDay, models.ReminderOffsetOverdue),
		models.Payment{ID: "paid", Date: "2026-09-16", Amount: 1000, IsPaid: true, PaidDate: "2026-09-16"},
		models.Payment{ID: "paid-today", Date: "2026-10-16", Amount: 1000, IsPaid: true},
		models.Payment{ID: "future", Date: "2026-11-16", Amount: 1000},
	)

	sender.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	summary, err := newTestDispatcher(store, sender, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 0, summary.Sent)
}

func TestDispatcher_TenantGating(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.WhatsAppSettings)
	}{
		{"disabled", func(s *models.WhatsAppSettings) { s.Enabled = false }},
		{"missing token", func(s *models.WhatsAppSettings) { s.APITokenInstance = "" }},
		{"other minute", func(s *models.WhatsAppSettings) { s.ReminderTime = "09:01" }},
		{"unparseable time", func(s *models.WhatsAppSettings) { s.ReminderTime = "morning" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			sender := mocks.NewMockSender(ctrl)
			sender.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

			settings := tenantSettings(models.ReminderOffsetDueDay)
			tt.mutate(&settings)

			store := newMemStore()
			seedTenant(store, settings, models.Payment{ID: "p1", Date: "2026-10-16", Amount: 1000})

			summary, err := newTestDispatcher(store, sender, nil).Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 1, summary.Tenants)
			assert.Equal(t, 0, summary.Processed)
		})
	}
}

func TestDispatcher_SendFailureIsIsolated(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockSender(ctrl)

	store := newMemStore()
	seedTenant(store, tenantSettings(models.ReminderOffsetOverdue),
		models.Payment{ID: "p1", Date: "2026-09-16", Amount: 1000},
		models.Payment{ID: "p2", Date: "2026-10-10", Amount: 1000},
	)

	gomock.InOrder(
		sender.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("instance not authorized")),
		sender.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil),
	)

	summary, err := newTestDispatcher(store, sender, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Sent)
	assert.Empty(t, store.payment("sale-1", "p1").LastNotificationDate)
	assert.Equal(t, "2026-10-16", store.payment("sale-1", "p2").LastNotificationDate)
}

func TestDispatcher_InvalidPhoneSkipped(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockSender(ctrl)
	sender.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	store := newMemStore()
	seedTenant(store, tenantSettings(models.ReminderOffsetDueDay),
		models.Payment{ID: "p1", Date: "2026-10-16", Amount: 1000},
	)
	store.customers[testManager][0].Phone = "12-34"

	summary, err := newTestDispatcher(store, sender, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Empty(t, store.payment("sale-1", "p1").LastNotificationDate)
}

func TestDispatcher_OneTenantFailureDoesNotStopOthers(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockSender(ctrl)

	store := newMemStore()
	seedTenant(store, tenantSettings(models.ReminderOffsetDueDay),
		models.Payment{ID: "p1", Date: "2026-10-16", Amount: 1000},
	)

	broken := tenantSettings(models.ReminderOffsetDueDay)
	broken.ManagerID = "manager-2"
	store.settings = append(store.settings, broken)
	store.sales["manager-2"] = []models.Sale{{
		ID:          "sale-2",
		CustomerID:  "ghost",
		Status:      models.SaleStatusActive,
		PaymentPlan: []models.Payment{{ID: "p9", Date: "2026-10-16", Amount: 1000}},
	}}

	sender.EXPECT().Send(gomock.Any(), gomock.Any(), testChatID, gomock.Any()).Return(nil).Times(1)

	summary, err := newTestDispatcher(store, sender, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, 1, summary.Skipped)
}

func TestDispatcher_SettingsLoadFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockSender(ctrl)
	sender.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	store := newMemStore()
	store.settingsErr = errors.New("connection refused")

	_, err := newTestDispatcher(store, sender, nil).Run(context.Background())
	assert.ErrorContains(t, err, "connection refused")
}

func TestDispatcher_LockHeldSkipsTenant(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockSender(ctrl)

	store := newMemStore()
	seedTenant(store, tenantSettings(models.ReminderOffsetDueDay),
		models.Payment{ID: "p1", Date: "2026-10-16", Amount: 1000},
	)

	locker := &fakeLocker{held: map[string]bool{
		"reminders:lock:manager-1:2026-10-16T09:00": true,
	}}
	sender.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	summary, err := newTestDispatcher(store, sender, locker).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Processed)
}

func TestDispatcher_LockErrorFallsThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockSender(ctrl)
	sender.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(1)

	store := newMemStore()
	seedTenant(store, tenantSettings(models.ReminderOffsetDueDay),
		models.Payment{ID: "p1", Date: "2026-10-16", Amount: 1000},
	)

	locker := &fakeLocker{err: errors.New("redis down")}

	summary, err := newTestDispatcher(store, sender, locker).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)
}

func TestDispatcher_CustomTemplate(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockSender(ctrl)

	settings := tenantSettings(models.ReminderOffsetOverdue)
	settings.Templates = &models.MessageTemplates{Overdue: "{name}, долг {total} ₽ {coupon}"}

	store := newMemStore()
	seedTenant(store, settings,
		models.Payment{ID: "p1", Date: "2026-10-01", Amount: 1500},
	)

	sender.EXPECT().
		Send(gomock.Any(), gomock.Any(), testChatID, "Анна, долг 1 500 ₽ {coupon}").
		Return(nil).
		Times(1)

	summary, err := newTestDispatcher(store, sender, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)
}

func TestDispatcher_InactiveSalesIgnored(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockSender(ctrl)
	sender.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	store := newMemStore()
	seedTenant(store, tenantSettings(models.ReminderOffsetOverdue),
		models.Payment{ID: "p1", Date: "2026-09-01", Amount: 1000},
	)
	store.sales[testManager][0].Status = models.SaleStatusDefaulted

	summary, err := newTestDispatcher(store, sender, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Sent)
}

// ctxStore refuses writes on a cancelled context, like a database driver.
type ctxStore struct {
	*memStore
}

func (s ctxStore) MarkNotified(ctx context.Context, managerID, saleID, paymentID, day string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.memStore.MarkNotified(ctx, managerID, saleID, paymentID, day)
}

func TestDispatcher_CancelledAfterSendStillMarks(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockSender(ctrl)

	store := newMemStore()
	seedTenant(store, tenantSettings(models.ReminderOffsetDueDay),
		models.Payment{ID: "p1", Date: "2026-10-16", Amount: 5000},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sender.EXPECT().
		Send(gomock.Any(), gomock.Any(), testChatID, gomock.Any()).
		DoAndReturn(func(sendCtx context.Context, _ models.GreenAPICredentials, _, _ string) error {
			cancel()
			return sendCtx.Err()
		}).
		Times(1)

	d := newTestDispatcher(ctxStore{store}, sender, nil)

	summary, err := d.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, "2026-10-16", store.payment("sale-1", "p1").LastNotificationDate)
}
