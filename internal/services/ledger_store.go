package services

import (
	"context"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rassrochka_app/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrRecordNotFound is returned when a manager has no record with the given ID.
var ErrRecordNotFound = errors.New("record not found")

// LedgerStore keeps every manager's entities as JSON blobs in the records
// table, one row per (manager, type, id).
type LedgerStore struct {
	db *gorm.DB
}

func NewLedgerStore(db *gorm.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// ListEnabledSettings returns the settings of every manager with reminders on.
func (s *LedgerStore) ListEnabledSettings(ctx context.Context) ([]models.WhatsAppSettings, error) {
	var records []models.Record
	err := s.db.WithContext(ctx).
		Where("type = ? AND data->>'enabled' = ?", models.RecordTypeWhatsAppSettings, "true").
		Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(err, "query whatsapp settings")
	}
	return decodeSettings(records)
}

// decodeSettings takes the manager from the row, not the blob.
func decodeSettings(records []models.Record) ([]models.WhatsAppSettings, error) {
	settings := make([]models.WhatsAppSettings, 0, len(records))
	for _, r := range records {
		var ws models.WhatsAppSettings
		if err := json.Unmarshal(r.Data, &ws); err != nil {
			return nil, errors.Wrapf(err, "decode settings of manager %s", r.ManagerID)
		}
		ws.ManagerID = r.ManagerID
		settings = append(settings, ws)
	}
	return settings, nil
}

func (s *LedgerStore) GetSettings(ctx context.Context, managerID string) (*models.WhatsAppSettings, error) {
	var ws models.WhatsAppSettings
	if err := s.get(ctx, managerID, models.RecordTypeWhatsAppSettings, models.SettingsRecordID, &ws); err != nil {
		return nil, err
	}
	ws.ManagerID = managerID
	return &ws, nil
}

func (s *LedgerStore) SaveSettings(ctx context.Context, managerID string, settings models.WhatsAppSettings) error {
	return s.upsert(ctx, managerID, models.RecordTypeWhatsAppSettings, models.SettingsRecordID, settings)
}

func (s *LedgerStore) ListSales(ctx context.Context, managerID string) ([]models.Sale, error) {
	var sales []models.Sale
	if err := listRecords(s, ctx, managerID, models.RecordTypeSales, &sales); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *LedgerStore) GetSale(ctx context.Context, managerID, saleID string) (*models.Sale, error) {
	var sale models.Sale
	if err := s.get(ctx, managerID, models.RecordTypeSales, saleID, &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *LedgerStore) SaveSale(ctx context.Context, managerID string, sale *models.Sale) error {
	return s.upsert(ctx, managerID, models.RecordTypeSales, sale.ID, sale)
}

// UpdateSale re-reads the sale under a row lock, applies fn and writes the
// result back in the same transaction. An error from fn aborts the write.
func (s *LedgerStore) UpdateSale(ctx context.Context, managerID, saleID string, fn func(*models.Sale) error) (*models.Sale, error) {
	var updated models.Sale

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record models.Record
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("manager_id = ? AND type = ? AND id = ?", managerID, models.RecordTypeSales, saleID).
			First(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRecordNotFound
		}
		if err != nil {
			return errors.Wrapf(err, "lock sale %s", saleID)
		}

		if err := json.Unmarshal(record.Data, &updated); err != nil {
			return errors.Wrapf(err, "decode sale %s", saleID)
		}
		if err := fn(&updated); err != nil {
			return err
		}

		data, err := json.Marshal(&updated)
		if err != nil {
			return errors.Wrapf(err, "encode sale %s", saleID)
		}
		return tx.Model(&models.Record{}).
			Where("manager_id = ? AND type = ? AND id = ?", managerID, models.RecordTypeSales, saleID).
			Updates(map[string]interface{}{"data": data, "updated_at": time.Now()}).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// MarkNotified stamps the obligation's last notification day. Only that
// field changes, so a payment recorded concurrently is preserved.
func (s *LedgerStore) MarkNotified(ctx context.Context, managerID, saleID, paymentID, day string) error {
	_, err := s.UpdateSale(ctx, managerID, saleID, markNotified(paymentID, day))
	return err
}

func markNotified(paymentID, day string) func(*models.Sale) error {
	return func(sale *models.Sale) error {
		idx := sale.FindPayment(paymentID)
		if idx < 0 {
			return models.ErrPaymentNotFound
		}
		sale.PaymentPlan[idx].LastNotificationDate = day
		return nil
	}
}

func (s *LedgerStore) ListCustomers(ctx context.Context, managerID string) ([]models.Customer, error) {
	var customers []models.Customer
	if err := listRecords(s, ctx, managerID, models.RecordTypeCustomers, &customers); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *LedgerStore) GetCustomer(ctx context.Context, managerID, customerID string) (*models.Customer, error) {
	var customer models.Customer
	if err := s.get(ctx, managerID, models.RecordTypeCustomers, customerID, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (s *LedgerStore) SaveCustomer(ctx context.Context, managerID string, customer *models.Customer) error {
	return s.upsert(ctx, managerID, models.RecordTypeCustomers, customer.ID, customer)
}

func (s *LedgerStore) get(ctx context.Context, managerID string, typ models.RecordType, id string, dest interface{}) error {
	var record models.Record
	err := s.db.WithContext(ctx).
		Where("manager_id = ? AND type = ? AND id = ?", managerID, typ, id).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRecordNotFound
	}
	if err != nil {
		return errors.Wrapf(err, "load %s/%s", typ, id)
	}
	return errors.Wrapf(json.Unmarshal(record.Data, dest), "decode %s/%s", typ, id)
}

func listRecords[T any](s *LedgerStore, ctx context.Context, managerID string, typ models.RecordType, dest *[]T) error {
	var records []models.Record
	err := s.db.WithContext(ctx).
		Where("manager_id = ? AND type = ?", managerID, typ).
		Order("created_at").
		Find(&records).Error
	if err != nil {
		return errors.Wrapf(err, "list %s", typ)
	}

	out, err := decodeRecords[T](records)
	if err != nil {
		return err
	}
	*dest = out
	return nil
}

func decodeRecords[T any](records []models.Record) ([]T, error) {
	out := make([]T, 0, len(records))
	for _, r := range records {
		var item T
		if err := json.Unmarshal(r.Data, &item); err != nil {
			return nil, errors.Wrapf(err, "decode %s/%s", r.Type, r.ID)
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *LedgerStore) upsert(ctx context.Context, managerID string, typ models.RecordType, id string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "encode %s/%s", typ, id)
	}

	record := models.Record{
		ManagerID: managerID,
		Type:      typ,
		ID:        id,
		Data:      data,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "manager_id"}, {Name: "type"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&record).Error
	return errors.Wrapf(err, "save %s/%s", typ, id)
}

// TaskRunStore persists task execution history.
type TaskRunStore struct {
	db *gorm.DB
}

func NewTaskRunStore(db *gorm.DB) *TaskRunStore {
	return &TaskRunStore{db: db}
}

func (s *TaskRunStore) SaveTaskRun(ctx context.Context, run *models.TaskRun) error {
	return errors.Wrap(s.db.WithContext(ctx).Create(run).Error, "save task run")
}

func (s *TaskRunStore) RecentTaskRuns(ctx context.Context, taskName string, limit int) ([]models.TaskRun, error) {
	var runs []models.TaskRun
	err := s.db.WithContext(ctx).
		Where("task_name = ?", taskName).
		Order("run_at desc").
		Limit(limit).
		Find(&runs).Error
	return runs, errors.Wrap(err, "list task runs")
}
