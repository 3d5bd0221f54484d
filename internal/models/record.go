package models

import (
	"encoding/json"
	"time"
)

// RecordType names an entity collection inside the records table.
type RecordType string

const (
	RecordTypeSales            RecordType = "sales"
	RecordTypeCustomers        RecordType = "customers"
	RecordTypeWhatsAppSettings RecordType = "whatsapp_settings"
)

// SettingsRecordID is the fixed row ID of a manager's settings blob.
const SettingsRecordID = "default"

// Record is one entity blob owned by a manager.
type Record struct {
	ManagerID string          `gorm:"primaryKey;type:varchar(128);index:idx_records_manager_type,priority:1" json:"manager_id"`
	Type      RecordType      `gorm:"primaryKey;type:varchar(50);index:idx_records_manager_type,priority:2" json:"type"`
	ID        string          `gorm:"primaryKey;type:varchar(128)" json:"id"`
	Data      json.RawMessage `gorm:"type:jsonb;not null" json:"data"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
