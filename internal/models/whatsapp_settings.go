package models

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Reminder offsets a manager can enable. ReminderOffsetOverdue is a blanket
// flag: it enables every overdue obligation, not only one day overdue.
const (
	ReminderOffsetDayBefore = -1
	ReminderOffsetDueDay    = 0
	ReminderOffsetOverdue   = 1
)

// GreenAPICredentials identify one manager's messaging account.
type GreenAPICredentials struct {
	IDInstance       string
	APITokenInstance string
}

type MessageTemplates struct {
	Today   string `json:"today,omitempty"`
	Overdue string `json:"overdue,omitempty"`
}

// WhatsAppSettings is the per-manager reminder configuration.
type WhatsAppSettings struct {
	ManagerID        string            `json:"-"`
	Enabled          bool              `json:"enabled"`
	IDInstance       string            `json:"idInstance"`
	APITokenInstance string            `json:"apiTokenInstance"`
	ReminderTime     string            `json:"reminderTime"`
	ReminderDays     []int             `json:"reminderDays"`
	Templates        *MessageTemplates `json:"templates,omitempty"`
}

func (s WhatsAppSettings) HasCredentials() bool {
	return s.IDInstance != "" && s.APITokenInstance != ""
}

func (s WhatsAppSettings) Credentials() GreenAPICredentials {
	return GreenAPICredentials{
		IDInstance:       s.IDInstance,
		APITokenInstance: s.APITokenInstance,
	}
}

func (s WhatsAppSettings) HasOffset(offset int) bool {
	return slices.Contains(s.ReminderDays, offset)
}

// MatchesTime reports whether now falls in the configured reminder minute.
func (s WhatsAppSettings) MatchesTime(now time.Time) bool {
	hour, minute, err := parseClock(s.ReminderTime)
	if err != nil {
		return false
	}
	return now.Hour() == hour && now.Minute() == minute
}

func (s WhatsAppSettings) Validate() error {
	if s.Enabled && !s.HasCredentials() {
		return errors.New("idInstance and apiTokenInstance are required when reminders are enabled")
	}
	if _, _, err := parseClock(s.ReminderTime); err != nil {
		return err
	}
	for _, d := range s.ReminderDays {
		if d != ReminderOffsetDayBefore && d != ReminderOffsetDueDay && d != ReminderOffsetOverdue {
			return fmt.Errorf("unsupported reminder day offset %d", d)
		}
	}
	return nil
}

func parseClock(value string) (int, int, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Hour(), t.Minute(), nil
		}
	}
	return 0, 0, fmt.Errorf("invalid reminderTime %q, expected HH:MM", value)
}
