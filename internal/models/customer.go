package models

import (
	"strings"
	"time"
)

// Customer belongs to a manager and is referenced by sales via CustomerID.
type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (c Customer) HasPhone() bool {
	return strings.TrimSpace(c.Phone) != ""
}
