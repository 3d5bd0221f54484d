package reminders

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidPhone = errors.New("phone number has fewer than 10 digits")

const minPhoneDigits = 10

// PhoneNormalizer turns free-form customer phone numbers into WhatsApp
// chat IDs for one country.
type PhoneNormalizer struct {
	CountryCode string // e.g. "7"
	TrunkPrefix string // national prefix replaced by CountryCode, e.g. "8"
}

// Normalize keeps ASCII digits only. A 10-digit local number gets the country
// code prepended; a number starting with the trunk prefix has it replaced.
func (n PhoneNormalizer) Normalize(raw string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)

	if len(digits) < minPhoneDigits {
		return "", fmt.Errorf("%w: %q", ErrInvalidPhone, raw)
	}

	switch {
	case len(digits) == minPhoneDigits:
		digits = n.CountryCode + digits
	case n.TrunkPrefix != "" && strings.HasPrefix(digits, n.TrunkPrefix):
		digits = n.CountryCode + strings.TrimPrefix(digits, n.TrunkPrefix)
	}
	return digits, nil
}

// ChatID returns the personal chat identifier, {digits}@c.us.
func (n PhoneNormalizer) ChatID(raw string) (string, error) {
	digits, err := n.Normalize(raw)
	if err != nil {
		return "", err
	}
	return digits + "@c.us", nil
}
