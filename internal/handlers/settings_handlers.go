package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"rassrochka_app/internal/middleware"
	"rassrochka_app/internal/models"
	"rassrochka_app/internal/services"
)

// InstanceStateChecker is satisfied by *services.GreenAPIClient.
type InstanceStateChecker interface {
	GetStateInstance(ctx context.Context, creds models.GreenAPICredentials) (string, error)
}

type SettingsHandler struct {
	store   LedgerStore
	gateway InstanceStateChecker
}

func NewSettingsHandler(store LedgerStore, gateway InstanceStateChecker) *SettingsHandler {
	return &SettingsHandler{store: store, gateway: gateway}
}

func defaultSettings() models.WhatsAppSettings {
	return models.WhatsAppSettings{
		Enabled:      false,
		ReminderTime: "10:00",
		ReminderDays: []int{models.ReminderOffsetDueDay, models.ReminderOffsetOverdue},
	}
}

func (h *SettingsHandler) load(c echo.Context) (models.WhatsAppSettings, error) {
	settings, err := h.store.GetSettings(c.Request().Context(), middleware.ManagerID(c))
	if errors.Is(err, services.ErrRecordNotFound) {
		return defaultSettings(), nil
	}
	if err != nil {
		return models.WhatsAppSettings{}, err
	}
	return *settings, nil
}

// GetWhatsAppSettings returns the stored settings or the defaults
func (h *SettingsHandler) GetWhatsAppSettings(c echo.Context) error {
	settings, err := h.load(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settings)
}

// UpdateWhatsAppSettings replaces the manager's reminder settings
func (h *SettingsHandler) UpdateWhatsAppSettings(c echo.Context) error {
	var settings models.WhatsAppSettings
	if err := c.Bind(&settings); err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	if err := h.store.SaveSettings(c.Request().Context(), middleware.ManagerID(c), settings); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settings)
}

// GetInstanceState asks the gateway whether the manager's instance is authorized
func (h *SettingsHandler) GetInstanceState(c echo.Context) error {
	settings, err := h.load(c)
	if err != nil {
		return err
	}
	if !settings.HasCredentials() {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "idInstance and apiTokenInstance are not configured")
	}

	state, err := h.gateway.GetStateInstance(c.Request().Context(), settings.Credentials())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "gateway unavailable").SetInternal(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"stateInstance": state})
}
