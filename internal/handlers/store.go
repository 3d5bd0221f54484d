package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"rassrochka_app/internal/models"
	"rassrochka_app/internal/services"
)

// LedgerStore is the tenant-scoped storage the API works against.
// *services.LedgerStore implements it.
type LedgerStore interface {
	ListSales(ctx context.Context, managerID string) ([]models.Sale, error)
	GetSale(ctx context.Context, managerID, saleID string) (*models.Sale, error)
	SaveSale(ctx context.Context, managerID string, sale *models.Sale) error
	UpdateSale(ctx context.Context, managerID, saleID string, fn func(*models.Sale) error) (*models.Sale, error)

	ListCustomers(ctx context.Context, managerID string) ([]models.Customer, error)
	GetCustomer(ctx context.Context, managerID, customerID string) (*models.Customer, error)
	SaveCustomer(ctx context.Context, managerID string, customer *models.Customer) error

	GetSettings(ctx context.Context, managerID string) (*models.WhatsAppSettings, error)
	SaveSettings(ctx context.Context, managerID string, settings models.WhatsAppSettings) error
}

// storeError maps storage and domain errors onto HTTP statuses.
func storeError(err error) error {
	switch {
	case errors.Is(err, services.ErrRecordNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found").SetInternal(err)
	case errors.Is(err, models.ErrPaymentNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrSaleNotActive):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return err
	}
}
