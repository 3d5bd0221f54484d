package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"rassrochka_app/internal/middleware"
	"rassrochka_app/internal/models"
	"rassrochka_app/internal/reminders"
)

type CustomerHandler struct {
	store LedgerStore
	phone reminders.PhoneNormalizer
}

func NewCustomerHandler(store LedgerStore, phone reminders.PhoneNormalizer) *CustomerHandler {
	return &CustomerHandler{store: store, phone: phone}
}

func (h *CustomerHandler) ListCustomers(c echo.Context) error {
	customers, err := h.store.ListCustomers(c.Request().Context(), middleware.ManagerID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, customers)
}

// CreateCustomer stores a customer. A phone, when given, must be usable
// for reminders.
func (h *CustomerHandler) CreateCustomer(c echo.Context) error {
	var customer models.Customer
	if err := c.Bind(&customer); err != nil {
		return err
	}

	customer.Name = strings.TrimSpace(customer.Name)
	if customer.Name == "" {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "name is required")
	}
	if customer.HasPhone() {
		if _, err := h.phone.Normalize(customer.Phone); err != nil {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
	}

	customer.ID = uuid.New().String()
	customer.CreatedAt = time.Now()

	if err := h.store.SaveCustomer(c.Request().Context(), middleware.ManagerID(c), &customer); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, customer)
}
