package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"rassrochka_app/internal/middleware"
	"rassrochka_app/internal/models"
	"rassrochka_app/internal/services"
)

type SaleHandler struct {
	store LedgerStore
	loc   *time.Location
	now   func() time.Time
}

func NewSaleHandler(store LedgerStore, loc *time.Location) *SaleHandler {
	return &SaleHandler{store: store, loc: loc, now: time.Now}
}

// SaleView is a sale plus its plan summary as of today.
type SaleView struct {
	models.Sale
	Summary models.PlanSummary `json:"summary"`
}

func (h *SaleHandler) view(sale models.Sale) SaleView {
	return SaleView{Sale: sale, Summary: sale.Summary(h.now().In(h.loc))}
}

// ListSales returns all sales of the manager
func (h *SaleHandler) ListSales(c echo.Context) error {
	sales, err := h.store.ListSales(c.Request().Context(), middleware.ManagerID(c))
	if err != nil {
		return err
	}

	views := make([]SaleView, 0, len(sales))
	for _, s := range sales {
		views = append(views, h.view(s))
	}
	return c.JSON(http.StatusOK, views)
}

// GetSale returns one sale with its plan
func (h *SaleHandler) GetSale(c echo.Context) error {
	sale, err := h.store.GetSale(c.Request().Context(), middleware.ManagerID(c), c.Param("id"))
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, h.view(*sale))
}

// CreateSale records a sale and generates its payment plan
func (h *SaleHandler) CreateSale(c echo.Context) error {
	var input models.NewSaleInput
	if err := c.Bind(&input); err != nil {
		return err
	}

	ctx := c.Request().Context()
	managerID := middleware.ManagerID(c)

	if input.CustomerID != "" {
		_, err := h.store.GetCustomer(ctx, managerID, input.CustomerID)
		if errors.Is(err, services.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, "customer does not exist")
		}
		if err != nil {
			return err
		}
	}

	sale, err := models.NewSale(input, h.loc, h.now())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	if err := h.store.SaveSale(ctx, managerID, sale); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, h.view(*sale))
}

// MarkPaymentPaid settles one obligation of the plan
func (h *SaleHandler) MarkPaymentPaid(c echo.Context) error {
	paymentID := c.Param("paymentId")
	paidAt := h.now().In(h.loc)

	sale, err := h.store.UpdateSale(c.Request().Context(), middleware.ManagerID(c), c.Param("id"), func(s *models.Sale) error {
		return s.MarkPaid(paymentID, paidAt)
	})
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, h.view(*sale))
}

// MarkDefaulted stops collection and reminders for a sale
func (h *SaleHandler) MarkDefaulted(c echo.Context) error {
	sale, err := h.store.UpdateSale(c.Request().Context(), middleware.ManagerID(c), c.Param("id"), func(s *models.Sale) error {
		return s.MarkDefaulted()
	})
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, h.view(*sale))
}
