package handlers

import (
	"github.com/labstack/echo/v4"

	"rassrochka_app/internal/middleware"
)

// Handlers groups everything RegisterRoutes mounts.
type Handlers struct {
	Sales      *SaleHandler
	Customers  *CustomerHandler
	Settings   *SettingsHandler
	Cron       *CronHandler
	Verifier   middleware.TokenVerifier
	CronSecret string
}

func RegisterRoutes(e *echo.Echo, h Handlers) {
	e.GET("/healthz", h.Cron.Health)
	e.POST("/cron/reminders", h.Cron.RunReminders, middleware.RequireCronSecret(h.CronSecret))

	api := e.Group("/api",
		middleware.RequireAuth(h.Verifier),
		middleware.RequireRole(middleware.RoleManager, middleware.RoleAdmin),
	)

	api.GET("/sales", h.Sales.ListSales)
	api.POST("/sales", h.Sales.CreateSale)
	api.GET("/sales/:id", h.Sales.GetSale)
	api.POST("/sales/:id/payments/:paymentId/pay", h.Sales.MarkPaymentPaid)
	api.POST("/sales/:id/default", h.Sales.MarkDefaulted)

	api.GET("/customers", h.Customers.ListCustomers)
	api.POST("/customers", h.Customers.CreateCustomer)

	api.GET("/settings/whatsapp", h.Settings.GetWhatsAppSettings)
	api.PUT("/settings/whatsapp", h.Settings.UpdateWhatsAppSettings)
	api.GET("/settings/whatsapp/state", h.Settings.GetInstanceState)
}
