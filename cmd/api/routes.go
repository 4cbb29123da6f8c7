package main

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-admin-api/internal/dto"
	"github.com/noah-isme/lms-admin-api/internal/handler"
	internalmiddleware "github.com/noah-isme/lms-admin-api/internal/middleware"
	"github.com/noah-isme/lms-admin-api/internal/models"
	"github.com/noah-isme/lms-admin-api/pkg/config"
)

type routeDeps struct {
	tokens internalmiddleware.TokenValidator
	audit  internalmiddleware.AuditWriter

	auth         *handler.AuthHandler
	students     *handler.StudentHandler
	payments     *handler.PaymentHandler
	transactions *handler.TransactionHandler
	receipts     *handler.ReceiptHandler
	plans        *handler.EMIHandler
	analytics    *handler.AnalyticsHandler
}

func registerRoutes(api *gin.RouterGroup, d routeDeps) {
	api.POST("/auth/login", d.auth.Login)
	api.POST("/auth/refresh", d.auth.Refresh)
	api.GET("/receipts/shared/:token", d.receipts.Shared)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(d.tokens))
	secured.Use(internalmiddleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin))
	secured.Use(internalmiddleware.WithResponseMeta())
	superOnly := internalmiddleware.RequireSuperAdmin()

	secured.POST("/auth/logout", d.auth.Logout)
	secured.GET("/auth/me", d.auth.Me)

	students := secured.Group("/students")
	students.GET("", d.students.List)
	students.POST("", d.students.Create)
	students.GET("/:id", d.students.Get)
	students.PUT("/:id", d.students.Update)
	students.DELETE("/:id", superOnly, d.students.Delete)

	payments := secured.Group("/payments")
	payments.POST("/collect", d.payments.Collect)
	payments.GET("/verify", internalmiddleware.Audit(d.audit, models.AuditActionLedgerVerify, "ledger"), d.payments.Verify)
	payments.POST("/fix-inconsistencies", superOnly, d.payments.FixInconsistencies)

	transactions := secured.Group("/transactions")
	transactions.GET("/student/:studentId", d.transactions.ListByStudent)
	transactions.GET("/:id", d.transactions.Get)
	transactions.PATCH("/:id", d.transactions.Update)
	transactions.POST("/:id/cancel", superOnly, d.transactions.Cancel)
	transactions.GET("/:id/receipt", d.receipts.View)
	transactions.GET("/:id/receipt/pdf", d.receipts.PDF)
	transactions.POST("/:id/receipt/link", internalmiddleware.Audit(d.audit, models.AuditActionReceiptShare, "transaction"), d.receipts.Link)

	plans := secured.Group("/emi-plans")
	plans.POST("", d.plans.Create)
	plans.GET("/:studentId", d.plans.Get)
	plans.DELETE("/:studentId", superOnly, d.plans.Delete)

	secured.GET("/analytics/fees", d.analytics.Fees)
}

func receiptOrganization(cfg config.ReceiptConfig) dto.ReceiptOrganization {
	return dto.ReceiptOrganization{
		Name:    cfg.OrgName,
		Address: cfg.OrgAddress,
		Phone:   cfg.OrgPhone,
		Email:   cfg.OrgEmail,
		Website: cfg.OrgWebsite,
	}
}
