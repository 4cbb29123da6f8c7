package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FeeAnalytics summarises collections across the institute.
type FeeAnalytics struct {
	StudentCount    int                  `json:"studentCount"`
	TotalOffered    decimal.Decimal      `json:"totalOffered"`
	TotalCollected  decimal.Decimal      `json:"totalCollected"`
	TotalPending    decimal.Decimal      `json:"totalPending"`
	CollectionRate  float64              `json:"collectionRate"`
	ByPaymentMode   []FeeModeTotal       `json:"byPaymentMode"`
	ByMonth         []FeeMonthTotal      `json:"byMonth"`
	ByStudentStatus []FeeStatusBreakdown `json:"byStudentStatus"`
	GeneratedAt     time.Time            `json:"generatedAt"`
}

// FeeModeTotal is collected money per payment mode.
type FeeModeTotal struct {
	PaymentMode PaymentMode     `db:"payment_mode" json:"paymentMode"`
	Count       int             `db:"count" json:"count"`
	Total       decimal.Decimal `db:"total" json:"total"`
}

// FeeMonthTotal is collected money per calendar month (YYYY-MM).
type FeeMonthTotal struct {
	Month string          `db:"month" json:"month"`
	Count int             `db:"count" json:"count"`
	Total decimal.Decimal `db:"total" json:"total"`
}

// FeeStatusBreakdown aggregates balances per student status.
type FeeStatusBreakdown struct {
	Status    StudentStatus   `db:"status" json:"status"`
	Students  int             `db:"students" json:"students"`
	Offered   decimal.Decimal `db:"offered" json:"offered"`
	Collected decimal.Decimal `db:"collected" json:"collected"`
}

// FeeAnalyticsFilter bounds the monthly breakdown.
type FeeAnalyticsFilter struct {
	From *time.Time
	To   *time.Time
}
