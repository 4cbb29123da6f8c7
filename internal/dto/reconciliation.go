package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerIssue describes one student whose cached balance disagrees with the ledger.
type LedgerIssue struct {
	StudentID        string          `json:"studentId"`
	StudentCode      string          `json:"studentCode"`
	StudentName      string          `json:"studentName"`
	FeesPaid         decimal.Decimal `json:"feesPaidInStudent"`
	TransactionTotal decimal.Decimal `json:"totalFromTransactions"`
	Difference       decimal.Decimal `json:"difference"`
}

// LedgerSummary aggregates a verification run.
type LedgerSummary struct {
	StudentsChecked int             `json:"studentsChecked"`
	IssuesFound     int             `json:"issuesFound"`
	TotalDrift      decimal.Decimal `json:"totalDrift"`
	CheckedAt       time.Time       `json:"checkedAt"`
}

// LedgerReport is the result of GET /payments/verify.
type LedgerReport struct {
	Healthy bool          `json:"healthy"`
	Issues  []LedgerIssue `json:"issues"`
	Summary LedgerSummary `json:"summary"`
}

// LedgerCorrection records one balance overwritten by a fix run.
type LedgerCorrection struct {
	StudentID         string          `json:"studentId"`
	StudentCode       string          `json:"studentCode"`
	StudentName       string          `json:"studentName"`
	PreviousFeesPaid  decimal.Decimal `json:"previousFeesPaid"`
	CorrectedFeesPaid decimal.Decimal `json:"correctedFeesPaid"`
	Difference        decimal.Decimal `json:"difference"`
}

// LedgerFixResult is the result of POST /payments/fix-inconsistencies.
type LedgerFixResult struct {
	Fixed       int                `json:"fixed"`
	Corrections []LedgerCorrection `json:"corrections"`
	Skipped     []LedgerIssue      `json:"skipped,omitempty"`
	FixedAt     time.Time          `json:"fixedAt"`
}
