package models

import "time"

// Audit actions recorded for staff and ledger operations.
const (
	AuditActionLogin             = "LOGIN"
	AuditActionLogout            = "LOGOUT"
	AuditActionStudentCreate     = "STUDENT_CREATE"
	AuditActionStudentUpdate     = "STUDENT_UPDATE"
	AuditActionStudentDelete     = "STUDENT_DELETE"
	AuditActionPaymentCollect    = "PAYMENT_COLLECT"
	AuditActionTransactionCancel = "TRANSACTION_CANCEL"
	AuditActionTransactionUpdate = "TRANSACTION_UPDATE"
	AuditActionUserCreate        = "USER_CREATE"
	AuditActionLedgerFix         = "LEDGER_FIX"
	AuditActionLedgerVerify      = "LEDGER_VERIFY"
	AuditActionReceiptShare      = "RECEIPT_SHARE"
	AuditActionEMIPlanCreate     = "EMI_PLAN_CREATE"
	AuditActionEMIPlanDelete     = "EMI_PLAN_DELETE"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"userId,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resourceId,omitempty"`
	OldValues  []byte    `db:"old_values" json:"oldValues,omitempty"`
	NewValues  []byte    `db:"new_values" json:"newValues,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ipAddress"`
	UserAgent  string    `db:"user_agent" json:"userAgent"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
