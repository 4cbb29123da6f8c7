package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-admin-api/internal/models"
	appErrors "github.com/noah-isme/lms-admin-api/pkg/errors"
	"github.com/noah-isme/lms-admin-api/pkg/jobs"
)

func newTestReconciliationService(l *fakeLedger) *ReconciliationService {
	return NewReconciliationService(l.studentRepo(), l.txnRepo(), l, nil, nil, decimal.Zero, nil)
}

func TestReconciliationVerifyHealthy(t *testing.T) {
	l := newFakeLedger()
	l.addStudent("Asha Rao", "50000", "10000")
	l.addStudent("Ben Das", "40000", "0")
	svc := newTestReconciliationService(l)

	report, err := svc.Verify(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Healthy)
	assert.NotNil(t, report.Issues)
	assert.Empty(t, report.Issues)
	assert.Equal(t, 2, report.Summary.StudentsChecked)
	assert.True(t, report.Summary.TotalDrift.IsZero())
}

func TestReconciliationVerifyReportsDriftInCodeOrder(t *testing.T) {
	l := newFakeLedger()
	first := l.addStudent("Asha Rao", "50000", "10000")
	l.addStudent("Ben Das", "40000", "5000")
	third := l.addStudent("Chitra Iyer", "40000", "0")
	l.setBalance(third.ID, "300")
	l.setBalance(first.ID, "9999.50")
	svc := newTestReconciliationService(l)

	report, err := svc.Verify(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Healthy)
	require.Len(t, report.Issues, 2)
	assert.Equal(t, first.Code, report.Issues[0].StudentCode)
	assert.Equal(t, third.Code, report.Issues[1].StudentCode)
	assert.True(t, report.Issues[0].Difference.Equal(decimal.RequireFromString("-0.50")))
	assert.True(t, report.Issues[1].TransactionTotal.IsZero())
	assert.True(t, report.Summary.TotalDrift.Equal(decimal.RequireFromString("300.50")))

	again, err := svc.Verify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report.Issues, again.Issues)
}

func TestReconciliationVerifyToleratesOneCent(t *testing.T) {
	l := newFakeLedger()
	student := l.addStudent("Asha Rao", "50000", "10000")
	l.setBalance(student.ID, "10000.01")

	report, err := newTestReconciliationService(l).Verify(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Healthy)
}

func TestReconciliationFixCorrectsDrift(t *testing.T) {
	l := newFakeLedger()
	student := l.addStudent("Asha Rao", "50000", "10000")
	l.setBalance(student.ID, "12500")
	svc := newTestReconciliationService(l)

	result, err := svc.Fix(context.Background(), superActor)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Fixed)
	require.Len(t, result.Corrections, 1)
	c := result.Corrections[0]
	assert.Equal(t, student.ID, c.StudentID)
	assert.True(t, c.PreviousFeesPaid.Equal(decimal.NewFromInt(12500)))
	assert.True(t, c.CorrectedFeesPaid.Equal(decimal.NewFromInt(10000)))
	assert.True(t, c.Difference.Equal(decimal.NewFromInt(-2500)))
	assert.True(t, l.balance(student.ID).Equal(l.ledgerTotal(student.ID)))
	assert.Contains(t, l.auditActions(), models.AuditActionLedgerFix)

	report, err := svc.Verify(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Healthy)

	second, err := svc.Fix(context.Background(), superActor)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Fixed)
	assert.Empty(t, second.Corrections)
}

func TestReconciliationFixSkipsMovedBalance(t *testing.T) {
	l := newFakeLedger()
	student := l.addStudent("Asha Rao", "50000", "10000")
	l.setBalance(student.ID, "12500")
	l.beforeCAS = func(id string) { l.setBalance(id, "13000") }

	result, err := newTestReconciliationService(l).Fix(context.Background(), superActor)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Fixed)
	require.Len(t, result.Skipped, 1)
	assert.True(t, l.balance(student.ID).Equal(decimal.NewFromInt(13000)))
}

func TestReconciliationFixRequiresSuperAdmin(t *testing.T) {
	l := newFakeLedger()
	student := l.addStudent("Asha Rao", "50000", "10000")
	l.setBalance(student.ID, "1")

	_, err := newTestReconciliationService(l).Fix(context.Background(), adminActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appCode(t, err))
	assert.True(t, l.balance(student.ID).Equal(decimal.NewFromInt(1)))
}

func TestLedgerVerifyHandlerRunsVerify(t *testing.T) {
	l := newFakeLedger()
	student := l.addStudent("Asha Rao", "50000", "10000")
	l.setBalance(student.ID, "1")
	metrics := NewMetricsService()
	svc := NewReconciliationService(l.studentRepo(), l.txnRepo(), l, nil, metrics, decimal.Zero, nil)

	handler := LedgerVerifyHandler(svc, nil)
	require.NoError(t, handler(context.Background(), jobs.Job{ID: "job-1", Type: LedgerVerifyJob}))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ledgerDrift))
}
