package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-admin-api/internal/dto"
	"github.com/noah-isme/lms-admin-api/internal/models"
	appErrors "github.com/noah-isme/lms-admin-api/pkg/errors"
)

func TestTransactionListByStudentNewestFirst(t *testing.T) {
	l := newFakeLedger()
	student := l.addStudent("Asha Rao", "50000", "10000")
	payments := newTestPaymentService(l)
	_, err := payments.Collect(context.Background(), collectReq(student.ID, `100`), adminActor)
	require.NoError(t, err)
	second, err := payments.Collect(context.Background(), collectReq(student.ID, `200`), adminActor)
	require.NoError(t, err)

	svc := NewTransactionService(l.txnRepo(), l.studentRepo(), l, nil)
	history, err := svc.ListByStudent(context.Background(), student.Code)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, second.Transaction.ID, history[0].ID)
	assert.Equal(t, models.DownPaymentDescription, history[2].Description)

	_, err = svc.ListByStudent(context.Background(), "STU404")
	assert.Equal(t, appErrors.ErrNotFound.Code, appCode(t, err))
}

func TestTransactionUpdateNotes(t *testing.T) {
	l := newFakeLedger()
	l.addStudent("Asha Rao", "50000", "10000")
	txn := l.transactions()[0]
	svc := NewTransactionService(l.txnRepo(), l.studentRepo(), l, nil)

	notes := "paid at front desk"
	updated, err := svc.UpdateNotes(context.Background(), txn.ID, dto.UpdateTransactionRequest{Notes: &notes}, adminActor)
	require.NoError(t, err)
	assert.Equal(t, notes, updated.Notes)
	assert.True(t, updated.Amount.Equal(txn.Amount))
	assert.Contains(t, l.auditActions(), models.AuditActionTransactionUpdate)

	_, err = svc.UpdateNotes(context.Background(), "missing", dto.UpdateTransactionRequest{Notes: &notes}, adminActor)
	assert.Equal(t, appErrors.ErrNotFound.Code, appCode(t, err))

	_, err = svc.UpdateNotes(context.Background(), txn.ID, dto.UpdateTransactionRequest{}, adminActor)
	assert.Equal(t, appErrors.ErrValidation.Code, appCode(t, err))
}
