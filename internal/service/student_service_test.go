package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-admin-api/internal/dto"
	"github.com/noah-isme/lms-admin-api/internal/models"
	appErrors "github.com/noah-isme/lms-admin-api/pkg/errors"
)

func newTestStudentService(l *fakeLedger) *StudentService {
	return NewStudentService(l.studentRepo(), l, nil, nil, nil)
}

func createReq(email, fee, down string) dto.CreateStudentRequest {
	req := dto.CreateStudentRequest{
		Name:       "Asha Rao",
		Email:      email,
		Course:     "Data Science",
		FeeOffered: json.RawMessage(fee),
	}
	if down != "" {
		req.DownPayment = json.RawMessage(down)
	}
	return req
}

func TestStudentCreateSeedsBalanceFromDownPayment(t *testing.T) {
	l := newFakeLedger()
	svc := newTestStudentService(l)

	resp, err := svc.Create(context.Background(), createReq("asha@example.com", `50000`, `"12000"`), adminActor)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Student.Code)
	assert.Equal(t, models.StudentStatusActive, resp.Student.Status)
	assert.True(t, resp.Student.FeesPaid.Equal(d("12000")))
	require.NotNil(t, resp.DownPayment)
	assert.Equal(t, models.DownPaymentDescription, resp.DownPayment.Description)
	assert.Equal(t, models.TransactionStatusCompleted, resp.DownPayment.Status)
	assert.NotEmpty(t, resp.DownPayment.ReceiptNumber)
	assert.True(t, l.balance(resp.Student.ID).Equal(l.ledgerTotal(resp.Student.ID)))
	assert.Contains(t, l.auditActions(), models.AuditActionStudentCreate)
}

func TestStudentCreateWithoutDownPayment(t *testing.T) {
	l := newFakeLedger()
	resp, err := newTestStudentService(l).Create(context.Background(), createReq("asha@example.com", `50000`, ""), adminActor)
	require.NoError(t, err)
	assert.Nil(t, resp.DownPayment)
	assert.True(t, resp.Student.FeesPaid.IsZero())
	assert.Empty(t, l.transactions())
}

func TestStudentCreateValidation(t *testing.T) {
	l := newFakeLedger()
	l.addStudent("Asha Rao", "1000", "0")
	svc := newTestStudentService(l)

	cases := map[string]struct {
		req  dto.CreateStudentRequest
		code string
	}{
		"zero fee":        {createReq("a@example.com", `0`, ""), appErrors.ErrValidation.Code},
		"down above fee":  {createReq("a@example.com", `1000`, `1500`), appErrors.ErrValidation.Code},
		"negative down":   {createReq("a@example.com", `1000`, `-1`), appErrors.ErrValidation.Code},
		"bad email":       {createReq("not-an-email", `1000`, ""), appErrors.ErrValidation.Code},
		"duplicate email": {createReq("ASHA.RAO@example.com", `1000`, ""), appErrors.ErrConflict.Code},
		"fee too large":   {createReq("b@example.com", `1000000000000`, ""), appErrors.ErrValidation.Code},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.req, adminActor)
			require.Error(t, err)
			assert.Equal(t, tc.code, appCode(t, err))
		})
	}
}

func TestStudentUpdateNeverTouchesBalance(t *testing.T) {
	l := newFakeLedger()
	student := l.addStudent("Asha Rao", "50000", "10000")
	svc := newTestStudentService(l)

	name := "Asha R."
	status := models.StudentStatusInactive
	resp, err := svc.Update(context.Background(), student.Code, dto.UpdateStudentRequest{
		Name:       &name,
		Status:     &status,
		FeeOffered: json.RawMessage(`60000`),
	}, adminActor)
	require.NoError(t, err)
	assert.Equal(t, "Asha R.", resp.Name)
	assert.True(t, resp.FeeOffered.Equal(d("60000")))
	assert.True(t, resp.PendingAmount.Equal(d("50000")))
	assert.True(t, l.balance(student.ID).Equal(d("10000")))

	_, err = svc.Update(context.Background(), student.ID, dto.UpdateStudentRequest{FeeOffered: json.RawMessage(`5000`)}, adminActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appCode(t, err))
}

func TestStudentDeleteKeepsTransactions(t *testing.T) {
	l := newFakeLedger()
	student := l.addStudent("Asha Rao", "50000", "10000")
	svc := newTestStudentService(l)

	err := svc.Delete(context.Background(), student.ID, adminActor)
	assert.Equal(t, appErrors.ErrForbidden.Code, appCode(t, err))

	require.NoError(t, svc.Delete(context.Background(), student.ID, superActor))
	_, err = svc.Get(context.Background(), student.ID)
	assert.Equal(t, appErrors.ErrNotFound.Code, appCode(t, err))

	history, err := NewTransactionService(l.txnRepo(), l.studentRepo(), l, nil).ListByStudent(context.Background(), student.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Asha Rao", history[0].StudentName)
}

func TestStudentListAddsPendingAmount(t *testing.T) {
	l := newFakeLedger()
	l.addStudent("Asha Rao", "50000", "10000")
	l.addStudent("Ben Das", "1000", "1000")

	items, pagination, err := newTestStudentService(l).List(context.Background(), models.StudentFilter{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.True(t, items[0].PendingAmount.Equal(d("40000")))
	assert.True(t, items[1].PendingAmount.IsZero())

	_, _, err = newTestStudentService(l).List(context.Background(), models.StudentFilter{Status: "Graduated"})
	assert.Equal(t, appErrors.ErrValidation.Code, appCode(t, err))
}
