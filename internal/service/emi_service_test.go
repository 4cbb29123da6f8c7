package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-admin-api/internal/dto"
	"github.com/noah-isme/lms-admin-api/internal/models"
	"github.com/noah-isme/lms-admin-api/internal/repository"
	appErrors "github.com/noah-isme/lms-admin-api/pkg/errors"
)

type memoryEMIRepo struct {
	plans map[string]*models.EMIPlan
}

func newMemoryEMIRepo() *memoryEMIRepo {
	return &memoryEMIRepo{plans: make(map[string]*models.EMIPlan)}
}

func (m *memoryEMIRepo) Create(ctx context.Context, plan *models.EMIPlan) error {
	if _, ok := m.plans[plan.StudentID]; ok {
		return repository.ErrPlanExists
	}
	plan.ID = uuid.NewString()
	copy := *plan
	m.plans[plan.StudentID] = &copy
	return nil
}

func (m *memoryEMIRepo) FindByStudent(ctx context.Context, studentID string) (*models.EMIPlan, error) {
	plan, ok := m.plans[studentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *plan
	return &copy, nil
}

func (m *memoryEMIRepo) ExistsForStudent(ctx context.Context, studentID string) (bool, error) {
	_, ok := m.plans[studentID]
	return ok, nil
}

func (m *memoryEMIRepo) DeleteByStudent(ctx context.Context, studentID string) error {
	if _, ok := m.plans[studentID]; !ok {
		return sql.ErrNoRows
	}
	delete(m.plans, studentID)
	return nil
}

func newTestEMIService(l *fakeLedger, plans *memoryEMIRepo, now time.Time) *EMIService {
	svc := NewEMIService(plans, l.studentRepo(), l.txnRepo(), l, nil, nil)
	svc.now = func() time.Time { return now }
	return svc
}

func TestEMICreateSplitsRemainingAmount(t *testing.T) {
	l := newFakeLedger()
	student := l.addStudent("Asha Rao", "50000", "10000")
	plans := newMemoryEMIRepo()
	now := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	svc := newTestEMIService(l, plans, now)

	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	view, err := svc.Create(context.Background(), dto.CreateEMIPlanRequest{
		StudentID:            student.Code,
		NumberOfInstallments: 3,
		Frequency:            models.EMIFrequencyMonthly,
		StartDate:            &start,
	}, adminActor)
	require.NoError(t, err)

	assert.True(t, view.RemainingAmount.Equal(d("40000")))
	assert.Equal(t, "admin@lms.test", view.CreatedBy)
	require.Len(t, view.Installments, 3)
	assert.True(t, view.Installments[0].Amount.Equal(d("13333")))
	assert.True(t, view.Installments[2].Amount.Equal(d("13334")))
	assert.True(t, view.Installments[0].DueDate.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, models.InstallmentStatusPending, view.Installments[0].Status)
	assert.Equal(t, student.Code, view.StudentCode)
	assert.Contains(t, l.auditActions(), models.AuditActionEMIPlanCreate)

	_, err = svc.Create(context.Background(), dto.CreateEMIPlanRequest{
		StudentID:            student.ID,
		NumberOfInstallments: 2,
		Frequency:            models.EMIFrequencyWeekly,
	}, adminActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appCode(t, err))
}

func TestEMICreateValidation(t *testing.T) {
	l := newFakeLedger()
	student := l.addStudent("Asha Rao", "50000", "10000")
	covered := l.addStudent("Ben Das", "20000", "20000")
	svc := newTestEMIService(l, newMemoryEMIRepo(), time.Now())

	cases := map[string]dto.CreateEMIPlanRequest{
		"too many":       {StudentID: student.ID, NumberOfInstallments: 25, Frequency: models.EMIFrequencyMonthly},
		"zero":           {StudentID: student.ID, NumberOfInstallments: 0, Frequency: models.EMIFrequencyMonthly},
		"frequency":      {StudentID: student.ID, NumberOfInstallments: 3, Frequency: "Daily"},
		"custom no days": {StudentID: student.ID, NumberOfInstallments: 3, Frequency: models.EMIFrequencyCustom},
		"fully paid":     {StudentID: covered.ID, NumberOfInstallments: 3, Frequency: models.EMIFrequencyMonthly},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), req, adminActor)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrValidation.Code, appCode(t, err))
		})
	}
}

func TestEMIGetReflectsPayments(t *testing.T) {
	l := newFakeLedger()
	student := l.addStudent("Asha Rao", "40000", "10000")
	plans := newMemoryEMIRepo()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := newTestEMIService(l, plans, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	_, err := svc.Create(context.Background(), dto.CreateEMIPlanRequest{
		StudentID: student.ID, NumberOfInstallments: 3, Frequency: models.EMIFrequencyMonthly, StartDate: &start,
	}, adminActor)
	require.NoError(t, err)

	payments := newTestPaymentService(l)
	_, err = payments.Collect(context.Background(), collectReq(student.ID, `15000`), adminActor)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC) }
	view, err := svc.Get(context.Background(), student.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InstallmentStatusPaid, view.Installments[0].Status)
	require.NotNil(t, view.Installments[0].TransactionID)
	assert.Equal(t, models.InstallmentStatusPartiallyPaid, view.Installments[1].Status)
	assert.True(t, view.Installments[1].PaidAmount.Equal(d("5000")))
	assert.Equal(t, models.InstallmentStatusPending, view.Installments[2].Status)
	assert.Equal(t, 1, view.Summary.PaidCount)
	assert.Equal(t, 33, view.Summary.CompletionPercentage)
}

func TestEMIGetAndDeleteMissingPlan(t *testing.T) {
	l := newFakeLedger()
	student := l.addStudent("Asha Rao", "40000", "10000")
	svc := newTestEMIService(l, newMemoryEMIRepo(), time.Now())

	_, err := svc.Get(context.Background(), student.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appCode(t, err))

	err = svc.Delete(context.Background(), student.ID, adminActor)
	assert.Equal(t, appErrors.ErrForbidden.Code, appCode(t, err))

	err = svc.Delete(context.Background(), student.ID, superActor)
	assert.Equal(t, appErrors.ErrNotFound.Code, appCode(t, err))
}

func TestEMIDeleteAllowsReplanning(t *testing.T) {
	l := newFakeLedger()
	student := l.addStudent("Asha Rao", "40000", "10000")
	plans := newMemoryEMIRepo()
	svc := newTestEMIService(l, plans, time.Now())
	req := dto.CreateEMIPlanRequest{StudentID: student.ID, NumberOfInstallments: 2, Frequency: models.EMIFrequencyQuarterly}

	_, err := svc.Create(context.Background(), req, adminActor)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), student.ID, superActor))
	_, err = svc.Create(context.Background(), req, adminActor)
	require.NoError(t, err)
	assert.Contains(t, l.auditActions(), models.AuditActionEMIPlanDelete)
}
