package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-admin-api/internal/dto"
	"github.com/noah-isme/lms-admin-api/internal/models"
	"github.com/noah-isme/lms-admin-api/internal/repository"
	appErrors "github.com/noah-isme/lms-admin-api/pkg/errors"
)

type emiPlanRepository interface {
	Create(ctx context.Context, plan *models.EMIPlan) error
	FindByStudent(ctx context.Context, studentID string) (*models.EMIPlan, error)
	ExistsForStudent(ctx context.Context, studentID string) (bool, error)
	DeleteByStudent(ctx context.Context, studentID string) error
}

type emiCreditSource interface {
	ListCompletedCredits(ctx context.Context, studentID string) ([]models.Transaction, error)
}

// EMIService creates installment plans and projects them against the ledger.
type EMIService struct {
	plans     emiPlanRepository
	students  studentFinder
	credits   emiCreditSource
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewEMIService constructs an EMIService.
func NewEMIService(plans emiPlanRepository, students studentFinder, credits emiCreditSource, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *EMIService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EMIService{
		plans:     plans,
		students:  students,
		credits:   credits,
		audit:     audit,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create schedules what is left of a student's fee after the down payment.
func (s *EMIService) Create(ctx context.Context, req dto.CreateEMIPlanRequest, actor dto.Actor) (*models.EMIPlanView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid emi plan payload")
	}
	if req.NumberOfInstallments < models.MinInstallments || req.NumberOfInstallments > models.MaxInstallments {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("numberOfInstallments must be between %d and %d", models.MinInstallments, models.MaxInstallments)).
			WithDetails("numberOfInstallments", req.NumberOfInstallments)
	}
	if !req.Frequency.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown frequency").WithDetails("frequency", req.Frequency)
	}
	if req.Frequency != models.EMIFrequencyCustom {
		req.IntervalDays = nil
	}

	student, err := resolveStudent(ctx, s.students, req.StudentID)
	if err != nil {
		return nil, err
	}

	exists, err := s.plans.ExistsForStudent(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to check existing plan")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "an EMI plan already exists for this student").WithDetails("studentId", student.ID)
	}

	remaining := student.FeeOffered.Sub(student.DownPayment)
	if !remaining.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "nothing to schedule, the down payment covers the offered fee").
			WithDetails("studentId", student.ID, "feeOffered", student.FeeOffered.String(), "downPayment", student.DownPayment.String())
	}

	start := s.now()
	if req.StartDate != nil {
		start = req.StartDate.UTC()
	}
	installments, err := BuildInstallments(remaining, req.NumberOfInstallments, req.Frequency, req.IntervalDays, start)
	if err != nil {
		return nil, appErrors.Validation(err, err.Error()).WithDetails("studentId", student.ID)
	}

	plan := &models.EMIPlan{
		StudentID:            student.ID,
		TotalAmount:          student.FeeOffered,
		DownPayment:          student.DownPayment,
		RemainingAmount:      remaining,
		NumberOfInstallments: req.NumberOfInstallments,
		Frequency:            req.Frequency,
		IntervalDays:         req.IntervalDays,
		StartDate:            start,
		CreatedBy:            actor.Name,
		CreatedAt:            s.now(),
		Installments:         installments,
	}
	if err := s.plans.Create(ctx, plan); err != nil {
		if errors.Is(err, repository.ErrPlanExists) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "an EMI plan already exists for this student").WithDetails("studentId", student.ID)
		}
		return nil, appErrors.Persistence(err, "failed to create emi plan").WithDetails("studentId", student.ID)
	}

	s.logger.Info("emi plan created",
		zap.String("student_id", student.ID),
		zap.String("remaining_amount", remaining.String()),
		zap.Int("installments", plan.NumberOfInstallments),
		zap.String("frequency", string(plan.Frequency)))
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionEMIPlanCreate, "emi_plan", plan.ID, nil, plan)

	return s.project(ctx, plan, student), nil
}

// Get returns the student's plan with statuses recomputed from the current ledger.
func (s *EMIService) Get(ctx context.Context, studentRef string) (*models.EMIPlanView, error) {
	student, err := resolveStudent(ctx, s.students, studentRef)
	if err != nil {
		return nil, err
	}
	plan, err := s.plans.FindByStudent(ctx, student.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no EMI plan for this student").WithDetails("studentId", student.ID)
		}
		return nil, appErrors.Persistence(err, "failed to load emi plan")
	}
	return s.project(ctx, plan, student), nil
}

// Delete removes a student's plan so it can be drawn up again.
func (s *EMIService) Delete(ctx context.Context, studentRef string, actor dto.Actor) error {
	if !actor.IsSuperAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "only super administrators can delete EMI plans")
	}
	student, err := resolveStudent(ctx, s.students, studentRef)
	if err != nil {
		return err
	}
	if err := s.plans.DeleteByStudent(ctx, student.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "no EMI plan for this student").WithDetails("studentId", student.ID)
		}
		return appErrors.Persistence(err, "failed to delete emi plan")
	}
	s.logger.Info("emi plan deleted", zap.String("student_id", student.ID), zap.String("deleted_by", actor.Name))
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionEMIPlanDelete, "emi_plan", student.ID, nil, nil)
	return nil
}

func (s *EMIService) project(ctx context.Context, plan *models.EMIPlan, student *models.Student) *models.EMIPlanView {
	var credits []models.Transaction
	if s.credits != nil {
		var err error
		credits, err = s.credits.ListCompletedCredits(ctx, student.ID)
		if err != nil {
			s.logger.Warn("projecting emi plan without payment dates", zap.String("student_id", student.ID), zap.Error(err))
			credits = nil
		}
	}

	now := s.now()
	view := &models.EMIPlanView{
		EMIPlan:     *plan,
		StudentCode: student.Code,
		StudentName: student.Name,
		FeesPaid:    student.FeesPaid,
		AsOf:        now,
	}
	view.Installments, view.Summary = ProjectSchedule(*plan, student.FeesPaid, credits, now)
	return view
}
