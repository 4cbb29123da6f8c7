package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-admin-api/internal/dto"
	"github.com/noah-isme/lms-admin-api/internal/models"
	"github.com/noah-isme/lms-admin-api/internal/repository"
	appErrors "github.com/noah-isme/lms-admin-api/pkg/errors"
)

type studentRepository interface {
	studentFinder
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	CreateWithDownPayment(ctx context.Context, student *models.Student, downPayment *models.Transaction) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

// StudentService handles enrollment and the non-financial lifecycle of students.
type StudentService struct {
	repo      studentRepository
	audit     auditRecorder
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, audit auditRecorder, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		repo:      repo,
		audit:     audit,
		cache:     cache,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]dto.StudentResponse, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown student status").WithDetails("status", filter.Status)
	}
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Persistence(err, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	items := make([]dto.StudentResponse, 0, len(students))
	for i := range students {
		items = append(items, dto.NewStudentResponse(&students[i]))
	}
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a student by internal id or code.
func (s *StudentService) Get(ctx context.Context, ref string) (*dto.StudentResponse, error) {
	student, err := resolveStudent(ctx, s.repo, ref)
	if err != nil {
		return nil, err
	}
	resp := dto.NewStudentResponse(student)
	return &resp, nil
}

// Create enrolls a student. A non-zero down payment is recorded as a Completed credit alongside the
// student so the balance starts out equal to the ledger.
func (s *StudentService) Create(ctx context.Context, req dto.CreateStudentRequest, actor dto.Actor) (*dto.StudentCreatedResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid student payload")
	}
	feeOffered, err := ParseAmount(req.FeeOffered)
	if err != nil {
		return nil, appErrors.Validation(err, "feeOffered must be a positive number greater than 0").WithDetails("feeOffered", string(req.FeeOffered))
	}
	downPayment := decimal.Zero
	if len(req.DownPayment) > 0 && string(req.DownPayment) != "null" {
		downPayment, err = parseDecimalField(req.DownPayment)
		if err != nil || downPayment.IsNegative() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "downPayment must be zero or a positive number").WithDetails("downPayment", string(req.DownPayment))
		}
	}
	if downPayment.GreaterThan(feeOffered) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "downPayment cannot exceed feeOffered").
			WithDetails("feeOffered", feeOffered.String(), "downPayment", downPayment.String())
	}
	status := req.Status
	if status == "" {
		status = models.StudentStatusActive
	}
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown student status").WithDetails("status", req.Status)
	}
	mode := models.PaymentMode(req.PaymentMode)
	if mode == "" {
		mode = models.PaymentModeCash
	}
	if !mode.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("paymentMode must be one of %v", models.PaymentModes)).
			WithDetails("paymentMode", req.PaymentMode)
	}

	email := strings.TrimSpace(req.Email)
	exists, err := s.repo.ExistsByEmail(ctx, email, "")
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to validate email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already used").WithDetails("email", email)
	}

	now := s.now()
	student := &models.Student{
		Name:        strings.TrimSpace(req.Name),
		Email:       email,
		Phone:       strings.TrimSpace(req.Phone),
		Course:      strings.TrimSpace(req.Course),
		Status:      status,
		FeeOffered:  feeOffered,
		DownPayment: downPayment,
		FeesPaid:    downPayment,
		JoinedDate:  now,
		CreatedAt:   now,
	}
	if req.JoinedDate != nil {
		student.JoinedDate = req.JoinedDate.UTC()
	}

	var credit *models.Transaction
	if downPayment.IsPositive() {
		credit = &models.Transaction{
			Amount:          downPayment,
			Type:            models.TransactionTypeCredit,
			Date:            now,
			Status:          models.TransactionStatusCompleted,
			PaymentMode:     mode,
			RecordedBy:      actor.Name,
			PreviousBalance: decimal.Zero,
			NewBalance:      downPayment,
			Description:     models.DownPaymentDescription,
		}
	}

	if err := s.repo.CreateWithDownPayment(ctx, student, credit); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already used").WithDetails("email", email)
		}
		return nil, appErrors.Persistence(err, "failed to create student")
	}

	fields := []zap.Field{
		zap.String("student_id", student.ID),
		zap.String("student_code", student.Code),
		zap.String("fee_offered", feeOffered.String()),
		zap.String("down_payment", downPayment.String()),
	}
	if credit != nil {
		fields = append(fields, zap.String("receipt_number", credit.ReceiptNumber))
	}
	s.logger.Info("student enrolled", fields...)
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionStudentCreate, "student", student.ID, nil, student)
	s.cache.InvalidateFeeAnalytics(ctx)

	return &dto.StudentCreatedResponse{Student: student, DownPayment: credit}, nil
}

// Update changes profile fields and the offered fee. The cached balance and down payment are never touched.
func (s *StudentService) Update(ctx context.Context, ref string, req dto.UpdateStudentRequest, actor dto.Actor) (*dto.StudentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid student payload")
	}
	student, err := resolveStudent(ctx, s.repo, ref)
	if err != nil {
		return nil, err
	}
	before := *student

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "name cannot be empty")
		}
		student.Name = name
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		exists, err := s.repo.ExistsByEmail(ctx, email, student.ID)
		if err != nil {
			return nil, appErrors.Persistence(err, "failed to validate email")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already used").WithDetails("email", email)
		}
		student.Email = email
	}
	if req.Phone != nil {
		student.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Course != nil {
		course := strings.TrimSpace(*req.Course)
		if course == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "course cannot be empty")
		}
		student.Course = course
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown student status").WithDetails("status", *req.Status)
		}
		student.Status = *req.Status
	}
	if len(req.FeeOffered) > 0 && string(req.FeeOffered) != "null" {
		fee, err := ParseAmount(req.FeeOffered)
		if err != nil {
			return nil, appErrors.Validation(err, "feeOffered must be a positive number greater than 0").WithDetails("feeOffered", string(req.FeeOffered))
		}
		if fee.LessThan(student.DownPayment) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "feeOffered cannot be less than the down payment").
				WithDetails("feeOffered", fee.String(), "downPayment", student.DownPayment.String())
		}
		student.FeeOffered = fee
	}
	if req.JoinedDate != nil {
		student.JoinedDate = req.JoinedDate.UTC()
	}

	if err := s.repo.Update(ctx, student); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already used").WithDetails("email", student.Email)
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found").WithDetails("studentId", student.ID)
		}
		return nil, appErrors.Persistence(err, "failed to update student")
	}

	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionStudentUpdate, "student", student.ID, before, student)
	if !before.FeeOffered.Equal(student.FeeOffered) || before.Status != student.Status {
		s.cache.InvalidateFeeAnalytics(ctx)
	}
	resp := dto.NewStudentResponse(student)
	return &resp, nil
}

// Delete hard-deletes a student. Their transactions remain readable under the cached student name.
func (s *StudentService) Delete(ctx context.Context, ref string, actor dto.Actor) error {
	if !actor.IsSuperAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "only super administrators can delete students")
	}
	student, err := resolveStudent(ctx, s.repo, ref)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, student.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found").WithDetails("studentId", student.ID)
		}
		return appErrors.Persistence(err, "failed to delete student")
	}
	s.logger.Info("student deleted",
		zap.String("student_id", student.ID),
		zap.String("student_code", student.Code),
		zap.String("fees_paid", student.FeesPaid.String()),
		zap.String("deleted_by", actor.Name))
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionStudentDelete, "student", student.ID, student, nil)
	s.cache.InvalidateFeeAnalytics(ctx)
	return nil
}
