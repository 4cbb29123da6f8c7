package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/lms-admin-api/internal/models"
)

// CreateStudentRequest captures POST /students.
type CreateStudentRequest struct {
	Name        string               `json:"name" validate:"required,max=200"`
	Email       string               `json:"email" validate:"required,email"`
	Phone       string               `json:"phone" validate:"omitempty,max=32"`
	Course      string               `json:"course" validate:"required,max=200"`
	Status      models.StudentStatus `json:"status"`
	FeeOffered  json.RawMessage      `json:"feeOffered" swaggertype:"number"`
	DownPayment json.RawMessage      `json:"downPayment,omitempty" swaggertype:"number"`
	PaymentMode string               `json:"paymentMode,omitempty"`
	JoinedDate  *time.Time           `json:"joinedDate,omitempty"`
}

// UpdateStudentRequest captures PUT /students/:id. Balance fields are not accepted.
type UpdateStudentRequest struct {
	Name       *string               `json:"name" validate:"omitempty,max=200"`
	Email      *string               `json:"email" validate:"omitempty,email"`
	Phone      *string               `json:"phone" validate:"omitempty,max=32"`
	Course     *string               `json:"course" validate:"omitempty,max=200"`
	Status     *models.StudentStatus `json:"status"`
	FeeOffered json.RawMessage       `json:"feeOffered,omitempty" swaggertype:"number"`
	JoinedDate *time.Time            `json:"joinedDate,omitempty"`
}

// StudentResponse adds the derived pending amount to a student.
type StudentResponse struct {
	*models.Student
	PendingAmount decimal.Decimal `json:"pendingAmount"`
}

// NewStudentResponse wraps a student with its pending amount.
func NewStudentResponse(student *models.Student) StudentResponse {
	return StudentResponse{Student: student, PendingAmount: student.PendingAmount()}
}

// StudentCreatedResponse is returned by POST /students.
type StudentCreatedResponse struct {
	Student     *models.Student     `json:"student"`
	DownPayment *models.Transaction `json:"downPayment,omitempty"`
}
