package dto

import (
	"time"

	"github.com/noah-isme/lms-admin-api/internal/models"
)

// CreateEMIPlanRequest captures POST /emi-plans.
type CreateEMIPlanRequest struct {
	StudentID            string              `json:"studentId" validate:"required"`
	NumberOfInstallments int                 `json:"numberOfInstallments"`
	Frequency            models.EMIFrequency `json:"frequency" validate:"required"`
	IntervalDays         *int                `json:"intervalDays,omitempty"`
	StartDate            *time.Time          `json:"startDate,omitempty"`
}
