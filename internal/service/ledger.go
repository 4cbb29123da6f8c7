package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-admin-api/internal/dto"
	"github.com/noah-isme/lms-admin-api/internal/models"
	appErrors "github.com/noah-isme/lms-admin-api/pkg/errors"
)

// studentFinder resolves students by internal id or human code.
type studentFinder interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByCode(ctx context.Context, code string) (*models.Student, error)
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// resolveStudent looks a student up by internal id first, then by code.
func resolveStudent(ctx context.Context, repo studentFinder, ref string) (*models.Student, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "studentId is required")
	}

	student, err := repo.FindByID(ctx, ref)
	if err == nil {
		return student, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Persistence(err, "failed to load student")
	}

	student, err = repo.FindByCode(ctx, ref)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found").WithDetails("studentId", ref)
		}
		return nil, appErrors.Persistence(err, "failed to load student")
	}
	return student, nil
}

// recordAudit writes an audit row and only logs on failure.
func recordAudit(ctx context.Context, repo auditRecorder, logger *zap.Logger, actor dto.Actor, action, resource, resourceID string, oldValues, newValues interface{}) {
	if repo == nil {
		return
	}
	entry := &models.AuditLog{
		Action:    action,
		Resource:  resource,
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
	}
	if actor.UserID != "" {
		userID := actor.UserID
		entry.UserID = &userID
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	if oldValues != nil {
		entry.OldValues, _ = json.Marshal(oldValues)
	}
	if newValues != nil {
		entry.NewValues, _ = json.Marshal(newValues)
	}
	if err := repo.CreateAuditLog(ctx, entry); err != nil {
		logger.Warn("failed to record audit log", zap.String("action", action), zap.String("resource_id", resourceID), zap.Error(err))
	}
}
