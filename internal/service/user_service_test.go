package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/lms-admin-api/internal/models"
	"github.com/noah-isme/lms-admin-api/internal/repository"
	appErrors "github.com/noah-isme/lms-admin-api/pkg/errors"
)

type mockUserRepo struct {
	users     map[string]*models.User
	auditLogs []*models.AuditLog
	createErr error
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.users[email]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.users == nil {
		m.users = make(map[string]*models.User)
	}
	user.ID = "user-" + user.Email
	copy := *user
	m.users[user.Email] = &copy
	return nil
}

func (m *mockUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func TestUserServiceCreate(t *testing.T) {
	repo := &mockUserRepo{}
	svc := NewUserService(repo, nil, nil)

	user, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "Owner@LMS.test",
		FullName: "Owner",
		Role:     models.RoleSuperAdmin,
		Password: "correct horse",
	}, superActor)
	require.NoError(t, err)
	assert.Equal(t, "owner@lms.test", user.Email)
	assert.True(t, user.Active)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct horse")))
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionUserCreate, repo.auditLogs[0].Action)

	_, err = svc.Create(context.Background(), CreateUserRequest{
		Email: "owner@lms.test", FullName: "Dup", Role: models.RoleAdmin, Password: "another pass",
	}, superActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appCode(t, err))
}

func TestUserServiceCreateLosesInsertRace(t *testing.T) {
	repo := &mockUserRepo{createErr: repository.ErrDuplicateUser}
	svc := NewUserService(repo, nil, nil)

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Email: "late@lms.test", FullName: "Late", Role: models.RoleAdmin, Password: "long enough",
	}, superActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appCode(t, err))
	assert.Empty(t, repo.auditLogs)
}

func TestUserServiceCreateValidation(t *testing.T) {
	svc := NewUserService(&mockUserRepo{}, nil, nil)
	_, err := svc.Create(context.Background(), CreateUserRequest{
		Email: "staff@lms.test", FullName: "Staff", Role: "TEACHER", Password: "long enough",
	}, superActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appCode(t, err))

	_, err = svc.Create(context.Background(), CreateUserRequest{
		Email: "staff@lms.test", FullName: "Staff", Role: models.RoleAdmin, Password: "short",
	}, superActor)
	assert.Equal(t, appErrors.ErrValidation.Code, appCode(t, err))
}
