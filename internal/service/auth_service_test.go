package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/andikarf/school-core-api/internal/models"
	appErrors "github.com/andikarf/school-core-api/pkg/errors"
)

type authRepoMock struct {
	users     map[string]*models.User
	lastLogin *time.Time
}

func (m *authRepoMock) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := m.users[email]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (m *authRepoMock) FindByID(ctx context.Context, id string) (*models.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *authRepoMock) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLogin = &ts
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "school-core-api"}
}

func authUser(t *testing.T, password string, active bool) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	teacherID := "teacher-1"
	return &models.User{
		ID:           "user-1",
		Email:        "guru@school.sch.id",
		PasswordHash: string(hash),
		FullName:     "Teacher One",
		Role:         models.RoleTeacher,
		TeacherID:    &teacherID,
		Active:       active,
	}
}

func TestAuthServiceLogin(t *testing.T) {
	repo := &authRepoMock{users: map[string]*models.User{
		"guru@school.sch.id": authUser(t, "rahasia123", true),
	}}
	audit := &auditMock{}
	service := NewAuthService(repo, audit, nil, zap.NewNop(), testAuthConfig())

	resp, err := service.Login(context.Background(), models.LoginRequest{
		Email:    "guru@school.sch.id",
		Password: "rahasia123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, models.RoleTeacher, resp.User.Role)
	assert.NotNil(t, repo.lastLogin)
	assert.Contains(t, audit.actions(), models.AuditActionLogin)

	claims, err := service.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	require.NotNil(t, claims.TeacherID)
	assert.Equal(t, "teacher-1", *claims.TeacherID)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := &authRepoMock{users: map[string]*models.User{
		"guru@school.sch.id": authUser(t, "rahasia123", true),
	}}
	service := NewAuthService(repo, &auditMock{}, nil, zap.NewNop(), testAuthConfig())

	_, err := service.Login(context.Background(), models.LoginRequest{
		Email:    "guru@school.sch.id",
		Password: "salah",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	repo := &authRepoMock{users: map[string]*models.User{
		"guru@school.sch.id": authUser(t, "rahasia123", false),
	}}
	service := NewAuthService(repo, &auditMock{}, nil, zap.NewNop(), testAuthConfig())

	_, err := service.Login(context.Background(), models.LoginRequest{
		Email:    "guru@school.sch.id",
		Password: "rahasia123",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestAuthServiceValidateTokenRejectsForeignSecret(t *testing.T) {
	repo := &authRepoMock{users: map[string]*models.User{
		"guru@school.sch.id": authUser(t, "rahasia123", true),
	}}
	issuer := NewAuthService(repo, &auditMock{}, nil, zap.NewNop(), testAuthConfig())
	verifier := NewAuthService(repo, &auditMock{}, nil, zap.NewNop(), AuthConfig{Secret: "other-secret", Expiration: time.Hour})

	resp, err := issuer.Login(context.Background(), models.LoginRequest{
		Email:    "guru@school.sch.id",
		Password: "rahasia123",
	})
	require.NoError(t, err)

	_, err = verifier.ValidateToken(resp.AccessToken)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}
