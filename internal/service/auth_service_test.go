package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lnhs-portal/docrequest-api/internal/models"
	appErrors "github.com/lnhs-portal/docrequest-api/pkg/errors"
)

type mockAuthRepo struct {
	users           map[string]*models.User
	emails          map[string]bool
	studentIDs      map[string]bool
	refreshTokens   map[string]*models.RefreshToken
	created         []*models.User
	lastLoginSet    bool
	passwordUpdated string
	revokedAllFor   string
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{
		users:         make(map[string]*models.User),
		emails:        make(map[string]bool),
		studentIDs:    make(map[string]bool),
		refreshTokens: make(map[string]*models.RefreshToken),
	}
}

func (m *mockAuthRepo) addUser(u *models.User) {
	m.users[u.ID] = u
	m.emails[u.Email] = true
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (m *mockAuthRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	return m.emails[email], nil
}

func (m *mockAuthRepo) StudentIDExists(ctx context.Context, studentID string) (bool, error) {
	return m.studentIDs[studentID], nil
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = "user-" + user.Email
	m.addUser(user)
	m.created = append(m.created, user)
	return nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginSet = true
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	m.passwordUpdated = passwordHash
	if u, ok := m.users[id]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedAllFor = userID
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := m.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

type mockActivity struct {
	entries []*models.ActivityLog
	err     error
}

func (m *mockActivity) Create(ctx context.Context, entry *models.ActivityLog) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockActivity) actions() []string {
	var out []string
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
		Issuer:             "docrequest-api",
	}
}

func hashPassword(t *testing.T, plain string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthServiceLogin(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(&models.User{
		ID:           "user-1",
		Email:        "juan@example.com",
		PasswordHash: hashPassword(t, "secret123"),
		FirstName:    "Juan",
		LastName:     "Dela Cruz",
		Role:         models.RoleStudent,
		Active:       true,
	})
	activity := &mockActivity{}
	svc := NewAuthService(repo, activity, nil, nil, testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "juan@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "Juan Dela Cruz", resp.User.FullName)
	assert.True(t, repo.lastLoginSet)
	assert.Contains(t, activity.actions(), models.ActivityLogin)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(&models.User{
		ID:           "user-1",
		Email:        "juan@example.com",
		PasswordHash: hashPassword(t, "secret123"),
		Active:       true,
	})
	svc := NewAuthService(repo, nil, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "juan@example.com",
		Password: "wrong",
	})
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(&models.User{
		ID:           "user-1",
		Email:        "juan@example.com",
		PasswordHash: hashPassword(t, "secret123"),
		Active:       false,
	})
	svc := NewAuthService(repo, nil, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "juan@example.com",
		Password: "secret123",
	})
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestAuthServiceRegister(t *testing.T) {
	repo := newMockAuthRepo()
	activity := &mockActivity{}
	svc := NewAuthService(repo, activity, nil, nil, testAuthConfig())

	studentID := "2020-00123"
	resp, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:     "maria@example.com",
		Password:  "secret123",
		FirstName: "Maria",
		LastName:  "Santos",
		Role:      models.RoleStudent,
		StudentID: &studentID,
	})
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	assert.True(t, repo.created[0].Active)
	assert.NotEqual(t, "secret123", repo.created[0].PasswordHash)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Contains(t, activity.actions(), models.ActivityRegistered)
}

func TestAuthServiceRegisterRejectsStaffRole(t *testing.T) {
	svc := NewAuthService(newMockAuthRepo(), nil, nil, nil, testAuthConfig())

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:     "staff@example.com",
		Password:  "secret123",
		FirstName: "Ana",
		LastName:  "Reyes",
		Role:      models.RoleStaff,
	})
	require.Error(t, err)
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	repo := newMockAuthRepo()
	repo.emails["maria@example.com"] = true
	svc := NewAuthService(repo, nil, nil, nil, testAuthConfig())

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:     "maria@example.com",
		Password:  "secret123",
		FirstName: "Maria",
		LastName:  "Santos",
		Role:      models.RoleAlumni,
	})
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrDuplicateEmail.Code, appErr.Code)
}

func TestAuthServiceRefreshTokenRotates(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(&models.User{
		ID:           "user-1",
		Email:        "juan@example.com",
		PasswordHash: hashPassword(t, "secret123"),
		Active:       true,
	})
	svc := NewAuthService(repo, nil, nil, nil, testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "juan@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)
	assert.True(t, repo.refreshTokens[login.RefreshToken].Revoked)

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
}

func TestAuthServiceChangePassword(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(&models.User{
		ID:           "user-1",
		Email:        "juan@example.com",
		PasswordHash: hashPassword(t, "oldpass1"),
		Active:       true,
	})
	svc := NewAuthService(repo, nil, nil, nil, testAuthConfig())

	err := svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{
		CurrentPassword: "wrong",
		NewPassword:     "newpass1",
	})
	require.Error(t, err)

	err = svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{
		CurrentPassword: "oldpass1",
		NewPassword:     "newpass1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, repo.passwordUpdated)
	assert.Equal(t, "user-1", repo.revokedAllFor)
}
