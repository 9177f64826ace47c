package service_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/shipment-tracker/internal/auth"
	"github.com/spec-kit/shipment-tracker/internal/config"
	"github.com/spec-kit/shipment-tracker/internal/domain"
	"github.com/spec-kit/shipment-tracker/internal/service"
)

func newAuthService(users *mockUserRepo) *service.AuthService {
	cfg := config.Config{Auth: config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 5,
		BcryptCost:            4, // min cost keeps tests fast
	}}
	return service.NewAuthService(cfg, users)
}

func TestRegister_IssuesRoleBearingToken(t *testing.T) {
	users := &mockUserRepo{
		getByEmail: func(_ context.Context, _ string) (*domain.User, error) {
			return nil, pgx.ErrNoRows
		},
		create: func(_ context.Context, user *domain.User) error {
			user.ID = "drv-1"
			user.Active = true
			return nil
		},
	}
	svc := newAuthService(users)

	user, token, exp, err := svc.Register(context.Background(), service.RegisterInput{
		Name:     "Dana Driver",
		Email:    "dana@example.com",
		Password: "hunter22",
		Role:     domain.RoleDriver,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleDriver, user.Role)
	assert.False(t, exp.IsZero())

	claims, err := svc.TokenManager().ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "drv-1", claims.UserID)
	assert.Equal(t, domain.RoleDriver, claims.Role)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	users := &mockUserRepo{
		getByEmail: func(_ context.Context, _ string) (*domain.User, error) {
			return supplierFixture(), nil
		},
	}
	svc := newAuthService(users)

	_, _, _, err := svc.Register(context.Background(), service.RegisterInput{
		Email: "taken@example.com", Password: "pw", Role: domain.RoleSupplier,
	})
	assert.Equal(t, "CONFLICT", domainCode(t, err))
}

func TestLogin(t *testing.T) {
	hash, err := auth.HashPassword("hunter22", 4)
	require.NoError(t, err)

	account := &domain.User{
		ID: "sup-1", Email: "acme@example.com",
		PasswordHash: hash, Role: domain.RoleSupplier, Active: true,
	}
	users := &mockUserRepo{
		getByEmail: func(_ context.Context, email string) (*domain.User, error) {
			if email == account.Email {
				clone := *account
				return &clone, nil
			}
			return nil, pgx.ErrNoRows
		},
	}
	svc := newAuthService(users)

	t.Run("valid credentials", func(t *testing.T) {
		user, token, _, err := svc.Login(context.Background(), account.Email, "hunter22")
		require.NoError(t, err)
		assert.Equal(t, account.ID, user.ID)
		assert.NotEmpty(t, token)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, _, err := svc.Login(context.Background(), account.Email, "wrong")
		assert.Equal(t, "UNAUTHENTICATED", domainCode(t, err))
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, _, err := svc.Login(context.Background(), "nobody@example.com", "hunter22")
		assert.Equal(t, "UNAUTHENTICATED", domainCode(t, err))
	})

	t.Run("deactivated account", func(t *testing.T) {
		account.Active = false
		defer func() { account.Active = true }()
		_, _, _, err := svc.Login(context.Background(), account.Email, "hunter22")
		assert.Equal(t, "ACCOUNT_INACTIVE", domainCode(t, err))
	})
}

func TestDeactivateUser(t *testing.T) {
	var deactivated string
	users := &mockUserRepo{
		deactivate: func(_ context.Context, id string) error {
			deactivated = id
			return nil
		},
	}
	svc := newAuthService(users)

	err := svc.DeactivateUser(context.Background(), supplierFixture(), "drv-1")
	assert.Equal(t, "FORBIDDEN", domainCode(t, err))

	admin := adminFixture()
	err = svc.DeactivateUser(context.Background(), admin, admin.ID)
	assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err))

	require.NoError(t, svc.DeactivateUser(context.Background(), admin, "drv-1"))
	assert.Equal(t, "drv-1", deactivated)
}

func TestStats_AdminOnly(t *testing.T) {
	users := &mockUserRepo{
		countByRole: func(_ context.Context) (map[domain.Role]int64, error) {
			return map[domain.Role]int64{domain.RoleDriver: 3}, nil
		},
	}
	svc := newAuthService(users)

	_, err := svc.Stats(context.Background(), supplierFixture())
	assert.Equal(t, "FORBIDDEN", domainCode(t, err))

	counts, err := svc.Stats(context.Background(), adminFixture())
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts[domain.RoleDriver])
}
