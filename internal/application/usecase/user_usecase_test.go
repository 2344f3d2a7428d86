package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/estimate-api/internal/application/dto"
	"github.com/jhoicas/estimate-api/internal/application/usecase"
	"github.com/jhoicas/estimate-api/internal/domain"
	"github.com/jhoicas/estimate-api/internal/domain/entity"
	"github.com/jhoicas/estimate-api/internal/infrastructure/security"
	"github.com/jhoicas/estimate-api/internal/infrastructure/sqlite"
	"github.com/jhoicas/estimate-api/pkg/logger"
)

// passwordsProvider solo aporta ManagesPasswords; el resto no se usa aquí.
type passwordsProvider struct {
	managed bool
}

func (p passwordsProvider) Authenticate(context.Context, string, string) (*entity.AuthResult, error) {
	return nil, domain.ErrUnsupportedAuthOperation
}

func (p passwordsProvider) RegisterUser(context.Context, entity.RegisterUserData) (*entity.AuthResult, error) {
	return nil, domain.ErrUnsupportedAuthOperation
}

func (p passwordsProvider) ValidateToken(context.Context, string) bool { return false }

func (p passwordsProvider) ExtractUserInfo(context.Context, string) (*entity.UserAuthInfo, error) {
	return nil, domain.ErrUnauthenticated
}

func (p passwordsProvider) ManagesPasswords() bool { return p.managed }

func (p passwordsProvider) Type() entity.ProviderType {
	if p.managed {
		return entity.ProviderCustomJWT
	}
	return entity.ProviderGCPIdentity
}

type recordingDeleter struct {
	name  string
	calls *[]string
	err   error
}

func (d recordingDeleter) DeleteByUserID(_ context.Context, userID string) error {
	*d.calls = append(*d.calls, d.name+":"+userID)
	return d.err
}

type fixture struct {
	store   *sqlite.UserStore
	encoder *security.BcryptEncoder
	uc      *usecase.UserUseCase
	user    *entity.User
}

func newFixture(t *testing.T, managesPasswords bool) *fixture {
	t.Helper()
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	enc := security.NewBcryptEncoder(bcrypt.MinCost)
	hash, err := enc.Encode("Actual1234")
	require.NoError(t, err)
	u := &entity.User{ID: "u-1", Email: "alice@x.com", PasswordHash: hash, Role: entity.RoleUser, CompanyName: "Reformas SA"}
	require.NoError(t, store.Create(context.Background(), u))

	uc := usecase.NewUserUseCase(store, passwordsProvider{managed: managesPasswords}, enc, "CO", logger.Nop())
	return &fixture{store: store, encoder: enc, uc: uc, user: u}
}

func TestGetByID_PropietarioOAdmin(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	out, err := f.uc.GetByID(ctx, entity.UserAuthInfo{UserID: "u-1", Role: entity.RoleUser}, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", out.Email)
	assert.Equal(t, "Reformas SA", out.CompanyName)

	_, err = f.uc.GetByID(ctx, entity.UserAuthInfo{UserID: "u-2", Role: entity.RoleUser}, "u-1")
	assert.ErrorIs(t, err, domain.ErrUnauthorizedAccess)

	_, err = f.uc.GetByID(ctx, entity.UserAuthInfo{UserID: "u-9", Role: entity.RoleAdmin}, "u-1")
	assert.NoError(t, err)

	_, err = f.uc.GetByID(ctx, entity.UserAuthInfo{UserID: "u-9", Role: entity.RoleAdmin}, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t, true)
	out, err := f.uc.UpdateProfile(context.Background(), "u-1", dto.UpdateProfileRequest{
		CompanyName: "Obras Norte",
		Phone:       "+57 300 123 4567",
	})
	require.NoError(t, err)
	assert.Equal(t, "Obras Norte", out.CompanyName)
	assert.Equal(t, "+573001234567", out.Phone)

	_, err = f.uc.UpdateProfile(context.Background(), "u-1", dto.UpdateProfileRequest{Phone: "abc"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	err := f.uc.ChangePassword(ctx, "u-1", dto.ChangePasswordRequest{OldPassword: "incorrecta", NewPassword: "Nueva12345"})
	assert.ErrorIs(t, err, domain.ErrInvalidPassword)

	require.NoError(t, f.uc.ChangePassword(ctx, "u-1", dto.ChangePasswordRequest{OldPassword: "Actual1234", NewPassword: "Nueva12345"}))
	u, err := f.store.FindByID(ctx, "u-1")
	require.NoError(t, err)
	assert.True(t, f.encoder.Matches("Nueva12345", u.PasswordHash))
	assert.False(t, f.encoder.Matches("Actual1234", u.PasswordHash))
}

func TestChangePassword_ProveedorDelegado(t *testing.T) {
	f := newFixture(t, false)
	err := f.uc.ChangePassword(context.Background(), "u-1", dto.ChangePasswordRequest{OldPassword: "Actual1234", NewPassword: "Nueva12345"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedAuthOperation)
}

func TestDeleteAccount_DependientesPrimero(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	var calls []string
	f.uc.RegisterOwnedRecords(
		recordingDeleter{name: "estimates", calls: &calls},
		recordingDeleter{name: "works", calls: &calls},
	)

	require.NoError(t, f.uc.DeleteAccount(ctx, "u-1"))
	assert.Equal(t, []string{"estimates:u-1", "works:u-1"}, calls)

	u, err := f.store.FindByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Nil(t, u)

	assert.ErrorIs(t, f.uc.DeleteAccount(ctx, "u-1"), domain.ErrNotFound)
}

func TestDeleteAccount_FalloEnDependienteConservaIdentidad(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	var calls []string
	f.uc.RegisterOwnedRecords(recordingDeleter{name: "works", calls: &calls, err: errors.New("fk")})

	require.Error(t, f.uc.DeleteAccount(ctx, "u-1"))
	u, err := f.store.FindByID(ctx, "u-1")
	require.NoError(t, err)
	assert.NotNil(t, u)
}
