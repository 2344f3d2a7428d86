package jwt_test

import (
	"strings"
	"sync"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgjwt "github.com/jhoicas/estimate-api/pkg/jwt"
)

const (
	testSecret = "test-secret-key-for-unit-tests"
	testUserID = "00000000-0000-0000-0000-000000000001"
	testEmail  = "alice@x.com"
	testIssuer = "estimate-api-test"
)

func newIssuer(t *testing.T, exp int) *pkgjwt.Issuer {
	t.Helper()
	iss, err := pkgjwt.NewIssuer(pkgjwt.Config{Secret: testSecret, ExpMinutes: exp, Issuer: testIssuer})
	require.NoError(t, err)
	return iss
}

func TestNewIssuer_SecretVacio(t *testing.T) {
	_, err := pkgjwt.NewIssuer(pkgjwt.Config{})
	assert.Error(t, err)
}

func TestGenerateAndValidate(t *testing.T) {
	iss := newIssuer(t, 60)
	tok, err := iss.GenerateToken(testUserID, testEmail, "USER")
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	assert.True(t, iss.ValidateToken(tok), "el token recién emitido debe ser válido")

	userID, err := iss.ExtractUserID(tok)
	require.NoError(t, err)
	assert.Equal(t, testUserID, userID)

	email, err := iss.ExtractEmail(tok)
	require.NoError(t, err)
	assert.Equal(t, testEmail, email)

	role, err := iss.ExtractRole(tok)
	require.NoError(t, err)
	assert.Equal(t, "USER", role)
}

func TestClaimsMinimos(t *testing.T) {
	iss := newIssuer(t, 60)
	tok, err := iss.GenerateToken(testUserID, testEmail, "ADMIN")
	require.NoError(t, err)

	claims, err := iss.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, testUserID, claims.Subject)
	assert.NotNil(t, claims.IssuedAt)
	assert.NotNil(t, claims.ExpiresAt)
	assert.True(t, claims.ExpiresAt.After(claims.IssuedAt.Time))
}

func TestTokenExpirado(t *testing.T) {
	base := time.Now()
	iss := newIssuer(t, 15).WithClock(func() time.Time { return base })
	tok, err := iss.GenerateToken(testUserID, testEmail, "USER")
	require.NoError(t, err)

	iss.WithClock(func() time.Time { return base.Add(16 * time.Minute) })
	assert.False(t, iss.ValidateToken(tok), "token expirado debe ser inválido")

	_, err = iss.ExtractUserID(tok)
	assert.ErrorIs(t, err, pkgjwt.ErrInvalidToken)
}

func TestSecretIncorrecto(t *testing.T) {
	tok, err := newIssuer(t, 60).GenerateToken(testUserID, testEmail, "USER")
	require.NoError(t, err)

	other, err := pkgjwt.NewIssuer(pkgjwt.Config{Secret: "otro-secret-completamente-distinto", Issuer: testIssuer})
	require.NoError(t, err)
	assert.False(t, other.ValidateToken(tok))
}

func TestEntradaNoConfiable(t *testing.T) {
	iss := newIssuer(t, 60)
	for _, tok := range []string{"", "abc", "token.invalido.aqui", strings.Repeat("x", 4096)} {
		assert.False(t, iss.ValidateToken(tok), "token %q", tok)
	}
}

func TestAlgoritmoNone_Rechazado(t *testing.T) {
	iss := newIssuer(t, 60)
	claims := gojwt.MapClaims{
		"sub": testUserID,
		"iss": testIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	tok, err := gojwt.NewWithClaims(gojwt.SigningMethodNone, claims).SignedString(gojwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	assert.False(t, iss.ValidateToken(tok))
}

func TestValidacionConcurrente(t *testing.T) {
	iss := newIssuer(t, 60)
	tok, err := iss.GenerateToken(testUserID, testEmail, "USER")
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]bool, 50)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = iss.ValidateToken(tok)
		}(i)
	}
	wg.Wait()
	for _, ok := range results {
		assert.True(t, ok)
	}
}
