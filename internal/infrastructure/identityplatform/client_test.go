package identityplatform_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/estimate-api/internal/domain"
	"github.com/jhoicas/estimate-api/internal/infrastructure/identityplatform"
	"github.com/jhoicas/estimate-api/pkg/logger"
)

const (
	testProject = "estimate-test"
	testKID     = "kid-1"
)

func rsaKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func newClient(t *testing.T, baseURL string, pub *rsa.PublicKey) *identityplatform.Client {
	t.Helper()
	given := keyfunc.NewGiven(map[string]keyfunc.GivenKey{
		testKID: keyfunc.NewGivenCustom(pub, keyfunc.GivenKeyOptions{Algorithm: jwt.SigningMethodRS256.Alg()}),
	})
	c, err := identityplatform.New(identityplatform.Config{
		ProjectID:          testProject,
		APIKey:             "api-key",
		IdentityToolkitURL: baseURL,
	}, logger.Nop(), identityplatform.WithKeyfunc(given.Keyfunc))
	require.NoError(t, err)
	return c
}

func signIDToken(t *testing.T, key *rsa.PrivateKey, mutate func(jwt.MapClaims)) string {
	t.Helper()
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   "https://securetoken.google.com/" + testProject,
		"aud":   testProject,
		"sub":   "uid-123",
		"email": "alice@x.com",
		"iat":   now.Add(-time.Minute).Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
	if mutate != nil {
		mutate(claims)
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = testKID
	s, err := tok.SignedString(key)
	require.NoError(t, err)
	return s
}

func TestVerifyIDToken_Valido(t *testing.T) {
	key := rsaKey(t)
	c := newClient(t, "http://unused", &key.PublicKey)

	got, err := c.VerifyIDToken(context.Background(), signIDToken(t, key, nil))
	require.NoError(t, err)
	assert.Equal(t, "uid-123", got.UID)
	assert.Equal(t, "alice@x.com", got.Email)
}

func TestVerifyIDToken_Rechazos(t *testing.T) {
	key := rsaKey(t)
	other := rsaKey(t)
	c := newClient(t, "http://unused", &key.PublicKey)

	cases := map[string]string{
		"audiencia ajena": signIDToken(t, key, func(m jwt.MapClaims) { m["aud"] = "otro-proyecto" }),
		"emisor ajeno":    signIDToken(t, key, func(m jwt.MapClaims) { m["iss"] = "https://accounts.google.com" }),
		"expirado":        signIDToken(t, key, func(m jwt.MapClaims) { m["exp"] = time.Now().Add(-time.Minute).Unix() }),
		"sin sub":         signIDToken(t, key, func(m jwt.MapClaims) { delete(m, "sub") }),
		"firma ajena":     signIDToken(t, other, nil),
		"basura":          "no.es.un.jwt",
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.VerifyIDToken(context.Background(), tok)
			assert.ErrorIs(t, err, identityplatform.ErrInvalidIDToken)
			assert.ErrorIs(t, err, domain.ErrInvalidToken)
		})
	}
}

func TestSignUp_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/accounts:signUp", r.URL.Path)
		assert.Equal(t, "api-key", r.URL.Query().Get("key"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alice@x.com", body["email"])
		assert.Equal(t, true, body["returnSecureToken"])

		_ = json.NewEncoder(w).Encode(map[string]string{
			"localId": "uid-123",
			"email":   "alice@x.com",
			"idToken": "id-token",
		})
	}))
	defer srv.Close()

	key := rsaKey(t)
	acct, err := newClient(t, srv.URL, &key.PublicKey).SignUp(context.Background(), "alice@x.com", "Secreta123")
	require.NoError(t, err)
	assert.Equal(t, "uid-123", acct.UID)
	assert.Equal(t, "id-token", acct.IDToken)
}

func TestSignUp_Errores(t *testing.T) {
	cases := []struct {
		name    string
		message string
		check   func(t *testing.T, err error)
	}{
		{"email existente", "EMAIL_EXISTS", func(t *testing.T, err error) {
			assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)
		}},
		{"password débil", "WEAK_PASSWORD : Password should be at least 6 characters", func(t *testing.T, err error) {
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		}},
		{"otro", "OPERATION_NOT_ALLOWED", func(t *testing.T, err error) {
			require.Error(t, err)
			assert.NotErrorIs(t, err, domain.ErrEmailAlreadyExists)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"error": map[string]interface{}{"code": 400, "message": tc.message},
				})
			}))
			defer srv.Close()

			key := rsaKey(t)
			_, err := newClient(t, srv.URL, &key.PublicKey).SignUp(context.Background(), "alice@x.com", "x")
			tc.check(t, err)
		})
	}
}

func TestNew_SinProyecto(t *testing.T) {
	_, err := identityplatform.New(identityplatform.Config{}, nil)
	assert.Error(t, err)
}
