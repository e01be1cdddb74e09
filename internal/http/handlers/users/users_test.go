package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/princekumarofficial/video-service/internal/storage"
	"github.com/princekumarofficial/video-service/internal/utils/jwt"
)

type memoryAccounts struct {
	byEmail map[string][2]string
}

func (m *memoryAccounts) CreateUser(_ context.Context, _, email, password string) (string, error) {
	if m.byEmail == nil {
		m.byEmail = map[string][2]string{}
	}
	if _, ok := m.byEmail[email]; ok {
		return "", storage.ErrDuplicateEmail
	}
	id := "user-" + email
	m.byEmail[email] = [2]string{id, password}
	return id, nil
}

func (m *memoryAccounts) GetUserByEmail(_ context.Context, email string) (string, string, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return "", "", storage.ErrNotFound
	}
	return u[0], u[1], nil
}

func post(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	return rec
}

func TestSignUpAndLogin(t *testing.T) {
	accounts := &memoryAccounts{}
	signup := SignUp(accounts)
	login := Login(accounts, "secret")

	rec := post(signup, `{"name":"Ada","email":"Ada@example.com","password":"longenough"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = post(signup, `{"name":"Ada","email":"ada@example.com","password":"longenough"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = post(login, `{"email":"ada@example.com","password":"wrong-password"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(login, `{"email":"ada@example.com","password":"longenough"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	userID, err := jwt.ExtractUserIDFromToken(body["token"], "secret")
	require.NoError(t, err)
	require.Equal(t, body["user_id"], userID)
}

func TestSignUp_Validation(t *testing.T) {
	signup := SignUp(&memoryAccounts{})

	require.Equal(t, http.StatusBadRequest, post(signup, ``).Code)
	require.Equal(t, http.StatusBadRequest, post(signup, `{"name":"Ada","email":"not-an-email","password":"longenough"}`).Code)
	require.Equal(t, http.StatusBadRequest, post(signup, `{"name":"Ada","email":"ada@example.com","password":"short"}`).Code)
}
