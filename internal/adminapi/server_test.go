package adminapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"futures-gateway/internal/catalog"
	"futures-gateway/internal/ledger"
	"futures-gateway/internal/persistence"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, creds []Credential) *Server {
	t.Helper()
	db, err := persistence.Open(filepath.Join(t.TempDir(), "admin_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, persistence.ApplyMigrations(db))
	store := persistence.NewStore(db)

	accounts := ledger.NewAccountLedger()
	accounts.Seed(ledger.Account{AccountID: "ACC1", Balance: 1000, Available: 1000})

	return New(accounts, ledger.NewPositionLedger(), catalog.New(), store, nil, nil, "test-secret", creds)
}

func doLogin(t *testing.T, s *Server, accountID, password string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(map[string]string{"account_id": accountID, "password": password})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)
	return rec
}

func TestLoginSucceedsWithCorrectPassword(t *testing.T) {
	s := newTestServer(t, []Credential{{AccountID: "ACC1", Password: "hunter2"}})
	rec := doLogin(t, s, "ACC1", "hunter2")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	s := newTestServer(t, []Credential{{AccountID: "ACC1", Password: "hunter2"}})
	rec := doLogin(t, s, "ACC1", "wrong")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRejectsAccountWithNoConfiguredPassword(t *testing.T) {
	s := newTestServer(t, nil)
	rec := doLogin(t, s, "ACC1", "anything")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRejectsUnknownAccount(t *testing.T) {
	s := newTestServer(t, []Credential{{AccountID: "ACC1", Password: "hunter2"}})
	rec := doLogin(t, s, "NOPE", "hunter2")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	s := newTestServer(t, []Credential{{AccountID: "ACC1", Password: "hunter2"}})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/ACC1/balance", nil)
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareAcceptsTokenForOwnAccount(t *testing.T) {
	s := newTestServer(t, []Credential{{AccountID: "ACC1", Password: "hunter2"}})
	loginRec := doLogin(t, s, "ACC1", "hunter2")
	require.Equal(t, http.StatusOK, loginRec.Code)
	var loginResp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(loginRec.Body.Bytes(), &loginResp))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/ACC1/balance", nil)
	req.Header.Set("Authorization", "Bearer "+loginResp.Token)
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
