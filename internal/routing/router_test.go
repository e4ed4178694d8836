package routing

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"server-identity/internal/config"
	"server-identity/internal/identity"
	"server-identity/internal/managers"
	"server-identity/internal/managers/mocks"
	"server-identity/internal/repositories"
	"server-identity/internal/schemas"
	"server-identity/internal/utils"
)

const (
	testEmail    = "test@example.com"
	testPassword = "Str0ng!Secret"
)

type testServer struct {
	expect  *httpexpect.Expect
	mailbox *mailbox
	pool    pgxmock.PgxPoolIface
	store   *repositories.MemoryStore
}

// mailbox records the links sent by the mail manager mock.
type mailbox struct {
	mu    sync.Mutex
	links map[string][]string
}

func (m *mailbox) record(method, link string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[method] = append(m.links[method], link)
}

func (m *mailbox) count(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.links[method])
}

func (m *mailbox) last(method string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	links := m.links[method]
	if len(links) == 0 {
		return "", false
	}
	return links[len(links)-1], true
}

func newMailManagerMock(box *mailbox) *mocks.MockMailManager {
	mailMgr := &mocks.MockMailManager{}
	for _, method := range []string{"SendVerificationMail", "SendPasswordResetMail", "SendEmailChangeMail"} {
		method := method
		mailMgr.On(method, mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { box.record(method, args.String(2)) }).
			Return(nil)
	}
	mailMgr.On("SendPasswordChangedMail", mock.Anything, mock.Anything).Return(nil)
	return mailMgr
}

func setupServer(t *testing.T, configure func(cfg *config.Config)) *testServer {
	t.Helper()

	cfg := &config.Config{Environment: "test", FrontendURL: "http://localhost:5173"}
	if configure != nil {
		configure(cfg)
	}

	poolMock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(poolMock.Close)
	databaseMgr := managers.NewDatabaseManager(poolMock)

	key, err := managers.GenerateKey()
	require.NoError(t, err)
	cipher, err := managers.NewCipherManager([]string{key})
	require.NoError(t, err)

	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	jwtMgr := managers.NewJWTManager(privateKey, publicKey)

	box := &mailbox{links: map[string][]string{}}
	store := repositories.NewMemoryStore()
	service := identity.NewService(cfg, store, newMailManagerMock(box),
		managers.NewActivationTokenManager(cipher, 24*time.Hour),
		managers.NewClaimsManager("claims-secret", 30*time.Minute, 2*time.Minute),
		jwtMgr, utils.GetValidator())

	server := httptest.NewServer(InitRouter(cfg, databaseMgr, jwtMgr, service))
	t.Cleanup(server.Close)

	return &testServer{expect: httpexpect.Default(t, server.URL), mailbox: box, pool: poolMock, store: store}
}

// lastToken returns the token of the link in the latest mail of the given kind.
func (s *testServer) lastToken(t *testing.T, method string) string {
	t.Helper()

	raw, ok := s.mailbox.last(method)
	require.True(t, ok, "no %s call recorded", method)

	link, err := url.Parse(raw)
	require.NoError(t, err)
	return link.Query().Get("token")
}

// registerVerifiedUser registers testEmail through the API and confirms the address.
func (s *testServer) registerVerifiedUser(t *testing.T) {
	t.Helper()

	s.expect.POST("/api/users/").
		WithJSON(map[string]string{"email": testEmail, "password": testPassword, "firstName": "Test", "lastName": "User"}).
		Expect().
		Status(http.StatusCreated)

	s.expect.POST("/api/users/verify-email").
		WithJSON(map[string]string{"token": s.lastToken(t, "SendVerificationMail")}).
		Expect().
		Status(http.StatusOK)
}

func (s *testServer) login(password string) *httpexpect.Object {
	return s.expect.POST("/api/users/login").
		WithJSON(map[string]string{"email": testEmail, "password": password}).
		Expect().
		Status(http.StatusOK).
		JSON().Object()
}

func expectError(response *httpexpect.Response, status int, code string) {
	response.Status(status).JSON().Object().Value("error").Object().Value("code").String().IsEqual(code)
}

func TestMetadataAndHeaders(t *testing.T) {
	s := setupServer(t, nil)

	response := s.expect.GET("/").Expect().Status(http.StatusOK)
	response.Header("Cache-Control").IsEqual("no-store")
	response.Header("Pragma").IsEqual("no-cache")
	response.Header("X-Trace-Id").NotEmpty()
	response.JSON().Object().HasValue("apiName", "Server Identity")
}

func TestHealth(t *testing.T) {
	s := setupServer(t, nil)

	s.pool.ExpectPing()
	s.expect.GET("/health").Expect().Status(http.StatusOK)
	require.NoError(t, s.pool.ExpectationsWereMet())

	s.pool.ExpectPing().WillReturnError(errors.New("connection refused"))
	expectError(s.expect.GET("/health").Expect(), http.StatusServiceUnavailable, "ERR-500")
	require.NoError(t, s.pool.ExpectationsWereMet())
}

func TestHealthWithMockedManager(t *testing.T) {
	databaseMgrMock := &mocks.MockDatabaseManager{}
	databaseMgrMock.On("Healthy", mock.Anything).Return(nil)

	key, err := managers.GenerateKey()
	require.NoError(t, err)
	cipher, err := managers.NewCipherManager([]string{key})
	require.NoError(t, err)
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	jwtMgr := managers.NewJWTManager(privateKey, publicKey)

	cfg := &config.Config{FrontendURL: "http://localhost:5173"}
	service := identity.NewService(cfg, repositories.NewMemoryStore(), mocks.NewPermissiveMailManager(),
		managers.NewActivationTokenManager(cipher, time.Hour), managers.NewClaimsManager("secret", time.Minute, 0),
		jwtMgr, utils.GetValidator())

	server := httptest.NewServer(InitRouter(cfg, databaseMgrMock, jwtMgr, service))
	defer server.Close()

	httpexpect.Default(t, server.URL).GET("/health").Expect().Status(http.StatusOK)
	databaseMgrMock.AssertCalled(t, "Healthy", mock.Anything)
}

func TestUserRegistration(t *testing.T) {
	testCases := []struct {
		name   string
		body   map[string]string
		status int
		code   string
	}{
		{
			"ValidRegistration",
			map[string]string{"email": testEmail, "password": testPassword, "firstName": "Test", "lastName": "User"},
			http.StatusCreated,
			"",
		},
		{
			"InvalidEmail",
			map[string]string{"email": "test@example@.com", "password": testPassword, "firstName": "Test"},
			http.StatusBadRequest,
			"ERR-001",
		},
		{
			"MissingFirstName",
			map[string]string{"email": testEmail, "password": testPassword},
			http.StatusBadRequest,
			"ERR-001",
		},
		{
			"WeakPassword",
			map[string]string{"email": testEmail, "password": "password", "firstName": "Test"},
			http.StatusBadRequest,
			"ERR-008",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := setupServer(t, nil)

			response := s.expect.POST("/api/users/").WithJSON(tc.body).Expect()
			if tc.code != "" {
				expectError(response, tc.status, tc.code)
				return
			}

			user := response.Status(tc.status).JSON().Object()
			user.HasValue("email", testEmail)
			user.HasValue("firstName", "Test")
			user.HasValue("fullName", "Test User")
			user.NotContainsKey("password")
		})
	}
}

func TestUserRegistrationDuplicateEmail(t *testing.T) {
	s := setupServer(t, nil)
	s.registerVerifiedUser(t)

	response := s.expect.POST("/api/users/").
		WithJSON(map[string]string{"email": testEmail, "password": testPassword, "firstName": "Other"}).
		Expect()
	expectError(response, http.StatusConflict, "ERR-002")
}

func TestWeakPasswordDetails(t *testing.T) {
	s := setupServer(t, nil)

	details := s.expect.POST("/api/users/").
		WithJSON(map[string]string{"email": testEmail, "password": "1234", "firstName": "Test"}).
		Expect().
		Status(http.StatusBadRequest).
		JSON().Object().Value("error").Object().Value("details").Array()
	details.NotEmpty()
	details.ContainsAny("This password is entirely numeric.")
}

func TestLoginAndSessionLifecycle(t *testing.T) {
	s := setupServer(t, nil)
	s.registerVerifiedUser(t)

	expectError(s.expect.POST("/api/users/login").
		WithJSON(map[string]string{"email": testEmail, "password": "Wrong.Password1"}).
		Expect(), http.StatusUnauthorized, "ERR-009")

	session := s.login(testPassword)
	session.Value("user").Object().HasValue("email", testEmail)
	token := session.Value("token").String().Raw()
	refreshToken := session.Value("refreshToken").String().Raw()

	s.expect.GET("/api/users/me").
		WithHeader("Authorization", "Bearer "+token).
		Expect().
		Status(http.StatusOK).
		JSON().Object().HasValue("email", testEmail)

	refreshed := s.expect.POST("/api/users/refresh").
		WithJSON(map[string]string{"refreshToken": refreshToken}).
		Expect().
		Status(http.StatusOK).
		JSON().Object()
	refreshed.Value("token").String().NotEmpty()

	s.expect.POST("/api/users/logout").
		WithHeader("Authorization", "Bearer "+token).
		Expect().
		Status(http.StatusOK)

	expectError(s.expect.GET("/api/users/me").
		WithHeader("Authorization", "Bearer "+token).
		Expect(), http.StatusUnauthorized, "ERR-019")

	expectError(s.expect.POST("/api/users/refresh").
		WithJSON(map[string]string{"refreshToken": refreshToken}).
		Expect(), http.StatusUnauthorized, "ERR-019")
}

func TestAuthenticationRequired(t *testing.T) {
	s := setupServer(t, nil)
	s.registerVerifiedUser(t)
	session := s.login(testPassword)

	expectError(s.expect.GET("/api/users/me").Expect(), http.StatusUnauthorized, "ERR-014")

	expectError(s.expect.GET("/api/users/me").
		WithHeader("Authorization", "Bearer not-a-jwt").
		Expect(), http.StatusUnauthorized, "ERR-014")

	expectError(s.expect.GET("/api/users/me").
		WithHeader("Authorization", "Bearer "+session.Value("refreshToken").String().Raw()).
		Expect(), http.StatusUnauthorized, "ERR-014")
}

func TestPasswordResetFlow(t *testing.T) {
	s := setupServer(t, nil)
	s.registerVerifiedUser(t)

	known := s.expect.POST("/api/users/password-reset").
		WithJSON(map[string]string{"email": testEmail}).
		Expect().
		Status(http.StatusOK).
		JSON().Object().Raw()
	unknown := s.expect.POST("/api/users/password-reset").
		WithJSON(map[string]string{"email": "unknown@example.com"}).
		Expect().
		Status(http.StatusOK).
		JSON().Object().Raw()
	require.Equal(t, known, unknown)
	require.Equal(t, 1, s.mailbox.count("SendPasswordResetMail"))

	token := s.lastToken(t, "SendPasswordResetMail")

	expectError(s.expect.POST("/api/users/password-reset/complete").
		WithJSON(map[string]string{"token": token, "password": testPassword}).
		Expect(), http.StatusBadRequest, "ERR-007")

	s.expect.POST("/api/users/password-reset/complete").
		WithJSON(map[string]string{"token": token, "password": "N3w!Passphrase"}).
		Expect().
		Status(http.StatusOK)

	expectError(s.expect.POST("/api/users/password-reset/complete").
		WithJSON(map[string]string{"token": token, "password": "An0ther!Password"}).
		Expect(), http.StatusNotFound, "ERR-005")

	s.login("N3w!Passphrase")
}

func TestVerifyEmailRejectsTamperedToken(t *testing.T) {
	s := setupServer(t, nil)

	expectError(s.expect.POST("/api/users/verify-email").
		WithJSON(map[string]string{"token": "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"}).
		Expect(), http.StatusBadRequest, "ERR-003")
}

func TestChangePasswordAndEmail(t *testing.T) {
	s := setupServer(t, nil)
	s.registerVerifiedUser(t)
	token := s.login(testPassword).Value("token").String().Raw()

	expectError(s.expect.PATCH("/api/users/password").
		WithHeader("Authorization", "Bearer "+token).
		WithJSON(map[string]string{"oldPassword": "Wrong.Password1", "newPassword": "N3w!Passphrase"}).
		Expect(), http.StatusBadRequest, "ERR-012")

	s.expect.POST("/api/users/email-change").
		WithHeader("Authorization", "Bearer "+token).
		WithJSON(map[string]string{"password": testPassword, "email": "new@example.com"}).
		Expect().
		Status(http.StatusOK)

	s.expect.POST("/api/users/email-change/complete").
		WithJSON(map[string]string{"token": s.lastToken(t, "SendEmailChangeMail")}).
		Expect().
		Status(http.StatusOK)

	expectError(s.expect.GET("/api/users/me").
		WithHeader("Authorization", "Bearer "+token).
		Expect(), http.StatusUnauthorized, "ERR-019")

	newToken := s.expect.POST("/api/users/login").
		WithJSON(map[string]string{"email": "new@example.com", "password": testPassword}).
		Expect().
		Status(http.StatusOK).
		JSON().Object().Value("token").String().Raw()

	s.expect.PATCH("/api/users/password").
		WithHeader("Authorization", "Bearer "+newToken).
		WithJSON(map[string]string{"oldPassword": testPassword, "newPassword": "N3w!Passphrase"}).
		Expect().
		Status(http.StatusOK)

	expectError(s.expect.GET("/api/users/me").
		WithHeader("Authorization", "Bearer "+newToken).
		Expect(), http.StatusUnauthorized, "ERR-019")
}

func TestDeleteAccount(t *testing.T) {
	s := setupServer(t, nil)
	s.registerVerifiedUser(t)
	token := s.login(testPassword).Value("token").String().Raw()

	s.expect.DELETE("/api/users/me").
		WithHeader("Authorization", "Bearer "+token).
		Expect().
		Status(http.StatusNoContent)

	expectError(s.expect.GET("/api/users/me").
		WithHeader("Authorization", "Bearer "+token).
		Expect(), http.StatusUnauthorized, "ERR-014")

	expectError(s.expect.POST("/api/users/login").
		WithJSON(map[string]string{"email": testEmail, "password": testPassword}).
		Expect(), http.StatusUnauthorized, "ERR-009")
}

func TestPlatformKey(t *testing.T) {
	s := setupServer(t, func(cfg *config.Config) {
		cfg.PlatformKey = "platform-secret"
	})

	expectError(s.expect.POST("/api/users/password-reset").
		WithJSON(map[string]string{"email": testEmail}).
		Expect(), http.StatusUnauthorized, "ERR-014")

	s.expect.POST("/api/users/password-reset").
		WithHeader("x-api-key", "platform-secret").
		WithJSON(map[string]string{"email": testEmail}).
		Expect().
		Status(http.StatusOK)

	s.expect.GET("/").Expect().Status(http.StatusOK)
}

func TestFixturePasswordSatisfiesPolicy(t *testing.T) {
	user := &schemas.User{Email: testEmail, FirstName: "Test", LastName: "User"}
	assert.NoError(t, identity.NewPasswordPolicy().Validate(testPassword, user))
	assert.NoError(t, identity.NewPasswordPolicy().Validate("N3w!Passphrase", user))
}

func TestUpdateProfile(t *testing.T) {
	s := setupServer(t, nil)
	s.registerVerifiedUser(t)
	token := s.login(testPassword).Value("token").String().Raw()

	expectError(s.expect.PATCH("/api/users/me").
		WithHeader("Authorization", "Bearer "+token).
		WithJSON(map[string]string{"lastName": "Only"}).
		Expect(), http.StatusBadRequest, "ERR-001")

	profile := s.expect.PATCH("/api/users/me").
		WithHeader("Authorization", "Bearer "+token).
		WithJSON(map[string]string{"firstName": "Grace", "lastName": "Hopper"}).
		Expect().
		Status(http.StatusOK).
		JSON().Object()
	profile.HasValue("fullName", "Grace Hopper")

	s.expect.GET("/api/users/me").
		WithHeader("Authorization", "Bearer "+token).
		Expect().
		Status(http.StatusOK).
		JSON().Object().HasValue("firstName", "Grace")
}

func TestAccessLogGroupsRequestsBySession(t *testing.T) {
	s := setupServer(t, nil)
	s.registerVerifiedUser(t)

	first := s.login(testPassword).Value("token").String().Raw()
	s.expect.GET("/api/users/me").
		WithHeader("Authorization", "Bearer "+first).
		WithHeader("User-Agent", "identity-tests").
		Expect().
		Status(http.StatusOK)
	s.expect.POST("/api/users/logout").
		WithHeader("Authorization", "Bearer "+first).
		Expect().
		Status(http.StatusOK)

	// Rejected requests never reach the access log.
	s.expect.GET("/api/users/me").
		WithHeader("Authorization", "Bearer "+first).
		Expect().
		Status(http.StatusUnauthorized)

	second := s.login(testPassword).Value("token").String().Raw()
	s.expect.GET("/api/users/me").
		WithHeader("Authorization", "Bearer "+second).
		Expect().
		Status(http.StatusOK)

	user, err := s.store.GetUserByEmail(context.Background(), testEmail)
	require.NoError(t, err)
	entries, err := s.store.ListAccessLogs(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "/api/users/me", entries[0].URL)
	assert.Equal(t, http.MethodGet, entries[0].Method)
	assert.Equal(t, http.StatusOK, entries[0].StatusCode)
	assert.Equal(t, "identity-tests", entries[0].UserAgent)
	assert.NotEmpty(t, entries[0].RequestID)
	assert.NotEmpty(t, entries[0].DeviceIP)

	assert.Equal(t, "/api/users/logout", entries[1].URL)
	assert.Equal(t, entries[0].LoginToken, entries[1].LoginToken, "both requests used the first session")
	assert.NotEqual(t, entries[1].LoginToken, entries[2].LoginToken)
	assert.Equal(t, user.LoginToken, entries[2].LoginToken)
}
