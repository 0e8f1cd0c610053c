package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"siteadmin/docs"
	"siteadmin/internal/auth"
	authMocks "siteadmin/internal/auth/mocks"
	"siteadmin/internal/model"
	"siteadmin/internal/service"
	serviceMocks "siteadmin/internal/service/mocks"
	"siteadmin/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testToken = "tok-admin"

type testApp struct {
	app   *fiber.App
	auth  *authMocks.MockService
	docs  *serviceMocks.MockDocumentService
	blobs *storage.MemoryStorage
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	authSvc := new(authMocks.MockService)
	authSvc.On("Observe", mock.Anything, testToken).Return(&auth.Session{
		UID: "admin-1", Email: "owner@example.com", ExpiresAt: time.Now().Add(time.Hour),
	}).Maybe()
	authSvc.On("Observe", mock.Anything, mock.Anything).Return(nil).Maybe()

	ta := &testApp{
		app:   fiber.New(fiber.Config{ErrorHandler: ErrorHandler()}),
		auth:  authSvc,
		docs:  new(serviceMocks.MockDocumentService),
		blobs: storage.NewMemory("http://localhost/blobs"),
	}
	RegisterRoutes(ta.app, Deps{
		Auth:      authSvc,
		Documents: ta.docs,
		Files:     new(serviceMocks.MockFileService),
		Team:      new(serviceMocks.MockTeamService),
		Contact:   new(serviceMocks.MockContactService),
		Branding:  new(serviceMocks.MockBrandingService),
		Tracker:   service.NewUploadTracker(),
		Blobs:     ta.blobs,
	})
	return ta
}

func authed(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer "+testToken)
	return req
}

func TestRoutes_GuardRejectsWithoutSession(t *testing.T) {
	ta := newTestApp(t)

	resp, err := ta.app.Test(httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "UNAUTHENTICATED", decodeError(t, resp.Body).Error.Code)
	ta.docs.AssertNotCalled(t, "List", mock.Anything)
}

func TestRoutes_GuardRedirectsBrowsers(t *testing.T) {
	ta := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/shell", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	resp, _ := ta.app.Test(req)

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestRoutes_GuardedRequest(t *testing.T) {
	ta := newTestApp(t)
	ta.docs.On("List", mock.Anything).Return([]model.Document{}, nil).Once()

	resp, _ := ta.app.Test(authed(httptest.NewRequest(http.MethodGet, "/api/documents", nil)))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	ta.docs.AssertExpectations(t)
}

func TestRoutes_Session(t *testing.T) {
	ta := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: testToken})
	resp, _ := ta.app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body sessionResponse
	json.NewDecoder(resp.Body).Decode(&body)
	assert.Equal(t, "admin-1", body.UID)
	assert.Empty(t, body.Token)
}

func TestRoutes_Shell(t *testing.T) {
	ta := newTestApp(t)

	tests := []struct {
		query, active string
	}{
		{"", "upload"},
		{"?tab=team", "team"},
		{"?tab=unknown", "upload"},
	}
	for _, tt := range tests {
		resp, _ := ta.app.Test(authed(httptest.NewRequest(http.MethodGet, "/api/shell"+tt.query, nil)))
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Tabs    []shellTab        `json:"tabs"`
			Default string            `json:"default"`
			Active  string            `json:"active"`
			User    map[string]string `json:"user"`
		}
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, tt.active, body.Active, tt.query)
		assert.Equal(t, "upload", body.Default)
		assert.Len(t, body.Tabs, 5)
		assert.Equal(t, "owner@example.com", body.User["email"])
	}
}

func TestRoutes_UploadProgressUsesSessionForm(t *testing.T) {
	ta := newTestApp(t)

	resp, _ := ta.app.Test(authed(httptest.NewRequest(http.MethodGet, "/api/uploads/documents:admin-1", nil)))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	json.NewDecoder(resp.Body).Decode(&body)
	assert.Equal(t, false, body["inFlight"])
}

func TestRoutes_Login(t *testing.T) {
	t.Run("success sets the session cookie", func(t *testing.T) {
		ta := newTestApp(t)
		expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
		ta.auth.On("SignIn", mock.Anything, "owner@example.com", "secret").
			Return(&auth.Session{UID: "admin-1", Email: "owner@example.com", Token: "new-token", ExpiresAt: expires}, nil).Once()

		resp, _ := ta.app.Test(jsonRequest(http.MethodPost, "/api/auth/login", `{"email":"owner@example.com","password":"secret"}`))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var cookie *http.Cookie
		for _, c := range resp.Cookies() {
			if c.Name == "session" {
				cookie = c
			}
		}
		require.NotNil(t, cookie)
		assert.Equal(t, "new-token", cookie.Value)
		assert.True(t, cookie.HttpOnly)
		ta.auth.AssertExpectations(t)
	})

	t.Run("wrong credentials", func(t *testing.T) {
		ta := newTestApp(t)
		ta.auth.On("SignIn", mock.Anything, mock.Anything, mock.Anything).Return(nil, auth.ErrInvalidCredential).Once()

		resp, _ := ta.app.Test(jsonRequest(http.MethodPost, "/api/auth/login", `{"email":"owner@example.com","password":"nope"}`))

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		res := decodeError(t, resp.Body)
		assert.Equal(t, "INVALID_CREDENTIAL", res.Error.Code)
		assert.Equal(t, "Invalid email or password.", res.Error.Message)
	})

	t.Run("backend unavailable", func(t *testing.T) {
		ta := newTestApp(t)
		ta.auth.On("SignIn", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("dial tcp: refused")).Once()

		resp, _ := ta.app.Test(jsonRequest(http.MethodPost, "/api/auth/login", `{"email":"owner@example.com","password":"secret"}`))

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "Failed to sign in. Please check your connection.", decodeError(t, resp.Body).Error.Message)
	})

	t.Run("form encoded body", func(t *testing.T) {
		ta := newTestApp(t)
		ta.auth.On("SignIn", mock.Anything, "owner@example.com", "secret").Return(nil, auth.ErrInvalidCredential).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader("email=owner%40example.com&password=secret"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		ta.auth.AssertExpectations(t)
	})
}

func TestRoutes_Logout(t *testing.T) {
	ta := newTestApp(t)
	ta.auth.On("SignOut", mock.Anything, testToken).Return(nil).Once()

	resp, _ := ta.app.Test(authed(httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)))

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	ta.auth.AssertExpectations(t)

	resp, _ = ta.app.Test(httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestRoutes_Subscribe(t *testing.T) {
	ta := newTestApp(t)

	t.Run("unknown path", func(t *testing.T) {
		resp, _ := ta.app.Test(authed(httptest.NewRequest(http.MethodGet, "/api/subscribe?path=admins", nil)))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_PATH", decodeError(t, resp.Body).Error.Code)
	})

	t.Run("plain request", func(t *testing.T) {
		resp, _ := ta.app.Test(authed(httptest.NewRequest(http.MethodGet, "/api/subscribe?path="+model.PathDocuments, nil)))

		assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
		assert.Equal(t, "UPGRADE_REQUIRED", decodeError(t, resp.Body).Error.Code)
	})
}

func TestRoutes_ErrorHandler(t *testing.T) {
	ta := newTestApp(t)

	resp, _ := ta.app.Test(httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decodeError(t, resp.Body).Error.Code)

	resp, _ = ta.app.Test(httptest.NewRequest(http.MethodDelete, "/healthz", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "METHOD_NOT_ALLOWED", decodeError(t, resp.Body).Error.Code)
}

func TestRoutes_ServeBlob(t *testing.T) {
	ta := newTestApp(t)
	_, err := ta.blobs.Put(context.Background(), "uploads/1_price list.pdf", strings.NewReader("%PDF-1.4"),
		storage.PutObjectOptions{Size: 8, ContentType: "application/pdf"})
	require.NoError(t, err)

	resp, _ := ta.app.Test(httptest.NewRequest(http.MethodGet, "/blobs/uploads/1_price%20list.pdf", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("ETag"))

	resp, _ = ta.app.Test(httptest.NewRequest(http.MethodGet, "/blobs/uploads/missing.pdf", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRoutes_SwaggerDocIgnoresRequestHost(t *testing.T) {
	ta := newTestApp(t)

	for _, host := range []string{"admin.example.com", "evil.example.net"} {
		req := httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil)
		req.Host = host
		req.Header.Set("X-Forwarded-Proto", "https")
		resp, err := ta.app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var doc struct {
			Host string `json:"host"`
			Info struct {
				Title string `json:"title"`
			} `json:"info"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
		assert.Equal(t, "Site Admin API", doc.Info.Title)
		assert.Empty(t, doc.Host)
	}
	assert.Empty(t, docs.SwaggerInfo.Host)
	assert.Empty(t, docs.SwaggerInfo.Schemes)
}
