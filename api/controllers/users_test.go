package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/angelmondragon/bookstore-backend/internal/auth"
	"github.com/angelmondragon/bookstore-backend/internal/users"
	"github.com/angelmondragon/bookstore-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/bookstore-backend/pkg/errors"
	"github.com/google/uuid"
)

type stubAuthService struct {
	user          *users.UserDTO
	login         *auth.LoginResult
	err           error
	registered    auth.RegisterInput
	loggedOutFrom string
}

func (s *stubAuthService) Register(ctx context.Context, input auth.RegisterInput) (*users.UserDTO, error) {
	s.registered = input
	return s.user, s.err
}

func (s *stubAuthService) Login(ctx context.Context, input auth.LoginInput) (*auth.LoginResult, error) {
	return s.login, s.err
}

func (s *stubAuthService) Logout(ctx context.Context, sessionID string) error {
	s.loggedOutFrom = sessionID
	return s.err
}

type stubVerification struct {
	result *auth.SendCodeResult
	err    error
	code   string
}

func (s *stubVerification) SendCode(ctx context.Context, userID uuid.UUID) (*auth.SendCodeResult, error) {
	return s.result, s.err
}

func (s *stubVerification) Verify(ctx context.Context, userID uuid.UUID, code string) error {
	s.code = code
	return s.err
}

func cookieConfig() config.SessionConfig {
	return config.SessionConfig{CookieName: "bookstore_session", TTL: time.Hour}
}

func findCookie(resp *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range resp.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestUserRegisterCreated(t *testing.T) {
	svc := &stubAuthService{user: &users.UserDTO{ID: uuid.New(), Username: "u1_reader"}}
	body := `{"username":"u1_reader","email":"e1@x.com","phone":"+15551234567","password":"secretpw","confirm_password":"secretpw"}`

	resp := httptest.NewRecorder()
	UserRegister(svc, nil).ServeHTTP(resp, newRequest(http.MethodPost, "/api/v1/users/register", body))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.registered.Phone != "+15551234567" {
		t.Fatalf("unexpected input %+v", svc.registered)
	}
}

func TestUserRegisterValidation(t *testing.T) {
	body := `{"username":"abc","email":"not-an-email","phone":"12","password":"short","confirm_password":"short"}`

	resp := httptest.NewRecorder()
	UserRegister(&stubAuthService{}, nil).ServeHTTP(resp, newRequest(http.MethodPost, "/api/v1/users/register", body))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if code := decodeErrorCode(t, resp); code != string(pkgerrors.CodeValidation) {
		t.Fatalf("unexpected code %s", code)
	}
}

func TestUserLoginSetsCookie(t *testing.T) {
	svc := &stubAuthService{login: &auth.LoginResult{
		Token:     "signed-token",
		SessionID: "sess-1",
		ExpiresAt: time.Now().Add(time.Hour),
		User:      &users.UserDTO{ID: uuid.New()},
	}}

	resp := httptest.NewRecorder()
	UserLogin(svc, cookieConfig(), nil).ServeHTTP(resp,
		newRequest(http.MethodPost, "/api/v1/users/login", `{"email":"e1@x.com","password":"secretpw"}`))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	cookie := findCookie(resp, "bookstore_session")
	if cookie == nil || cookie.Value != "signed-token" || !cookie.HttpOnly {
		t.Fatalf("session cookie not set: %+v", cookie)
	}
}

func TestUserLoginInvalidCredentials(t *testing.T) {
	svc := &stubAuthService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}

	resp := httptest.NewRecorder()
	UserLogin(svc, cookieConfig(), nil).ServeHTTP(resp,
		newRequest(http.MethodPost, "/api/v1/users/login", `{"email":"e1@x.com","password":"nope"}`))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if findCookie(resp, "bookstore_session") != nil {
		t.Fatalf("cookie must not be set on failure")
	}
}

func TestUserLogoutExpiresCookie(t *testing.T) {
	svc := &stubAuthService{}
	req := asUser(newRequest(http.MethodPost, "/api/v1/users/logout", ""), uuid.New(), "sess-9")

	resp := httptest.NewRecorder()
	UserLogout(svc, cookieConfig(), nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.loggedOutFrom != "sess-9" {
		t.Fatalf("expected session sess-9 revoked, got %q", svc.loggedOutFrom)
	}
	cookie := findCookie(resp, "bookstore_session")
	if cookie == nil || cookie.MaxAge >= 0 {
		t.Fatalf("expected expired cookie, got %+v", cookie)
	}
}

func TestVerifyPhoneReportsReason(t *testing.T) {
	svc := &stubVerification{err: pkgerrors.New(pkgerrors.CodeValidation, "verification code has expired").
		WithDetails(map[string]string{"reason": auth.ReasonExpired})}
	req := asUser(newRequest(http.MethodPost, "/api/v1/auth/verify", `{"code":"123456"}`), uuid.New(), "sess")

	resp := httptest.NewRecorder()
	VerifyPhone(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.code != "123456" {
		t.Fatalf("code not forwarded")
	}
}

func TestSendVerificationCodeDependencyFailure(t *testing.T) {
	svc := &stubVerification{err: pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("sms down"), "deliver verification code")}
	req := asUser(newRequest(http.MethodPost, "/api/v1/auth/send-code", ""), uuid.New(), "sess")

	resp := httptest.NewRecorder()
	SendVerificationCode(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}
