package controllers

import (
	"net/http"
	"time"

	"github.com/angelmondragon/bookstore-backend/api/middleware"
	"github.com/angelmondragon/bookstore-backend/api/responses"
	"github.com/angelmondragon/bookstore-backend/api/validators"
	"github.com/angelmondragon/bookstore-backend/internal/auth"
	"github.com/angelmondragon/bookstore-backend/pkg/config"
	"github.com/angelmondragon/bookstore-backend/pkg/logger"
)

type registerRequest struct {
	Username        string `json:"username" validate:"notblank,min=4,max=100"`
	Email           string `json:"email" validate:"required,email,max=255"`
	Phone           string `json:"phone" validate:"required,phone"`
	Password        string `json:"password" validate:"required,min=8,max=36"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

func (b registerRequest) toInput() auth.RegisterInput {
	return auth.RegisterInput{
		Username:        b.Username,
		Email:           b.Email,
		Phone:           b.Phone,
		Password:        b.Password,
		ConfirmPassword: b.ConfirmPassword,
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func UserRegister(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body registerRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.Register(r.Context(), body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, user)
	}
}

// UserLogin authenticates the caller and sets the session cookie.
func UserLogin(svc auth.Service, cfg config.SessionConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body loginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Login(r.Context(), auth.LoginInput{Email: body.Email, Password: body.Password})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		http.SetCookie(w, sessionCookie(cfg, result.Token, result.ExpiresAt))
		responses.WriteSuccess(w, result.User)
	}
}

func UserLogout(svc auth.Service, cfg config.SessionConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Logout(r.Context(), middleware.SessionIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		http.SetCookie(w, expiredSessionCookie(cfg))
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}

func sessionCookie(cfg config.SessionConfig, token string, expiresAt time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     cfg.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func expiredSessionCookie(cfg config.SessionConfig) *http.Cookie {
	return &http.Cookie{
		Name:     cfg.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
