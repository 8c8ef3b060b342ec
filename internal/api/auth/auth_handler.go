package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/kodbank/kodbank/app/observability/metrics"
	"github.com/kodbank/kodbank/internal/api"
)

// AuthHandler exposes registration, login and account deletion over HTTP.
type AuthHandler struct {
	authService AuthService
	tokenMaxAge time.Duration
	logger      *slog.Logger
}

func NewAuthHandler(authService AuthService, tokenMaxAge time.Duration, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		tokenMaxAge: tokenMaxAge,
		logger:      logger,
	}
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Register handles POST /api/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RegisterRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "Register payload rejected", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, api.CodeValidationError, err.Error())
		return
	}

	err := h.authService.Register(ctx, req.UID, req.Uname, req.Password, req.Email, req.Phone)
	if err != nil {
		api.DomainErrorResponse(w, r, err, registrationFailureMessage(err))
		return
	}

	metrics.RegistrationsTotal.Inc()
	api.WriteJSONResponse(w, r, http.StatusOK, statusResponse{
		Status:  "success",
		Message: "Registration successful",
	})
}

func registrationFailureMessage(err error) string {
	code, _ := api.CodeForError(err)
	switch code {
	case api.CodeDuplicateUser:
		return "Username or email already exists"
	case api.CodeValidationError:
		return err.Error()
	default:
		return "Internal server error during registration"
	}
}

// Login handles POST /api/login. On success the token travels back as an
// HTTP-only cookie; the body never carries it.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "Login payload rejected", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, api.CodeValidationError, err.Error())
		return
	}

	token, err := h.authService.Login(ctx, req.Username, req.Password)
	if err != nil {
		code, _ := api.CodeForError(err)
		msg := "Internal server error during login"
		switch code {
		case api.CodeInvalidCredentials:
			msg = "Invalid credentials"
		case api.CodeValidationError:
			msg = "Username and password are required"
		}
		api.DomainErrorResponse(w, r, err, msg)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "jwt",
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokenMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})

	metrics.LoginsTotal.Inc()
	api.WriteJSONResponse(w, r, http.StatusOK, statusResponse{
		Status:  "success",
		Message: "Login successful",
	})
}

// DeleteAccount handles DELETE /api/account. Removing the row cascades to
// the session registry, so every token for the account dies with it.
func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	username, ok := GetUsernameFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, api.CodeUnauthorized, "Authentication required")
		return
	}

	if err := h.authService.DeleteUser(ctx, username); err != nil {
		api.DomainErrorResponse(w, r, err, "Failed to delete account")
		return
	}

	// Expire the cookie; the registry cascade already revoked the session.
	http.SetCookie(w, &http.Cookie{
		Name:     "jwt",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})

	api.WriteJSONResponse(w, r, http.StatusOK, statusResponse{
		Status:  "success",
		Message: "Account deleted",
	})
}
