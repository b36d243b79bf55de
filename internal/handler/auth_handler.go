package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"accountd/internal/auth"
	"accountd/internal/errors"
	"accountd/internal/middleware"
	"accountd/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// SignupRequest represents a user registration request.
type SignupRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ForgotPasswordRequest represents a password recovery request.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// UpdateProfileRequest represents a partial profile update keyed by email.
type UpdateProfileRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username"`
	Password string `json:"password" validate:"omitempty,min=8"`
}

// OAuthCallbackRequest carries the provider authorization code.
type OAuthCallbackRequest struct {
	Code string `json:"code" validate:"required"`
}

// Signup godoc
// @Summary Register a new user
// @Description Register through username, email and password. Password must be 8 characters or longer.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SignupRequest true "Registration data"
// @Success 201 {object} map[string]string
// @Failure 422 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	if _, err := h.authService.Signup(c.Request().Context(), req.Username, req.Email, req.Password); err != nil {
		if errors.IsValidation(err) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, errors.ErrorResponse{
				Error: err.Error(),
				Code:  "VALIDATION_FAILED",
			})
		}
		if err == errors.ErrEmailTaken {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, errors.ErrorResponse{
				Error: err.Error(),
				Code:  "EMAIL_TAKEN",
			})
		}
		return internalError("failed to register user", "REGISTRATION_FAILED")
	}

	return c.JSON(http.StatusCreated, map[string]string{
		"message": "successfully registered",
	})
}

// Login godoc
// @Summary Login
// @Description Login through email and password. On success the session token is set as an http-only cookie.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} map[string]string
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	token, _, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		switch err {
		case errors.ErrUserNotFound:
			return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
				Error: err.Error(),
				Code:  "USER_NOT_FOUND",
			})
		case errors.ErrInvalidCredentials:
			return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
				Error: err.Error(),
				Code:  "INVALID_CREDENTIALS",
			})
		default:
			return internalError("failed to login", "LOGIN_FAILED")
		}
	}

	c.SetCookie(sessionCookie(token, int(auth.MaxTokenAge.Seconds())))
	return c.JSON(http.StatusOK, map[string]string{
		"message": "successfully logged in",
	})
}

// Logout godoc
// @Summary Logout
// @Description Revokes the session token server-side and clears the session cookie.
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]string
// @Router /logout [get]
func (h *AuthHandler) Logout(c echo.Context) error {
	token := ""
	if cookie, err := c.Cookie(auth.SessionCookieName); err == nil {
		token = cookie.Value
	}

	// Best effort: the cookie is cleared even when revocation finds nothing.
	_ = h.authService.Logout(c.Request().Context(), token)

	c.SetCookie(sessionCookie("", -1))
	return c.JSON(http.StatusOK, map[string]string{
		"message": "user logged out",
	})
}

// GetData godoc
// @Summary Current user
// @Description Returns the user resolved from the session token. Password hashes are never serialized.
// @Tags auth
// @Produce json
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Router /getData [get]
func (h *AuthHandler) GetData(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
			Error: errors.ErrUnauthenticated.Error(),
			Code:  "UNAUTHENTICATED",
		})
	}
	return c.JSON(http.StatusOK, user)
}

// ForgotPassword godoc
// @Summary Forget password
// @Description Mails a freshly generated 8 character password to the address if it is registered.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ForgotPasswordRequest true "Account email"
// @Success 200 {object} map[string]string
// @Failure 404 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Failure 502 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /forget [post]
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	if err := h.authService.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		switch {
		case err == errors.ErrUserNotFound:
			return echo.NewHTTPError(http.StatusNotFound, errors.ErrorResponse{
				Error: err.Error(),
				Code:  "USER_NOT_FOUND",
			})
		case errors.Is(err, errors.ErrMailDelivery):
			return echo.NewHTTPError(http.StatusBadGateway, errors.ErrorResponse{
				Error: errors.ErrMailDelivery.Error(),
				Code:  "MAIL_DELIVERY_FAILED",
			})
		default:
			return internalError("failed to reset password", "RESET_FAILED")
		}
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "check your email and try with the new password",
	})
}

// UpdateProfile godoc
// @Summary Update profile
// @Description Updates username and/or password for the given email. Passwords are stored hashed.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body UpdateProfileRequest true "Fields to update"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /update [post]
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	user, err := h.authService.UpdateProfile(c.Request().Context(), req.Email, req.Username, req.Password)
	if err != nil {
		if errors.IsValidation(err) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, errors.ErrorResponse{
				Error: err.Error(),
				Code:  "VALIDATION_FAILED",
			})
		}
		if err == errors.ErrUserNotFound {
			return echo.NewHTTPError(http.StatusNotFound, errors.ErrorResponse{
				Error: err.Error(),
				Code:  "USER_NOT_FOUND",
			})
		}
		return internalError("failed to update user", "UPDATE_FAILED")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "user updated successfully",
		"user":    user,
	})
}

// GitHubCallback godoc
// @Summary GitHub OAuth callback
// @Description Exchanges the authorization code for an access token and returns the provider profile.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body OAuthCallbackRequest true "Authorization code"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 502 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/github/callback [post]
func (h *AuthHandler) GitHubCallback(c echo.Context) error {
	var req OAuthCallbackRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	profile, err := h.authService.ExchangeOAuthCode(c.Request().Context(), req.Code)
	if err != nil {
		switch {
		case errors.Is(err, errors.ErrOAuthExchange):
			return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
				Error: errors.ErrOAuthExchange.Error(),
				Code:  "OAUTH_EXCHANGE_FAILED",
			})
		case errors.Is(err, errors.ErrUpstream):
			return echo.NewHTTPError(http.StatusBadGateway, errors.ErrorResponse{
				Error: errors.ErrUpstream.Error(),
				Code:  "UPSTREAM_FAILED",
			})
		default:
			return internalError("failed to fetch provider profile", "OAUTH_FAILED")
		}
	}

	return c.JSON(http.StatusOK, profile)
}

// sessionCookie builds the session cookie. The client is a cross-site SPA,
// so SameSite=None with Secure is required for the cookie to be sent.
func sessionCookie(token string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	}
}

func internalError(message, code string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusInternalServerError, errors.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
