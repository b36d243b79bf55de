package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"accountd/internal/errors"
	"accountd/internal/service"
)

// UserHandler bundles user collection handlers.
type UserHandler struct {
	svc service.UserService
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// ListUsers godoc
// @Summary List users
// @Description Returns all registered users. Password hashes and session tokens are excluded.
// @Tags users
// @Produce json
// @Success 200 {array} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /allUsers [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	users, err := h.svc.ListUsers(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, errors.ErrorResponse{
			Error: "error while fetching users",
			Code:  "LIST_FAILED",
		})
	}
	return c.JSON(http.StatusOK, users)
}
