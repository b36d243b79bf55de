package middleware

import (
	"net/http"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"accountd/internal/auth"
	apperrors "accountd/internal/errors"
	"accountd/internal/model"
	"accountd/internal/repository"
)

const (
	sessionKey     = "session"
	currentUserKey = "currentUser"
)

// Session is the parsed-but-not-yet-authorized token attached by SessionParser.
type Session struct {
	Token  string
	Claims *auth.Claims
}

// SessionParser extracts the session token from the auth cookie or the
// Authorization header and verifies its signature and age. Any failure is an
// explicit 401 response; nothing is swallowed.
func SessionParser(jwtSvc *auth.JWTService) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		TokenLookup: "cookie:" + auth.SessionCookieName + ",header:" + echo.HeaderAuthorization + ":Bearer ",
		ContextKey:  sessionKey,
		ParseTokenFunc: func(c echo.Context, tokenString string) (interface{}, error) {
			claims, err := jwtSvc.Verify(tokenString)
			if err != nil {
				return nil, err
			}
			return &Session{Token: tokenString, Claims: claims}, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return unauthenticated()
		},
	})
}

// RequireUser cross-checks the parsed token against the credential store:
// the token must still be a member of the user's active set. A token that
// verifies cryptographically but was revoked is rejected here. On success
// the resolved user is attached to the request context.
func RequireUser(users repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess, ok := c.Get(sessionKey).(*Session)
			if !ok {
				return unauthenticated()
			}
			user, err := users.FindByIDAndToken(c.Request().Context(), sess.Claims.UserID, sess.Token)
			if err != nil || user == nil {
				return unauthenticated()
			}
			c.Set(currentUserKey, user)
			return next(c)
		}
	}
}

// CurrentUser returns the user resolved by RequireUser, if any.
func CurrentUser(c echo.Context) (*model.User, bool) {
	user, ok := c.Get(currentUserKey).(*model.User)
	return user, ok
}

func unauthenticated() *echo.HTTPError {
	return echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{
		Error: apperrors.ErrUnauthenticated.Error(),
		Code:  "UNAUTHENTICATED",
	})
}
