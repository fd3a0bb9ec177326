package httputil

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/quietwire/dmcore/internal/errors"
)

// UserIDHeader carries the authenticated caller identity. Session and cookie
// handling happen upstream; by the time a request reaches this service the
// gateway has resolved the user and injected this header.
const UserIDHeader = "X-User-ID"

// CurrentUserID extracts and validates the caller's user id from the request.
func CurrentUserID(c *gin.Context) (uuid.UUID, error) {
	raw := c.GetHeader(UserIDHeader)
	if raw == "" {
		return uuid.Nil, apperrors.ErrUnauthorized
	}

	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.Wrap(apperrors.ErrUnauthorized, "malformed user id")
	}

	return userID, nil
}
