// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the lightweight identity middleware. The API is fronted
// by a gateway that authenticates users and forwards the identity in the
// X-User-ID header; this middleware validates the header shape, stashes the
// value under the "userID" context key consumed by handlers, and optionally
// admits anonymous traffic under a fixed identity.
package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderUserID is the request header carrying the gateway-authenticated user.
const HeaderUserID = "X-User-ID"

// AnonUserID is the identity assigned to unauthenticated requests when
// anonymous access is enabled.
const AnonUserID = "anonymous"

// userIDPattern bounds accepted identifiers: 1-64 of the usual token chars.
var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9._@\-]{1,64}$`)

// AuthOptions configures RequireUser.
type AuthOptions struct {
	// AllowAnon admits requests without an X-User-ID header under AnonUserID
	// instead of rejecting them with 401.
	AllowAnon bool
}

// RequireUser resolves the request identity from the X-User-ID header and
// stores it under the "userID" context key.
//
// Behavior:
//   - Valid header: identity stashed, request proceeds.
//   - Missing header + AllowAnon: AnonUserID stashed, request proceeds.
//   - Missing header otherwise: 401 with code "unauthenticated".
//   - Malformed header: 400 regardless of AllowAnon.
func RequireUser(opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if uid == "" {
			if opts.AllowAnon {
				c.Set("userID", AnonUserID)
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "unauthenticated",
				"message": "X-User-ID header required",
			})
			return
		}
		if !userIDPattern.MatchString(uid) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"code":    "bad_request",
				"message": "invalid X-User-ID",
			})
			return
		}
		c.Set("userID", uid)
		c.Next()
	}
}
