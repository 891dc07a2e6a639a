package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/devloops/devloops/utils"
)

// Keys under which AuthRequired stores the verified identity in the Gin
// context. Handlers read them instead of re-parsing the token.
const (
	ContextUserIDKey   = "user_id"
	ContextUsernameKey = "username"
)

// AuthRequired rejects requests without a valid, non-revoked bearer token
// and stores the token's identity in the context for downstream handlers.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, code, msg := bearerToken(ctx)
		if token == "" {
			abortUnauthorized(ctx, code, msg)
			return
		}

		// Revocation check comes first: a logged-out token is still
		// structurally valid until it expires.
		if utils.IsTokenBlacklisted(token) {
			abortUnauthorized(ctx, 40104, "token revoked")
			return
		}

		claims, err := utils.ParseToken(token)
		if err != nil {
			abortUnauthorized(ctx, 40105, "invalid token")
			return
		}

		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextUsernameKey, claims.Username)
		ctx.Next()
	}
}

// bearerToken extracts the token from the Authorization header. On failure
// it returns an empty token plus the matching error code and message.
func bearerToken(ctx *gin.Context) (token string, code int, msg string) {
	header := ctx.GetHeader("Authorization")
	if header == "" {
		return "", 40101, "authorization header missing"
	}
	scheme, rest, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", 40102, "invalid authorization header format"
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return "", 40103, "empty bearer token"
	}
	return rest, 0, ""
}

func abortUnauthorized(ctx *gin.Context, code int, msg string) {
	utils.Error(ctx, http.StatusUnauthorized, code, msg)
	ctx.Abort()
}
