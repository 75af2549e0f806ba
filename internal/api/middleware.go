package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"nfe-gestor/internal/auth"
)

const (
	ctxClaims    = "auth_claims"
	ctxRequestID = "request_id"
)

// RequestLogger gera um X-Request-ID (quando o cliente não manda) e loga
// cada requisição em JSON via slog.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(ctxRequestID, reqID)
		c.Header("X-Request-ID", reqID)

		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(c.Request.Context(), level, "requisição HTTP",
			"request_id", reqID,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// AuthMiddleware exige "Authorization: Bearer <jwt>" válido.
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			respondError(c, http.StatusUnauthorized, "token de autorização não fornecido")
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			respondError(c, http.StatusUnauthorized, "formato do token inválido (esperado 'Bearer <token>')")
			c.Abort()
			return
		}

		claims, err := auth.ParseToken(secret, strings.TrimSpace(parts[1]))
		if err != nil {
			respondError(c, http.StatusUnauthorized, err.Error())
			c.Abort()
			return
		}

		c.Set(ctxClaims, claims)
		c.Next()
	}
}

// RequireRole barra quem não tem pelo menos o papel min.
func RequireRole(min auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get(ctxClaims)
		claims, _ := v.(*auth.Claims)
		if !ok || claims == nil {
			respondError(c, http.StatusForbidden, "usuário não autenticado")
			c.Abort()
			return
		}
		if !claims.Role.AtLeast(min) {
			respondError(c, http.StatusForbidden, "acesso negado: requer papel "+string(min))
			c.Abort()
			return
		}
		c.Next()
	}
}
