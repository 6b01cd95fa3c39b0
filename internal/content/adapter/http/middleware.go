package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"sitecontent/internal/content/adapter/security"
	"sitecontent/internal/shared/contextkeys"
	"sitecontent/internal/shared/errors"
	"sitecontent/internal/shared/logger"
	"sitecontent/internal/shared/utils"
)

// Middleware bundles the request pipeline shared by the content routes.
type Middleware struct {
	tokens *security.TokenService
	log    logger.Logger
}

// NewMiddleware creates the middleware. A nil token service leaves admin
// routes open, which is only meant for local development.
func NewMiddleware(tokens *security.TokenService, log logger.Logger) *Middleware {
	if log == nil {
		log = logger.NewNop()
	}
	return &Middleware{tokens: tokens, log: log.WithComponent("http")}
}

// CORS allows any origin; the upload and sign endpoints are called from the
// browser directly.
func (m *Middleware) CORS() fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		MaxAge:       86400,
	})
}

// SecurityHeaders adds security headers
func (m *Middleware) SecurityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		return c.Next()
	}
}

// RequestID assigns X-Request-ID and copies it into the user context.
func (m *Middleware) RequestID() fiber.Handler {
	assign := requestid.New(requestid.Config{
		Header:     "X-Request-ID",
		ContextKey: string(contextkeys.RequestIDKey),
	})
	return func(c *fiber.Ctx) error {
		return assign(c)
	}
}

// RequestContext copies the request ID into the user context so loggers and
// usecases see it.
func (m *Middleware) RequestContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id, ok := c.Locals(string(contextkeys.RequestIDKey)).(string); ok && id != "" {
			c.SetUserContext(utils.WithRequestID(c.UserContext(), id))
		}
		return c.Next()
	}
}

// RateLimiter limits requests per client IP.
func (m *Middleware) RateLimiter(max int, window time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               max,
		Expiration:        window,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.Get("X-Forwarded-For", c.IP())
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{
				Error:   "RATE_LIMITED",
				Message: "Rate limit exceeded. Please try again later.",
			})
		},
	})
}

// RequireAdmin rejects requests without a valid admin bearer token.
func (m *Middleware) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m.tokens == nil {
			return c.Next()
		}
		token := extractToken(c)
		if token == "" {
			return respondError(c, errors.NewAuthenticationError("Authentication required"))
		}
		claims, err := m.tokens.ValidateAdmin(token)
		if err != nil {
			m.log.Warn("admin token rejected", zap.String("path", c.Path()), zap.Error(err))
			return respondError(c, errors.NewAuthenticationError("Invalid token").WithCause(err))
		}
		c.SetUserContext(utils.WithSubject(c.UserContext(), claims.Subject))
		return c.Next()
	}
}

// extractToken reads a bearer token from the Authorization header, falling
// back to the token query parameter for WebSocket clients.
func extractToken(c *fiber.Ctx) string {
	if h := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return c.Query("token")
}
