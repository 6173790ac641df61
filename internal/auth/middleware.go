package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/desk-relay/internal/observability"
	apperrors "github.com/spec-kit/desk-relay/pkg/util/errorutil"
)

// AuthMiddleware validates bearer tokens on relay routes.
type AuthMiddleware struct {
	tokens *TokenManager
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle enforces authentication when a secret is configured and passes
// every request through otherwise. The verified client name is attached to
// the request for logging.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	if m == nil || !m.tokens.Enabled() {
		return c.Next()
	}

	scheme, raw, found := strings.Cut(c.Get(fiber.HeaderAuthorization), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return apperrors.NewUnauthorized("missing or malformed bearer token")
	}

	claims, err := m.tokens.Verify(strings.TrimSpace(raw))
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	c.Locals(observability.ClientLocal, claims.Client)
	return c.Next()
}
