package web

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/goserg/accountserver/auth/service"
	"github.com/goserg/accountserver/auth/users"
)

const userKey = "user"

const redacted = "[REDACTED]"

var sensitiveFields = []string{"password", "passwordConfirmation"}

// authenticate resolves the bearer token and stores the user in locals.
func (s *Server) authenticate(ctx *fiber.Ctx) error {
	header := ctx.Get(fiber.HeaderAuthorization)
	bearer, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(bearer) == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
	}
	user, err := s.auth.Authenticate(ctx.UserContext(), strings.TrimSpace(bearer))
	if err != nil {
		return err
	}
	ctx.Locals(userKey, user)
	return ctx.Next()
}

func requireRole(role users.Role) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		user, ok := currentUser(ctx)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
		}
		if err := service.Authorize(user, role); err != nil {
			return err
		}
		return ctx.Next()
	}
}

func currentUser(ctx *fiber.Ctx) (users.User, bool) {
	user, ok := ctx.Locals(userKey).(users.User)
	return user, ok
}

// logRequest logs every request once the handler chain has run.
func (s *Server) logRequest(ctx *fiber.Ctx) error {
	chainErr := ctx.Next()

	fields := logrus.Fields{
		"method": ctx.Method(),
		"route":  ctx.Route().Path,
		"path":   ctx.Path(),
		"body":   redactBody(ctx.Body()),
		"query":  string(ctx.Request().URI().QueryString()),
		"params": ctx.AllParams(),
		"from":   ctx.IP(),
	}
	if user, ok := currentUser(ctx); ok {
		fields["madeBy"] = user.ID
	}
	entry := s.log.WithFields(fields)
	if chainErr != nil {
		entry = entry.WithError(chainErr)
	}
	entry.Info("request")
	return chainErr
}

func redactBody(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return "<non-json body>"
	}
	for _, key := range sensitiveFields {
		if _, ok := fields[key]; ok {
			fields[key] = redacted
		}
	}
	return fields
}
