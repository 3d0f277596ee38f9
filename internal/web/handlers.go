package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/goserg/accountserver/auth/service"
)

func parseBody(ctx *fiber.Ctx, dst any) error {
	if err := ctx.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}
	return nil
}

func parseID(ctx *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}
	return id, nil
}

func (s *Server) handleSignUp(ctx *fiber.Ctx) error {
	var req service.SignUpRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}
	if _, err := s.auth.SignUp(ctx.UserContext(), req); err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(messageResponse{
		Message: "sign-up successful, check your email to confirm the account",
	})
}

func (s *Server) handleSignIn(ctx *fiber.Ctx) error {
	var creds service.Credentials
	if err := parseBody(ctx, &creds); err != nil {
		return err
	}
	token, err := s.auth.SignIn(ctx.UserContext(), creds)
	if err != nil {
		return err
	}
	return ctx.JSON(fiber.Map{"token": token})
}

func (s *Server) handleConfirmEmail(ctx *fiber.Ctx) error {
	if _, err := s.auth.ConfirmEmail(ctx.UserContext(), ctx.Params("token")); err != nil {
		return err
	}
	return ctx.JSON(messageResponse{Message: "email confirmed"})
}

func (s *Server) handleSendRecoverEmail(ctx *fiber.Ctx) error {
	var req recoverEmailRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}
	if err := s.auth.SendRecoverPasswordEmail(ctx.UserContext(), req.Email); err != nil {
		return err
	}
	return ctx.JSON(messageResponse{Message: "a password recovery email was sent"})
}

func (s *Server) handleResetPassword(ctx *fiber.Ctx) error {
	var change service.PasswordChange
	if err := parseBody(ctx, &change); err != nil {
		return err
	}
	if err := s.auth.ResetPassword(ctx.UserContext(), ctx.Params("token"), change); err != nil {
		return err
	}
	return ctx.JSON(messageResponse{Message: "password changed"})
}

func (s *Server) handleChangePassword(ctx *fiber.Ctx) error {
	actor, _ := currentUser(ctx)
	id, err := parseID(ctx)
	if err != nil {
		return err
	}
	var change service.PasswordChange
	if err := parseBody(ctx, &change); err != nil {
		return err
	}
	if err := s.auth.ChangeUserPassword(ctx.UserContext(), actor, id, change); err != nil {
		return err
	}
	return ctx.JSON(messageResponse{Message: "password changed"})
}

func (s *Server) handleMe(ctx *fiber.Ctx) error {
	user, _ := currentUser(ctx)
	return ctx.JSON(newUserResponse(user))
}

func (s *Server) handleFindUsers(ctx *fiber.Ctx) error {
	actor, _ := currentUser(ctx)
	filter, err := parseFilter(ctx)
	if err != nil {
		return err
	}
	page, err := s.auth.FindUsers(ctx.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	return ctx.JSON(fiber.Map{
		"found":   newFoundUsers(page),
		"message": "users found",
	})
}

func (s *Server) handleFindUser(ctx *fiber.Ctx) error {
	actor, _ := currentUser(ctx)
	id, err := parseID(ctx)
	if err != nil {
		return err
	}
	user, err := s.auth.FindUser(ctx.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return ctx.JSON(fiber.Map{
		"user":    newUserResponse(user),
		"message": "user found",
	})
}

func (s *Server) handleCreateUser(ctx *fiber.Ctx) error {
	actor, _ := currentUser(ctx)
	var req service.CreateUserRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}
	user, err := s.auth.CreateUser(ctx.UserContext(), actor, req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user":    newUserResponse(user),
		"message": "user created",
	})
}

func (s *Server) handleUpdateUser(ctx *fiber.Ctx) error {
	actor, _ := currentUser(ctx)
	id, err := parseID(ctx)
	if err != nil {
		return err
	}
	var req service.UpdateUserRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}
	user, err := s.auth.UpdateUser(ctx.UserContext(), actor, id, req)
	if err != nil {
		return err
	}
	return ctx.JSON(newUserResponse(user))
}
