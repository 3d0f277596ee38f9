package web

import (
	"errors"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/goserg/accountserver/auth/storage"
	"github.com/goserg/accountserver/auth/users"
)

type userResponse struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      users.Role `json:"role"`
	Status    bool       `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func newUserResponse(u users.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type foundUsers struct {
	Users []userResponse `json:"users"`
	Total int            `json:"total"`
}

func newFoundUsers(page users.Page) foundUsers {
	found := foundUsers{
		Users: make([]userResponse, 0, len(page.Users)),
		Total: page.Total,
	}
	for _, u := range page.Users {
		found.Users = append(found.Users, newUserResponse(u))
	}
	return found
}

type recoverEmailRequest struct {
	Email string `json:"email"`
}

// parseFilter reads the user search parameters from the query string.
func parseFilter(ctx *fiber.Ctx) (storage.Filter, error) {
	filter := storage.Filter{
		Name:  ctx.Query("name"),
		Email: ctx.Query("email"),
		Role:  ctx.Query("role"),
	}
	errs := validation.Errors{}

	if raw := ctx.Query("status"); raw != "" {
		status, err := strconv.ParseBool(raw)
		if err != nil {
			errs["status"] = errors.New("must be true or false")
		} else {
			filter.Status = &status
		}
	}
	if raw := ctx.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			errs["page"] = errors.New("must be an integer")
		}
		filter.Page = page
	}
	if raw := ctx.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			errs["limit"] = errors.New("must be an integer")
		}
		filter.Limit = limit
	}
	sort, err := storage.ParseSort(ctx.Query("sort"))
	if err != nil {
		errs["sort"] = err
	}
	filter.Sort = sort

	if err := errs.Filter(); err != nil {
		return storage.Filter{}, err
	}
	return filter.Normalize(), nil
}
