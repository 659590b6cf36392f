package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/caseload/caseload/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads `?ordering=name,-lastLogin`; a leading "-" sorts descending.
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	ord.Orderings = core.ParseOrderings(val)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Validate() error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	return core.TranslateErrors(core.Validate.Struct(r))
}

type LoginResponse struct {
	Token string `json:"token"`
}

// EmailRequest is the body of the endpoints mailing a link to an address.
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *EmailRequest) Validate() error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	return core.TranslateErrors(core.Validate.Struct(r))
}

type SuccessResponse struct {
	Success string `json:"success"`
}

// DeleteResponse acknowledges a deletion.
type DeleteResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}
