package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/caseload/caseload/core/assignment"
)

type assignmentApi struct {
	svc assignment.ServiceInterface
}

func registerAssignmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc assignment.ServiceInterface) {
	api := assignmentApi{svc: svc}

	ag := g.Group("/assignments", jwt, noStore)
	ag.GET("", api.query)
	ag.POST("", api.create)
	ag.PUT("/:id", api.update)
	ag.DELETE("/:id", api.destroy)
}

// owner returns the JWT subject every assignment request is scoped to.
func (api *assignmentApi) owner(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errUnauthorized
	}
	return claims.Subject, nil
}

// Handlers

func (api *assignmentApi) query(ctx echo.Context) error {
	owner, err := api.owner(ctx)
	if err != nil {
		return err
	}
	if uid := ctx.QueryParam("userId"); uid != "" && uid != owner {
		return errHttpForbidden
	}

	list, err := api.svc.Query(ctx.Request().Context(), owner)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	if list == nil {
		list = []assignment.Assignment{}
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *assignmentApi) create(ctx echo.Context) error {
	owner, err := api.owner(ctx)
	if err != nil {
		return err
	}

	var data assignment.NewAssignment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}

	a, err := api.svc.Create(ctx.Request().Context(), owner, data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *assignmentApi) update(ctx echo.Context) error {
	owner, err := api.owner(ctx)
	if err != nil {
		return err
	}

	var data assignment.UpdateAssignment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAssignment")
	}

	a, err := api.svc.Update(ctx.Request().Context(), owner, ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == assignment.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating assignment")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *assignmentApi) destroy(ctx echo.Context) error {
	owner, err := api.owner(ctx)
	if err != nil {
		return err
	}

	id := ctx.Param("id")
	if err = api.svc.Delete(ctx.Request().Context(), owner, id); err != nil {
		if errors.Cause(err) == assignment.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting assignment")
	}
	return ctx.JSON(http.StatusOK, DeleteResponse{ID: id, Deleted: true})
}
