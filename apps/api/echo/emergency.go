package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/interamericana/registro/core/emergency"
	"github.com/interamericana/registro/core/school"
	"github.com/interamericana/registro/core/user"
)

type emergencyApi struct {
	svc     *emergency.Service
	userSvc user.Service
}

func registerEmergencyAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *emergency.Service, userSvc user.Service) {
	api := emergencyApi{svc: svc, userSvc: userSvc}

	eg := g.Group("/emergencies", jwt)
	eg.POST("", api.create)
	eg.GET("", api.query)
	eg.GET("/:id", api.retrieve)
	eg.PATCH("/:id/status", api.updateStatus, roleMiddleware(user.RoleAdmin, user.RoleCoordinator))
}

// Handlers

func (api *emergencyApi) create(ctx echo.Context) error {
	var data emergency.NewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	req, err := api.svc.Create(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		switch errors.Cause(err) {
		case emergency.ErrTeacherOnly:
			return errHttpForbidden
		case school.ErrGradeNotFound:
			return errHttpNotFound
		}
		return errors.Wrap(err, "creating emergency request")
	}
	return ctx.JSON(http.StatusCreated, req)
}

func (api *emergencyApi) query(ctx echo.Context) error {
	reqs, err := api.svc.List(ctx.Request().Context(), ctx.QueryParam("status"))
	if err != nil {
		return errors.Wrap(err, "querying emergency requests")
	}
	if reqs == nil {
		reqs = []emergency.Request{}
	}
	return ctx.JSON(http.StatusOK, reqs)
}

func (api *emergencyApi) retrieve(ctx echo.Context) error {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return errHttpNotFound
	}

	req, err := api.svc.Get(ctx.Request().Context(), id)
	if err != nil {
		if errors.Cause(err) == emergency.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting emergency request")
	}
	return ctx.JSON(http.StatusOK, req)
}

func (api *emergencyApi) updateStatus(ctx echo.Context) error {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return errHttpNotFound
	}

	var data emergency.StatusUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatusUpdate")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	req, err := api.svc.UpdateStatus(ctx.Request().Context(), id, data)
	if err != nil {
		if errors.Cause(err) == emergency.ErrNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, req)
}
