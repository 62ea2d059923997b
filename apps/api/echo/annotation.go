package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/interamericana/registro/core/annotation"
	"github.com/interamericana/registro/core/user"
)

type annotationApi struct {
	svc     *annotation.Service
	userSvc user.Service
}

func registerAnnotationAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *annotation.Service, userSvc user.Service) {
	api := annotationApi{svc: svc, userSvc: userSvc}

	sg := g.Group("/students/:id", jwt)
	sg.POST("/annotations", api.create)
	sg.GET("/annotations", api.query)
	sg.GET("/conduct", api.conduct)

	ag := g.Group("/annotations", jwt)
	ag.PUT("/:id", api.update, roleMiddleware(user.RoleAdmin))
}

// Handlers

func (api *annotationApi) create(ctx echo.Context) error {
	studentID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return errHttpNotFound
	}

	var data annotation.NewAnnotation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAnnotation")
	}
	data.StudentID = studentID
	if err := data.Validate(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	ann, err := api.svc.Create(ctx.Request().Context(), ctxUsr.ID, ctxUsr.FullName, data)
	if err != nil {
		return errors.Wrap(err, "creating annotation")
	}
	return ctx.JSON(http.StatusCreated, ann)
}

func (api *annotationApi) query(ctx echo.Context) error {
	studentID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return errHttpNotFound
	}

	anns, err := api.svc.ListByStudent(ctx.Request().Context(), studentID)
	if err != nil {
		return errors.Wrap(err, "querying annotations")
	}
	if anns == nil {
		anns = []annotation.Annotation{}
	}
	return ctx.JSON(http.StatusOK, anns)
}

func (api *annotationApi) conduct(ctx echo.Context) error {
	studentID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return errHttpNotFound
	}

	summary, err := api.svc.Conduct(ctx.Request().Context(), studentID)
	if err != nil {
		return errors.Wrap(err, "computing conduct")
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (api *annotationApi) update(ctx echo.Context) error {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return errHttpNotFound
	}

	var data annotation.UpdateAnnotation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAnnotation")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ann, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		if errors.Cause(err) == annotation.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating annotation")
	}
	return ctx.JSON(http.StatusOK, ann)
}
