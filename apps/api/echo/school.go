package echoapi

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/interamericana/registro/core"
	"github.com/interamericana/registro/core/school"
	"github.com/interamericana/registro/core/user"
	"github.com/interamericana/registro/storage/database"
)

type schoolApi struct {
	svc    *school.Service
	logger core.Logger
}

func registerSchoolAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *school.Service, logger core.Logger) {
	api := schoolApi{svc: svc, logger: logger}

	gg := g.Group("/grades", jwt)
	gg.GET("", api.queryGrades)
	gg.POST("", api.createGrade, roleMiddleware(user.RoleAdmin))
	gg.GET("/:id/students", api.queryStudents)
	gg.POST("/:id/students/import", api.importStudents, roleMiddleware(user.RoleAdmin))

	sg := g.Group("/students", jwt)
	sg.POST("", api.createStudent, roleMiddleware(user.RoleAdmin))
	sg.GET("/top", api.topStudents)

	ag := g.Group("/school", jwt, roleMiddleware(user.RoleAdmin))
	ag.POST("/new-year", api.startNewYear)
	ag.GET("/export", api.exportDatabase)
}

// Handlers

func (api *schoolApi) queryGrades(ctx echo.Context) error {
	var year int
	if raw := ctx.QueryParam("year"); raw != "" {
		var err error
		if year, err = strconv.Atoi(raw); err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "year", Error: "must be a number"})
		}
	} else {
		year = time.Now().Year()
	}

	grades, err := api.svc.ListGrades(ctx.Request().Context(), year)
	if err != nil {
		return errors.Wrap(err, "querying grades")
	}
	if grades == nil {
		grades = []school.Grade{}
	}
	return ctx.JSON(http.StatusOK, grades)
}

func (api *schoolApi) createGrade(ctx echo.Context) error {
	var data school.NewGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	grd, err := api.svc.CreateGrade(ctx.Request().Context(), data)
	if err != nil {
		if _, ok := errors.Cause(err).(*core.ValidationError); ok {
			return err
		}
		return errors.Wrap(err, "creating grade")
	}
	return ctx.JSON(http.StatusCreated, grd)
}

func (api *schoolApi) queryStudents(ctx echo.Context) error {
	gradeID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return errHttpNotFound
	}
	if _, err = api.svc.GetGrade(ctx.Request().Context(), gradeID); err != nil {
		if errors.Cause(err) == school.ErrGradeNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting grade")
	}

	students, err := api.svc.ListStudents(ctx.Request().Context(), gradeID)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []school.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *schoolApi) createStudent(ctx echo.Context) error {
	var data school.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	std, err := api.svc.CreateStudent(ctx.Request().Context(), data)
	if err != nil {
		if errors.Cause(err) == school.ErrGradeNotFound {
			return errHttpNotFound
		}
		if _, ok := errors.Cause(err).(*core.ValidationError); ok {
			return err
		}
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, std)
}

// importStudents bulk-loads students from a CSV upload of
// (student_id, full_name) rows into one grade. Duplicates are skipped.
func (api *schoolApi) importStudents(ctx echo.Context) error {
	gradeID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return errHttpNotFound
	}

	fileHdr, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "file is required"})
	}
	file, err := fileHdr.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer file.Close()

	rows, parseErrs := parseImportCSV(file)
	res, err := api.svc.ImportStudents(ctx.Request().Context(), gradeID, rows)
	if err != nil {
		if errors.Cause(err) == school.ErrGradeNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "importing students")
	}
	res.Errors = append(parseErrs, res.Errors...)
	return ctx.JSON(http.StatusOK, res)
}

func parseImportCSV(r io.Reader) ([]school.ImportRow, []string) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows []school.ImportRow
	var errs []string
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(record[0]), "student_id") {
			continue // header row
		}
		if len(record) < 2 {
			errs = append(errs, fmt.Sprintf("line %d: expected 2 columns, got %d", line, len(record)))
			continue
		}
		rows = append(rows, school.ImportRow{
			StudentID: strings.TrimSpace(record[0]),
			FullName:  strings.TrimSpace(record[1]),
		})
	}
	return rows, errs
}

func (api *schoolApi) topStudents(ctx echo.Context) error {
	var gradeID int64
	if raw := ctx.QueryParam("grade_id"); raw != "" {
		var err error
		if gradeID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "grade_id", Error: "must be a number"})
		}
	}
	limit, _ := strconv.Atoi(ctx.QueryParam("limit"))

	tops, err := api.svc.TopStudents(ctx.Request().Context(), gradeID, limit)
	if err != nil {
		return errors.Wrap(err, "querying top students")
	}
	if tops == nil {
		tops = []school.TopStudent{}
	}
	return ctx.JSON(http.StatusOK, tops)
}

func (api *schoolApi) startNewYear(ctx echo.Context) error {
	var data NewYearRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewYearRequest")
	}

	// snapshot before touching the roster
	backupPath, err := database.Backup(core.Conf, time.Now().Year())
	if err != nil {
		return errors.Wrap(err, "backing up database")
	}

	year, created, err := api.svc.StartNewYear(ctx.Request().Context(), data.Year)
	if err != nil {
		return errors.Wrap(err, "starting new year")
	}
	api.logger.Info(fmt.Sprintf("year rollover to %d: %d grades created, backup at %s", year, created, backupPath))

	return ctx.JSON(http.StatusOK, NewYearResponse{Year: year, GradesCreated: created, Backup: filepath.Base(backupPath)})
}

func (api *schoolApi) exportDatabase(ctx echo.Context) error {
	path, err := database.Backup(core.Conf, time.Now().Year())
	if err != nil {
		return errors.Wrap(err, "exporting database")
	}
	return ctx.Attachment(path, filepath.Base(path))
}

type (
	NewYearRequest struct {
		Year int `json:"year"` // 0 defaults to next year
	}

	NewYearResponse struct {
		Year          int    `json:"year"`
		GradesCreated int    `json:"grades_created"`
		Backup        string `json:"backup"`
	}
)
