package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/attendly/attendly/core"
	"github.com/attendly/attendly/core/rollcall"
)

var errOwnAttendanceOnly = echo.NewHTTPError(http.StatusForbidden, "students can only view their own attendance")

func registerAttendanceAPI(g *echo.Group, s *Server) {
	g.POST("/mark", s.markAttendance, teacherOrAdmin)
	g.GET("/date/:date", s.attendanceByDate, teacherOrAdmin)
	g.GET("/student/:studentId", s.studentAttendance)
	g.GET("/report", s.attendanceReport, teacherOrAdmin)
}

func (s *Server) markAttendance(ctx echo.Context) error {
	var data rollcall.MarkRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to rollcall.MarkRequest")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	org, err := getContextOrg(ctx)
	if err != nil {
		return err
	}
	res, err := s.RollcallSvc.Mark(ctx.Request().Context(), org, usr, data)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (s *Server) attendanceByDate(ctx echo.Context) error {
	date, err := core.ParseDate(ctx.Param("date"))
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "date", Error: "invalid date, expected YYYY-MM-DD"})
	}

	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	res, err := s.RollcallSvc.ByDate(ctx.Request().Context(), usr.OrganizationID, date)
	if err != nil {
		return errors.Wrap(err, "getting attendance by date")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (s *Server) studentAttendance(ctx echo.Context) error {
	var dr rollcall.DateRange
	if err := ctx.Bind(&dr); err != nil {
		return errors.Wrap(err, "binding to rollcall.DateRange")
	}
	if err := dr.Validate(); err != nil {
		return err
	}

	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	studentID := ctx.Param("studentId")
	if usr.IsStudent() && usr.ID != studentID {
		return errOwnAttendanceOnly
	}
	org, err := getContextOrg(ctx)
	if err != nil {
		return err
	}

	res, err := s.RollcallSvc.StudentAttendance(ctx.Request().Context(), org, studentID, dr)
	if err != nil {
		return errors.Wrap(err, "getting student attendance")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (s *Server) attendanceReport(ctx echo.Context) error {
	var dr rollcall.DateRange
	if err := ctx.Bind(&dr); err != nil {
		return errors.Wrap(err, "binding to rollcall.DateRange")
	}
	if err := dr.Validate(); err != nil {
		return err
	}

	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	res, err := s.RollcallSvc.Report(ctx.Request().Context(), usr.OrganizationID, dr)
	if err != nil {
		return errors.Wrap(err, "generating report")
	}
	return ctx.JSON(http.StatusOK, res)
}
