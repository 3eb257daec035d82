package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/attendly/attendly/core/timetable"
)

func registerTimetableAPI(g *echo.Group, s *Server) {
	g.GET("", s.getTimetable)
	g.POST("", s.saveTimetable)
	g.GET("/today", s.todayClasses)
	g.POST("/class", s.addClass)
	g.PUT("/class/:classId", s.updateClass)
	g.DELETE("/class/:classId", s.removeClass)
}

func (s *Server) getTimetable(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	tt, err := s.TimetableSvc.Get(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "getting timetable")
	}
	return ctx.JSON(http.StatusOK, tt)
}

func (s *Server) saveTimetable(ctx echo.Context) error {
	var data timetable.SaveTimetable
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to timetable.SaveTimetable")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	tt, err := s.TimetableSvc.Save(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "saving timetable")
	}
	return ctx.JSON(http.StatusCreated, tt)
}

// todayClasses returns the classes of the current weekday in the organization's time zone.
func (s *Server) todayClasses(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	org, err := getContextOrg(ctx)
	if err != nil {
		return err
	}
	tt, err := s.TimetableSvc.Get(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "getting timetable")
	}
	return ctx.JSON(http.StatusOK, timetable.Today(tt, nowFunc().In(org.Location())))
}

func (s *Server) addClass(ctx echo.Context) error {
	var data timetable.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to timetable.NewClass")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	tt, err := s.TimetableSvc.AddClass(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "adding class")
	}
	return ctx.JSON(http.StatusCreated, tt)
}

func (s *Server) updateClass(ctx echo.Context) error {
	var data timetable.UpdateClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to timetable.UpdateClass")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	tt, err := s.TimetableSvc.UpdateClass(ctx.Request().Context(), usr.ID, ctx.Param("classId"), data)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, tt)
}

func (s *Server) removeClass(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if _, err = s.TimetableSvc.RemoveClass(ctx.Request().Context(), usr.ID, ctx.Param("classId")); err != nil {
		return errors.Wrap(err, "removing class")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Class removed from timetable successfully"})
}
