package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/attendly/attendly/core/course"
	"github.com/attendly/attendly/core/user"
)

func registerCourseAPI(g *echo.Group, s *Server) {
	g.GET("", s.listCourses)
	g.POST("", s.createCourse)
	g.GET("/standing", s.overallStanding)
	g.GET("/:id", s.getCourse)
	g.PUT("/:id", s.updateCourse)
	g.DELETE("/:id", s.deleteCourse)
	g.POST("/:id/attendance", s.markCourseAttendance)
	g.PATCH("/:id/adjust-attendance", s.adjustCourseAttendance)
	g.POST("/:id/threshold", s.courseThreshold)
	g.GET("/:id/standing", s.courseStanding)
}

// contextCourse returns the course identified by the "id" path param, owned by the context user.
func (s *Server) contextCourse(ctx echo.Context) (course.Course, user.User, error) {
	usr, err := getContextUser(ctx)
	if err != nil {
		return course.Course{}, user.User{}, err
	}
	c, err := s.CourseSvc.Get(ctx.Request().Context(), usr.ID, ctx.Param("id"))
	if err != nil {
		return course.Course{}, user.User{}, errors.Wrap(err, "getting course")
	}
	return c, usr, nil
}

func (s *Server) listCourses(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	courses, err := s.CourseSvc.Query(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (s *Server) createCourse(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to course.NewCourse")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	c, err := s.CourseSvc.Create(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (s *Server) getCourse(ctx echo.Context) error {
	c, _, err := s.contextCourse(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (s *Server) updateCourse(ctx echo.Context) error {
	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to course.UpdateCourse")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}

	c, _, err := s.contextCourse(ctx)
	if err != nil {
		return err
	}
	c, err = s.CourseSvc.Update(ctx.Request().Context(), c, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (s *Server) deleteCourse(ctx echo.Context) error {
	c, _, err := s.contextCourse(ctx)
	if err != nil {
		return err
	}
	if err = s.CourseSvc.Delete(ctx.Request().Context(), c); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Course deleted successfully"})
}

func (s *Server) markCourseAttendance(ctx echo.Context) error {
	var data course.MarkAttendance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to course.MarkAttendance")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}

	c, _, err := s.contextCourse(ctx)
	if err != nil {
		return err
	}
	org, err := getContextOrg(ctx)
	if err != nil {
		return err
	}
	c, err = s.CourseSvc.MarkAttendance(ctx.Request().Context(), c, data, org.Location())
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (s *Server) adjustCourseAttendance(ctx echo.Context) error {
	var data course.AdjustAttendance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to course.AdjustAttendance")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}

	c, _, err := s.contextCourse(ctx)
	if err != nil {
		return err
	}
	c, err = s.CourseSvc.Adjust(ctx.Request().Context(), c, data)
	if err != nil {
		return errors.Wrap(err, "adjusting attendance")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (s *Server) courseThreshold(ctx echo.Context) error {
	var data course.ThresholdRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to course.ThresholdRequest")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}

	c, _, err := s.contextCourse(ctx)
	if err != nil {
		return err
	}
	res, err := s.CourseSvc.Threshold(c, *data.Threshold)
	if err != nil {
		return errors.Wrap(err, "computing threshold")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (s *Server) courseStanding(ctx echo.Context) error {
	c, usr, err := s.contextCourse(ctx)
	if err != nil {
		return err
	}
	cs, err := s.CourseSvc.Standing(c, usr.RequiredPercentage)
	if err != nil {
		return errors.Wrap(err, "evaluating course standing")
	}
	return ctx.JSON(http.StatusOK, cs)
}

func (s *Server) overallStanding(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	overall, err := s.CourseSvc.OverallStanding(ctx.Request().Context(), usr.ID, usr.RequiredPercentage)
	if err != nil {
		return errors.Wrap(err, "evaluating overall standing")
	}
	return ctx.JSON(http.StatusOK, overall)
}
