package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/attendly/attendly/core"
	"github.com/attendly/attendly/core/user"
)

const orderingParam = "ordering"

// bindOrderings reads ?ordering=username,-created_at; a leading "-" sorts descending.
// Unknown fields are left for the services to drop.
func bindOrderings(ctx echo.Context) []core.DBOrdering {
	val := strings.TrimSpace(ctx.QueryParam(orderingParam))
	if val == "" {
		return nil
	}

	var ords []core.DBOrdering
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		desc := strings.HasPrefix(field, "-")
		field = strings.TrimPrefix(field, "-")
		if field == "" {
			continue
		}
		ords = append(ords, core.DBOrdering{Field: field, Ascending: !desc})
	}
	return ords
}

// bindUserFilter reads the ?role=&search=&is_active=&page=&limit= query.
// Malformed values are ignored rather than rejected.
func bindUserFilter(ctx echo.Context, orgID string) user.QueryFilter {
	filter := user.QueryFilter{
		OrganizationID: orgID,
		Role:           ctx.QueryParam("role"),
		Search:         ctx.QueryParam("search"),
	}
	if active, err := strconv.ParseBool(ctx.QueryParam("is_active")); err == nil {
		filter.IsActive = &active
	}
	filter.Page, _ = strconv.Atoi(ctx.QueryParam("page"))
	filter.Limit, _ = strconv.Atoi(ctx.QueryParam("limit"))
	filter.Clean()
	return filter
}
