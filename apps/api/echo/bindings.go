package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shulehub/shule/core"
	"github.com/shulehub/shule/core/resource"
)

// control query parameters; everything else is an exact-match filter passed
// through verbatim to the store
var (
	sortParam  = "_sort"
	limitParam = "_limit"
)

type ListQuery struct {
	Filter resource.Filter
	Sort   []resource.Ordering
	Limit  int
}

func (q *ListQuery) Bind(ctx echo.Context) error {
	q.Filter = resource.Filter{}
	for key, vals := range ctx.QueryParams() {
		if len(vals) == 0 || vals[0] == "" {
			continue
		}
		switch key {
		case sortParam:
			for _, field := range strings.Split(vals[0], ",") {
				field = strings.TrimSpace(field)
				descending := strings.HasPrefix(field, "-")
				if descending {
					field = field[1:] // drop "-"
				}
				q.Sort = append(q.Sort, resource.Ordering{Field: field, Ascending: !descending})
			}
		case limitParam:
			limit, err := strconv.Atoi(vals[0])
			if err != nil || limit < 0 {
				return core.NewValidationError(errors.Errorf("invalid %s: %q", limitParam, vals[0]))
			}
			q.Limit = limit
		default:
			q.Filter[key] = vals[0]
		}
	}
	return nil
}
