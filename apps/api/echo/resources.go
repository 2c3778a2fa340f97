package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shulehub/shule/core"
	"github.com/shulehub/shule/core/resource"
)

// searchMaxResults caps the name-search convenience.
const searchMaxResults = 20

type resourceApi struct {
	engine  *resource.Service
	auditor *resource.Auditor
}

func registerResourceAPI(g *echo.Group, engine *resource.Service, auditor *resource.Auditor) {
	api := resourceApi{engine: engine, auditor: auditor}

	// collection-specific conveniences; static segments win over the
	// generic param routes below
	g.GET("/students/search", api.studentSearch)
	g.GET("/fees/student/:id", api.feesByStudent)
	g.GET("/fees/status/:status", api.feesByStatus)
	g.POST("/attendance/bulk", api.attendanceBulk)
	g.GET("/attendance/student/:id", api.attendanceByStudent)
	g.GET("/attendance/class/:id", api.attendanceByClass)
	g.POST("/marks/bulk", api.marksBulk)
	g.GET("/marks/student/:id", api.marksByStudent)
	g.GET("/marks/class/:id", api.marksByClass)
	g.GET("/store_items/low-stock/:threshold", api.lowStock)
	g.GET("/assignments/export", api.exportAssignments)

	// the uniform surface over every registered collection
	g.GET("/:collection", api.list)
	g.POST("/:collection", api.create)
	g.GET("/:collection/:id", api.retrieve)
	g.PUT("/:collection/:id", api.update)
	g.DELETE("/:collection/:id", api.destroy)
}

// collection resolves and gates the :collection path param.
func collection(ctx echo.Context) (string, error) {
	coll := ctx.Param("collection")
	if !resource.Known(coll) {
		return "", errHttpNotFound
	}
	return coll, nil
}

func bindFields(ctx echo.Context) (resource.Fields, error) {
	fields := resource.Fields{}
	if err := ctx.Bind(&fields); err != nil {
		return nil, core.NewValidationError(errors.Wrap(err, "malformed payload"))
	}
	return fields, nil
}

// Handlers

func (api *resourceApi) list(ctx echo.Context) error {
	coll, err := collection(ctx)
	if err != nil {
		return err
	}
	var query ListQuery
	if err = query.Bind(ctx); err != nil {
		return err
	}

	recs, err := api.engine.List(ctx.Request().Context(), coll, query.Filter, query.Sort, query.Limit)
	if err != nil {
		return errors.Wrapf(err, "listing %s", coll)
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *resourceApi) retrieve(ctx echo.Context) error {
	coll, err := collection(ctx)
	if err != nil {
		return err
	}
	rec, err := api.engine.Get(ctx.Request().Context(), coll, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *resourceApi) create(ctx echo.Context) error {
	coll, err := collection(ctx)
	if err != nil {
		return err
	}
	fields, err := bindFields(ctx)
	if err != nil {
		return err
	}

	// item requests go through their workflow even on the generic surface
	var rec resource.Record
	if coll == resource.ItemRequests {
		rec, err = api.engine.CreateItemRequest(ctx.Request().Context(), fields)
	} else {
		rec, err = api.engine.Create(ctx.Request().Context(), coll, fields)
	}
	if err != nil {
		return errors.Wrapf(err, "creating in %s", coll)
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *resourceApi) update(ctx echo.Context) error {
	coll, err := collection(ctx)
	if err != nil {
		return err
	}
	fields, err := bindFields(ctx)
	if err != nil {
		return err
	}

	rec, err := api.engine.Update(ctx.Request().Context(), coll, ctx.Param("id"), fields)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *resourceApi) destroy(ctx echo.Context) error {
	coll, err := collection(ctx)
	if err != nil {
		return err
	}
	if err = api.engine.Delete(ctx.Request().Context(), coll, ctx.Param("id")); err != nil {
		return errors.Wrapf(err, "deleting from %s", coll)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Conveniences

func (api *resourceApi) studentSearch(ctx echo.Context) error {
	recs, err := api.engine.SearchByName(
		ctx.Request().Context(), resource.Students, ctx.QueryParam("name"), searchMaxResults)
	if err != nil {
		return errors.Wrap(err, "searching students")
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *resourceApi) listByField(ctx echo.Context, coll, field, value string) error {
	recs, err := api.engine.ListByField(ctx.Request().Context(), coll, field, value)
	if err != nil {
		return errors.Wrapf(err, "listing %s by %s", coll, field)
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *resourceApi) feesByStudent(ctx echo.Context) error {
	return api.listByField(ctx, resource.Fees, "student_id", ctx.Param("id"))
}

func (api *resourceApi) feesByStatus(ctx echo.Context) error {
	return api.listByField(ctx, resource.Fees, "status", ctx.Param("status"))
}

func (api *resourceApi) attendanceByStudent(ctx echo.Context) error {
	return api.listByField(ctx, resource.Attendance, "student_id", ctx.Param("id"))
}

func (api *resourceApi) attendanceByClass(ctx echo.Context) error {
	return api.listByField(ctx, resource.Attendance, "class_id", ctx.Param("id"))
}

func (api *resourceApi) marksByStudent(ctx echo.Context) error {
	return api.listByField(ctx, resource.Marks, "student_id", ctx.Param("id"))
}

func (api *resourceApi) marksByClass(ctx echo.Context) error {
	return api.listByField(ctx, resource.Marks, "class_id", ctx.Param("id"))
}

func (api *resourceApi) bulkCreate(ctx echo.Context, coll string) error {
	var fieldSets []resource.Fields
	if err := ctx.Bind(&fieldSets); err != nil {
		return core.NewValidationError(errors.Wrap(err, "malformed payload"))
	}
	recs, err := api.engine.BulkCreate(ctx.Request().Context(), coll, fieldSets)
	if err != nil {
		return errors.Wrapf(err, "bulk creating %s", coll)
	}
	return ctx.JSON(http.StatusCreated, recs)
}

func (api *resourceApi) attendanceBulk(ctx echo.Context) error {
	return api.bulkCreate(ctx, resource.Attendance)
}

func (api *resourceApi) marksBulk(ctx echo.Context) error {
	return api.bulkCreate(ctx, resource.Marks)
}

func (api *resourceApi) lowStock(ctx echo.Context) error {
	threshold, err := strconv.Atoi(ctx.Param("threshold"))
	if err != nil {
		return core.NewValidationError(errors.Errorf("invalid threshold: %q", ctx.Param("threshold")))
	}
	recs, err := api.engine.LowStock(ctx.Request().Context(), threshold)
	if err != nil {
		return errors.Wrap(err, "listing low stock items")
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *resourceApi) exportAssignments(ctx echo.Context) error {
	csv, err := api.auditor.ExportAssignments(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "exporting assignment logs")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="assignments.csv"`)
	return ctx.Blob(http.StatusOK, "text/csv", []byte(csv))
}
