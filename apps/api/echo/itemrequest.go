package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shulehub/shule/core/resource"
)

type itemRequestApi struct {
	engine *resource.Service
}

func registerItemRequestAPI(g *echo.Group, engine *resource.Service) {
	api := itemRequestApi{engine: engine}

	rg := g.Group("/item-requests")
	rg.POST("", api.create)
	rg.GET("", api.list)
	rg.GET("/:id", api.retrieve)
	rg.PUT("/:id/approve", api.approve)
	rg.PUT("/:id/reject", api.reject)
}

func (api *itemRequestApi) create(ctx echo.Context) error {
	fields, err := bindFields(ctx)
	if err != nil {
		return err
	}
	rec, err := api.engine.CreateItemRequest(ctx.Request().Context(), fields)
	if err != nil {
		return errors.Wrap(err, "creating item request")
	}
	return ctx.JSON(http.StatusCreated, rec)
}

// list defaults to the pending queue; ?status= selects another view.
func (api *itemRequestApi) list(ctx echo.Context) error {
	status := ctx.QueryParam("status")
	if status == "" {
		status = resource.RequestPending
	}
	recs, err := api.engine.List(ctx.Request().Context(), resource.ItemRequests,
		resource.Filter{"status": status}, nil, 0)
	if err != nil {
		return errors.Wrap(err, "listing item requests")
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *itemRequestApi) retrieve(ctx echo.Context) error {
	rec, err := api.engine.Get(ctx.Request().Context(), resource.ItemRequests, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *itemRequestApi) approve(ctx echo.Context) error {
	var data ApproveRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ApproveRequest")
	}
	rec, err := api.engine.ApproveItemRequest(ctx.Request().Context(), ctx.Param("id"), data.ApprovalNotes)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *itemRequestApi) reject(ctx echo.Context) error {
	var data RejectRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RejectRequest")
	}
	rec, err := api.engine.RejectItemRequest(ctx.Request().Context(), ctx.Param("id"), data.RejectionReason)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

type (
	ApproveRequest struct {
		ApprovalNotes string `json:"approval_notes"`
	}

	RejectRequest struct {
		RejectionReason string `json:"rejection_reason"`
	}
)
