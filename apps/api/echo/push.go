package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shulehub/shule/core/push"
)

type pushApi struct {
	dispatcher *push.Dispatcher
	validate   *validator.Validate
}

// registerPushAPI registers subscribe/publicKey on the open group (the
// browser calls them before any login) and notify on the authed one.
func registerPushAPI(open, authed *echo.Group, dispatcher *push.Dispatcher, validate *validator.Validate) {
	api := pushApi{dispatcher: dispatcher, validate: validate}

	open.POST("/push/subscribe", api.subscribe)
	open.GET("/push/publicKey", api.publicKey)
	authed.POST("/push/notify", api.notify)
}

func (api *pushApi) subscribe(ctx echo.Context) error {
	var sub push.Subscription
	if err := ctx.Bind(&sub); err != nil {
		return errors.Wrap(err, "binding to Subscription")
	}
	if err := api.validate.Struct(&sub); err != nil {
		return err
	}

	api.dispatcher.Subscribe(sub)
	return ctx.JSON(http.StatusCreated, echo.Map{"success": "subscribed"})
}

func (api *pushApi) publicKey(ctx echo.Context) error {
	key, err := api.dispatcher.PublicKey()
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"publicKey": key})
}

// notify is the dedicated fan-out endpoint; unlike hook-triggered
// notifications it waits for every delivery attempt to finish.
func (api *pushApi) notify(ctx echo.Context) error {
	var data NotifyRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NotifyRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	api.dispatcher.Notify(ctx.Request().Context(), push.Notification{
		Title:   data.Title,
		Message: data.Message,
	})
	return ctx.JSON(http.StatusOK, echo.Map{"success": "notifications dispatched"})
}

type NotifyRequest struct {
	Title   string `json:"title" validate:"required"`
	Message string `json:"message" validate:"required"`
}
