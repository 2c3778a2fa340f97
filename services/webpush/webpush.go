// Package webpushsvc delivers push payloads over the Web Push protocol with
// VAPID authentication.
package webpushsvc

import (
	"context"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/pkg/errors"

	"github.com/shulehub/shule/core"
	"github.com/shulehub/shule/core/push"
)

type Transport struct {
	publicKey  string
	privateKey string
	subscriber string
}

var _ push.Transport = (*Transport)(nil)

func NewTransport(conf *core.Config) *Transport {
	return &Transport{
		publicKey:  conf.Push.VAPIDPublicKey,
		privateKey: conf.Push.VAPIDPrivateKey,
		subscriber: conf.Push.Subscriber,
	}
}

func (t *Transport) Send(ctx context.Context, sub push.Subscription, payload []byte) error {
	res, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}, &webpush.Options{
		Subscriber:      t.subscriber,
		VAPIDPublicKey:  t.publicKey,
		VAPIDPrivateKey: t.privateKey,
		TTL:             60,
	})
	if err != nil {
		return errors.Wrap(err, "sending web push")
	}
	defer func() { _ = res.Body.Close() }()

	switch {
	case res.StatusCode == http.StatusNotFound, res.StatusCode == http.StatusGone:
		// the push service will never accept messages for this endpoint again
		return push.ErrGone
	case res.StatusCode >= http.StatusBadRequest:
		return errors.Errorf("push service returned %s", res.Status)
	}
	return nil
}
