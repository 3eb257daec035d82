// Package pushsvc delivers browser notifications with the Web Push protocol (VAPID).
package pushsvc

import (
	"context"
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/pkg/errors"

	"github.com/attendly/attendly/core"
	"github.com/attendly/attendly/core/reminder"
	"github.com/attendly/attendly/core/user"
)

const defaultTTL = 24 * 60 * 60 // seconds

var sendNotificationFunc = webpush.SendNotification // mockable

type Keys struct {
	Public  string
	Private string
}

// GenerateVAPIDKeys returns a new VAPID key pair.
func GenerateVAPIDKeys() (Keys, error) {
	priv, pub, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		return Keys{}, errors.Wrap(err, "generating VAPID keys")
	}
	return Keys{Public: pub, Private: priv}, nil
}

// Service sends push messages signed with the configured VAPID keys.
type Service struct {
	keys       Keys
	subscriber string
	logger     core.Logger
}

// NewService uses the VAPID keys of conf. In DEV, missing keys are generated and logged.
func NewService(conf *core.Config, logger core.Logger) (*Service, error) {
	keys := Keys{Public: conf.Push.VAPIDPublicKey, Private: conf.Push.VAPIDPrivateKey}
	if keys.Public == "" || keys.Private == "" {
		if conf.Env != "DEV" {
			return nil, errors.New("missing VAPID keys")
		}
		var err error
		if keys, err = GenerateVAPIDKeys(); err != nil {
			return nil, err
		}
		logger.Warn("generated VAPID keys, set them in the config to keep subscriptions valid", map[string]interface{}{
			"push.vapidPublicKey":  keys.Public,
			"push.vapidPrivateKey": keys.Private,
		})
	}
	return &Service{
		keys:       keys,
		subscriber: strings.TrimPrefix(conf.Push.VAPIDSubject, "mailto:"), // re-added by webpush
		logger:     logger,
	}, nil
}

func (svc *Service) PublicKey() string { return svc.keys.Public }

// Send pushes payload to sub. Expired subscriptions yield reminder.ErrSubscriptionExpired.
func (svc *Service) Send(ctx context.Context, sub user.PushSubscription, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "encoding push payload")
	}

	wsub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{P256dh: sub.Keys.P256dh, Auth: sub.Keys.Auth},
	}
	res, err := sendNotificationFunc(body, wsub, &webpush.Options{
		HTTPClient:      &http.Client{Transport: ctxTransport{ctx: ctx}},
		Subscriber:      svc.subscriber,
		TTL:             defaultTTL,
		VAPIDPublicKey:  svc.keys.Public,
		VAPIDPrivateKey: svc.keys.Private,
	})
	if err != nil {
		return errors.Wrap(err, "sending push notification")
	}
	defer res.Body.Close()
	_, _ = io.Copy(ioutil.Discard, res.Body)

	switch {
	case res.StatusCode == http.StatusNotFound || res.StatusCode == http.StatusGone:
		return reminder.ErrSubscriptionExpired
	case res.StatusCode >= http.StatusBadRequest:
		return errors.Errorf("push service responded %d", res.StatusCode)
	}
	return nil
}

// ctxTransport binds outgoing requests to ctx.
type ctxTransport struct {
	ctx context.Context
}

func (t ctxTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return http.DefaultTransport.RoundTrip(req.WithContext(t.ctx))
}

// Notifier delivers reminders to users with a push subscription.
type Notifier struct {
	svc *Service
}

var _ reminder.Notifier = (*Notifier)(nil) // interface compliance check

func NewNotifier(svc *Service) *Notifier {
	return &Notifier{svc: svc}
}

func (nt *Notifier) Accepts(usr user.User) bool { return usr.HasPushSubscription() }

func (nt *Notifier) Notify(ctx context.Context, n reminder.Notification) error {
	return nt.svc.Send(ctx, *n.User.PushSubscription, map[string]string{"message": n.Message})
}
