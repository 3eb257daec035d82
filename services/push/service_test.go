package pushsvc

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"strings"
	"testing"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendly/attendly/core"
	"github.com/attendly/attendly/core/reminder"
	"github.com/attendly/attendly/core/user"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func newTestService(t *testing.T) *Service {
	t.Helper()
	conf := &core.Config{Env: "TEST"}
	conf.Push.VAPIDPublicKey = "public"
	conf.Push.VAPIDPrivateKey = "private"
	conf.Push.VAPIDSubject = "mailto:admin@example.com"
	svc, err := NewService(conf, nopLogger{})
	require.NoError(t, err)
	return svc
}

func mockSend(t *testing.T, status int, err error, got *[]byte, opts **webpush.Options) {
	t.Helper()
	orig := sendNotificationFunc
	t.Cleanup(func() { sendNotificationFunc = orig })
	sendNotificationFunc = func(msg []byte, _ *webpush.Subscription, o *webpush.Options) (*http.Response, error) {
		if got != nil {
			*got = msg
		}
		if opts != nil {
			*opts = o
		}
		if err != nil {
			return nil, err
		}
		return &http.Response{StatusCode: status, Body: ioutil.NopCloser(strings.NewReader(""))}, nil
	}
}

func TestNewService(t *testing.T) {
	conf := &core.Config{Env: "PROD"}
	_, err := NewService(conf, nopLogger{})
	assert.EqualError(t, err, "missing VAPID keys")

	conf.Env = "DEV"
	svc, err := NewService(conf, nopLogger{})
	require.NoError(t, err)
	assert.NotEmpty(t, svc.PublicKey())
	assert.NotEmpty(t, svc.keys.Private)
}

func TestNotifier_Notify(t *testing.T) {
	svc := newTestService(t)
	nt := NewNotifier(svc)

	sub := &user.PushSubscription{Endpoint: "https://push.example.com/abc"}
	sub.Keys.P256dh = "p256dh"
	sub.Keys.Auth = "auth"
	usr := user.User{ID: "u1", PushSubscription: sub}
	assert.True(t, nt.Accepts(usr))
	assert.False(t, nt.Accepts(user.User{ID: "u2"}))

	var payload []byte
	var opts *webpush.Options
	mockSend(t, http.StatusCreated, nil, &payload, &opts)

	err := nt.Notify(context.Background(), reminder.Notification{User: usr, Message: "Reminder: Update your attendance records for today!"})
	require.NoError(t, err)

	var body map[string]string
	require.NoError(t, json.Unmarshal(payload, &body))
	assert.Equal(t, map[string]string{"message": "Reminder: Update your attendance records for today!"}, body)
	assert.Equal(t, "admin@example.com", opts.Subscriber)
	assert.Equal(t, "public", opts.VAPIDPublicKey)
	assert.Equal(t, defaultTTL, opts.TTL)
}

func TestService_Send_errors(t *testing.T) {
	svc := newTestService(t)
	sub := user.PushSubscription{Endpoint: "https://push.example.com/abc"}

	tests := []struct {
		name    string
		status  int
		sendErr error
		wantErr string
	}{
		{"gone", http.StatusGone, nil, reminder.ErrSubscriptionExpired.Error()},
		{"not found", http.StatusNotFound, nil, reminder.ErrSubscriptionExpired.Error()},
		{"server error", http.StatusInternalServerError, nil, "push service responded 500"},
		{"transport", 0, errors.New("dial tcp"), "sending push notification: dial tcp"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mockSend(t, tc.status, tc.sendErr, nil, nil)
			err := svc.Send(context.Background(), sub, map[string]string{"message": "hi"})
			assert.EqualError(t, err, tc.wantErr)
		})
	}
}
