package emailsvc

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendly/attendly/core"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func testConfig() *core.Config {
	return &core.Config{
		AppName:          "Attendly",
		FrontendBaseURL:  "http://localhost:5173",
		DefaultFromEmail: mail.Address{Name: "Attendly", Address: "noreply@localhost"},
	}
}

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	svc := NewConsoleServiceMock(testConfig(), nopLogger{})

	svc.SendMessages(
		&core.EmailMessage{
			To:           []mail.Address{{Name: "Alice", Address: "alice@example.com"}},
			Subject:      "Attendance reminder",
			TemplateName: "attendance_reminder",
			TemplateData: map[string]interface{}{
				"Name":       "Alice",
				"Message":    "Reminder: Update your attendance records for today!",
				"LowCourses": []interface{}{},
			},
		},
		&core.EmailMessage{Subject: "no recipients", BodyStr: "ignored"},
		&core.EmailMessage{To: []mail.Address{{Address: "bob@example.com"}}, Subject: "empty"},
	)

	sent := svc.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].TextContent, "Hi Alice,")
	assert.Contains(t, sent[0].TextContent, "Attendly - http://localhost:5173")
	assert.NotEmpty(t, sent[0].HTMLContent)
}

func TestConsoleService_Send_unknownTemplate(t *testing.T) {
	svc := NewConsoleServiceMock(testConfig(), nopLogger{})
	err := svc.Send(&core.EmailMessage{
		To:           []mail.Address{{Address: "alice@example.com"}},
		TemplateName: "missing",
	})
	assert.EqualError(t, err, `rendering email: email template "missing" not found`)
	assert.Empty(t, svc.Sent())
}

func TestConsoleService_Send_renderFailure(t *testing.T) {
	tests := []struct {
		name    string
		msg     *core.EmailMessage
		wantErr string
	}{
		{
			name:    "missing template data",
			msg:     &core.EmailMessage{To: []mail.Address{{Address: "alice@example.com"}}, TemplateName: "attendance_reminder"},
			wantErr: "rendering text template",
		},
		{
			name:    "layout is not a template",
			msg:     &core.EmailMessage{To: []mail.Address{{Address: "alice@example.com"}}, TemplateName: "base"},
			wantErr: `email template "base" not found`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewConsoleServiceMock(testConfig(), nopLogger{})
			err := svc.Send(tc.msg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
			assert.Empty(t, svc.Sent())
		})
	}
}

func TestConsoleService_format(t *testing.T) {
	svc := newConsoleService(testConfig(), nopLogger{})
	body, err := svc.format(core.EmailMessage{
		To:          []mail.Address{{Name: "Alice", Address: "alice@example.com"}},
		Subject:     "Hello",
		TextContent: "plain body",
	})
	require.NoError(t, err)
	assert.Contains(t, body, "From: \"Attendly\" <noreply@localhost>\r\n")
	assert.Contains(t, body, "Subject: [Attendly] Hello\r\n")
	assert.Contains(t, body, "To: \"Alice\" <alice@example.com>\r\n")
	assert.Contains(t, body, "plain body")
	assert.NotContains(t, body, "text/html")
	assert.NotContains(t, body, "CC:")
}

func TestSendgridService_prepare(t *testing.T) {
	svc := NewSendgridService(testConfig(), nopLogger{}).(*sendgridService)
	m := svc.prepare(core.EmailMessage{
		To:          []mail.Address{{Name: "Alice", Address: "alice@example.com"}},
		Subject:     "Hello",
		TextContent: "plain",
		HTMLContent: "<p>html</p>",
	})

	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "[Attendly] Hello", m.Personalizations[0].Subject)
	assert.Equal(t, "alice@example.com", m.Personalizations[0].To[0].Address)
	assert.Equal(t, "noreply@localhost", m.From.Address)
	require.Len(t, m.Content, 2)
	assert.Equal(t, "text/html", m.Content[1].Type)
}
