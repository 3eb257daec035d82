package reminder

import (
	"context"
	"net/mail"

	"github.com/attendly/attendly/core"
	"github.com/attendly/attendly/core/user"
)

const emailTemplate = "attendance_reminder"

// EmailNotifier sends reminders by email.
type EmailNotifier struct {
	svc core.EmailService
}

var _ Notifier = (*EmailNotifier)(nil)

func NewEmailNotifier(svc core.EmailService) *EmailNotifier {
	return &EmailNotifier{svc: svc}
}

func (nt *EmailNotifier) Accepts(usr user.User) bool { return usr.Email != "" }

func (nt *EmailNotifier) Notify(_ context.Context, n Notification) error {
	return nt.svc.Send(&core.EmailMessage{
		To:           []mail.Address{{Name: n.User.FullName(), Address: n.User.Email}},
		Subject:      n.Title,
		TemplateName: emailTemplate,
		TemplateData: map[string]interface{}{
			"Name":       n.User.FullName(),
			"Message":    n.Message,
			"LowCourses": n.LowCourses,
		},
	})
}
