package mail

import (
	"fmt"
	"text/template"

	account "github.com/goliatone/go-account"
)

const (
	activationSubject    = "Activate your account"
	passwordResetSubject = "Reset your password"
)

const templateActivationEmailRaw = `
Thanks for registering!

Click the link below to activate your account:

{{.Link}}

You are receiving this email because {{.To}} was used to register an account.
If you did not perform this action, please ignore this email.
`

const templatePasswordResetEmailRaw = `
Click the link below to continue resetting your password:

{{.Link}}

You are receiving this email because a password reset was requested for {{.To}}.
If you did not perform this action, you can ignore this email; your password
will stay the same.
`

var (
	templateActivationEmail = template.Must(
		template.New("activation_email_template").Parse(templateActivationEmailRaw))
	templatePasswordResetEmail = template.Must(
		template.New("password_reset_email_template").Parse(templatePasswordResetEmailRaw))
)

func templateFor(kind account.NotificationKind) (string, *template.Template, error) {
	switch kind {
	case account.NotificationActivation:
		return activationSubject, templateActivationEmail, nil
	case account.NotificationPasswordReset:
		return passwordResetSubject, templatePasswordResetEmail, nil
	default:
		return "", nil, fmt.Errorf("unknown notification kind %q", kind)
	}
}
