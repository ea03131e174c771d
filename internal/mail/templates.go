package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"
)

// Links builds the client-side URLs embedded in emails.
type Links struct {
	BaseURL string
}

// VerifyEmail returns the link that completes email verification.
func (l Links) VerifyEmail(token string) string {
	return l.join("verify-email", token)
}

// ResetPassword returns the link that opens the password reset form.
func (l Links) ResetPassword(token string) string {
	return l.join("reset-password", token)
}

func (l Links) join(route, token string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(l.BaseURL, "/"), route, url.PathEscape(token))
}

var verificationTemplate = template.Must(template.New("verification").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
  <h2>Hello {{.Name}},</h2>
  {{if .Resend}}<p>Here is a new link to verify your email address. Earlier links no longer work.</p>
  {{else}}<p>Welcome to VideoCave! Please verify your email address to finish setting up your account.</p>{{end}}
  <p><a href="{{.Link}}">Verify email</a></p>
  <p>This link expires in {{.Expiry}}.</p>
</body>
</html>`))

var resetTemplate = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
  <h2>Hello {{.Name}},</h2>
  <p>We received a request to reset your password.</p>
  <p><a href="{{.Link}}">Reset password</a></p>
  <p>This link expires in {{.Expiry}}. If you did not ask for a reset you can ignore this email.</p>
</body>
</html>`))

type templateData struct {
	Name   string
	Link   string
	Expiry string
	Resend bool
}

// VerificationEmail renders the email sent on registration and on resend.
func VerificationEmail(to, name, link, expiry string, resend bool) (Message, error) {
	subject := "Verify your email"
	if resend {
		subject = "Your new verification link"
	}
	html, err := render(verificationTemplate, templateData{Name: name, Link: link, Expiry: expiry, Resend: resend})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: subject,
		HTML:    html,
		Text:    fmt.Sprintf("Verify your email address: %s (expires in %s)", link, expiry),
	}, nil
}

// PasswordResetEmail renders the email sent when a reset is requested.
func PasswordResetEmail(to, name, link, expiry string) (Message, error) {
	html, err := render(resetTemplate, templateData{Name: name, Link: link, Expiry: expiry})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: "Reset your password",
		HTML:    html,
		Text:    fmt.Sprintf("Reset your password: %s (expires in %s)", link, expiry),
	}, nil
}

func render(t *template.Template, data templateData) (string, error) {
	if data.Name == "" {
		data.Name = "there"
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s email: %w", t.Name(), err)
	}
	return buf.String(), nil
}
