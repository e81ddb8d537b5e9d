package accounts

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/gofiber/template/django/v3"
	goerrors "github.com/goliatone/go-errors"
)

const (
	templateVerifyAccount = "verify_account"
	templatePasswordReset = "password_reset"
)

// Email is a rendered message ready for delivery
type Email struct {
	Subject string
	To      string
	From    string
	HTML    string
}

// EmailSenderFunc adapts a function to the EmailSender interface.
type EmailSenderFunc func(ctx context.Context, email Email) error

func (f EmailSenderFunc) Send(ctx context.Context, email Email) error {
	return f(ctx, email)
}

// LogEmailSender writes emails to the logger instead of delivering them.
type LogEmailSender struct {
	Logger Logger
}

func (s LogEmailSender) Send(_ context.Context, email Email) error {
	logger := s.Logger
	if logger == nil {
		logger = defLogger()
	}
	logger.Info("email",
		"to", email.To,
		"from", email.From,
		"subject", email.Subject,
		"html", email.HTML,
	)
	return nil
}

// Mailer renders the account emails and hands them to an EmailSender.
type Mailer struct {
	engine   *django.Engine
	sender   EmailSender
	from     string
	baseURL  string
	resetTTL time.Duration
}

// NewMailer loads the embedded email templates.
func NewMailer(cfg Config, sender EmailSender) (*Mailer, error) {
	if sender == nil {
		return nil, goerrors.New("email sender is required", goerrors.CategoryValidation)
	}

	engine := django.NewFileSystem(http.FS(GetEmailTemplatesFS()), ".html")
	if err := engine.Load(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load email templates")
	}

	return &Mailer{
		engine:   engine,
		sender:   sender,
		from:     cfg.GetEmailFrom(),
		baseURL:  cfg.GetBaseURL(),
		resetTTL: cfg.GetResetTokenTTL(),
	}, nil
}

// SendVerification emails the account verification link for token.
func (m *Mailer) SendVerification(ctx context.Context, user *User, token string) error {
	link, err := m.link("verify", token)
	if err != nil {
		return err
	}

	return m.send(ctx, user, "Verify your account", templateVerifyAccount, map[string]any{
		"name": displayName(user),
		"link": link,
	})
}

// SendPasswordReset emails the password reset link for token.
func (m *Mailer) SendPasswordReset(ctx context.Context, user *User, token string) error {
	link, err := m.link("password-reset", token)
	if err != nil {
		return err
	}

	ttl := m.resetTTL
	if ttl <= 0 {
		ttl = DefaultResetTokenTTL
	}

	return m.send(ctx, user, "Reset your password", templatePasswordReset, map[string]any{
		"name": displayName(user),
		"link": link,
		"ttl":  ttl.String(),
	})
}

func (m *Mailer) send(ctx context.Context, user *User, subject, template string, data map[string]any) error {
	var body bytes.Buffer
	if err := m.engine.Render(&body, template, data); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render email").
			WithMetadata(map[string]any{"template": template})
	}

	err := m.sender.Send(ctx, Email{
		Subject: subject,
		To:      user.Email,
		From:    m.from,
		HTML:    body.String(),
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to send email").
			WithMetadata(map[string]any{"template": template})
	}
	return nil
}

func (m *Mailer) link(segments ...string) (string, error) {
	link, err := url.JoinPath(m.baseURL, segments...)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build email link")
	}
	return link, nil
}

func displayName(user *User) string {
	if user.Name != "" {
		return user.Name
	}
	return user.Username
}
