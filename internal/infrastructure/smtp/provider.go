package smtp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"text/template"
	"time"

	"github.com/yoma-opportunity/internal/config"
	"github.com/yoma-opportunity/internal/domain"
)

// Provider renders and delivers templated emails.
type Provider interface {
	Send(ctx context.Context, emailType domain.EmailType, recipients []domain.EmailRecipient, data interface{}) error
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type provider struct {
	host      string
	port      string
	from      string
	username  string
	password  string
	send      sendFunc
	templates map[domain.EmailType]emailTemplate
}

type emailTemplate struct {
	subject *template.Template
	body    *template.Template
}

// templateData is what every template is executed with.
type templateData struct {
	Recipient domain.EmailRecipient
	Data      interface{}
}

var funcs = template.FuncMap{
	"date": func(t time.Time) string { return t.Format("2006-01-02") },
	"enddate": func(t *time.Time) string {
		if t == nil {
			return "no end date"
		}
		return t.Format("2006-01-02")
	},
}

func NewProvider(cfg *config.Config) Provider {
	return newProvider(cfg, smtp.SendMail)
}

func newProvider(cfg *config.Config, send sendFunc) *provider {
	return &provider{
		host:      cfg.SMTPHost,
		port:      cfg.SMTPPort,
		from:      cfg.SMTPFrom,
		username:  cfg.SMTPUsername,
		password:  cfg.SMTPPassword,
		send:      send,
		templates: parseTemplates(),
	}
}

func parseTemplates() map[domain.EmailType]emailTemplate {
	out := make(map[domain.EmailType]emailTemplate, len(sources))
	for t, src := range sources {
		out[t] = emailTemplate{
			subject: template.Must(template.New(string(t) + "_subject").Funcs(funcs).Parse(src.subject)),
			body:    template.Must(template.New(string(t) + "_body").Funcs(funcs).Parse(src.body)),
		}
	}
	return out
}

// Send renders the template of emailType once per recipient and delivers
// each message. Delivery errors are joined so one bad address does not stop
// the rest.
func (p *provider) Send(ctx context.Context, emailType domain.EmailType, recipients []domain.EmailRecipient, data interface{}) error {
	tpl, ok := p.templates[emailType]
	if !ok {
		return fmt.Errorf("email type '%s' has no template: %w", emailType, domain.ErrBadRequest)
	}
	if len(recipients) == 0 {
		return fmt.Errorf("no recipients: %w", domain.ErrBadRequest)
	}

	var auth smtp.Auth
	if p.username != "" {
		auth = smtp.PlainAuth("", p.username, p.password, p.host)
	}
	addr := fmt.Sprintf("%s:%s", p.host, p.port)

	var errs []error
	for _, r := range recipients {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg, err := p.render(tpl, r, data)
		if err != nil {
			return err
		}
		if err := p.send(addr, auth, p.from, []string{r.Email}, msg); err != nil {
			errs = append(errs, fmt.Errorf("send to %s: %w", r.Email, err))
		}
	}
	return errors.Join(errs...)
}

func (p *provider) render(tpl emailTemplate, r domain.EmailRecipient, data interface{}) ([]byte, error) {
	td := templateData{Recipient: r, Data: data}
	var subject, body bytes.Buffer
	if err := tpl.subject.Execute(&subject, td); err != nil {
		return nil, fmt.Errorf("render subject: %w", err)
	}
	if err := tpl.body.Execute(&body, td); err != nil {
		return nil, fmt.Errorf("render body: %w", err)
	}
	to := r.Email
	if r.DisplayName != "" {
		to = fmt.Sprintf("%s <%s>", r.DisplayName, r.Email)
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		p.from, to, subject.String(), body.String())
	return []byte(msg), nil
}
