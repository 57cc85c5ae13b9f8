// Package mailer renders student emails and delivers them over SMTP.
package mailer

import (
	"bytes"
	"context"
	"html/template"
	"net/smtp"

	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"student-billing/internal/reconcile"
)

var Error = errs.Class("mailer")

type Config struct {
	Host     string
	Port     string
	From     string
	Password string
}

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

var subjects = map[string]string{
	reconcile.TemplateWelcome:     "Te damos la bienvenida a DAO Education",
	reconcile.TemplatePaymentLink: "Acerca de tu pago a DAO Education",
}

var templates = template.Must(template.New("mail").Parse(`
{{define "welcome"}}<p>Hola {{.full_name}},</p>
<p>Tu cuenta en el campus ya está lista.</p>
<p>Usuario: {{.email}}<br>Contraseña: {{.password}}</p>
{{with .discord_verification_link}}<p>Únete a la comunidad: <a href="{{.}}">{{.}}</a></p>{{end}}
{{end}}
{{define "payment_link"}}<p>Hola {{.full_name}},</p>
<p>Tienes cargos pendientes. Puedes pagarlos aquí: <a href="{{.checkout_link}}">{{.checkout_link}}</a></p>
{{end}}`))

type Mailer struct {
	cfg  Config
	send SendFunc
	log  *zap.Logger
}

func New(cfg Config, log *zap.Logger) *Mailer {
	return NewWithSender(cfg, smtp.SendMail, log)
}

func NewWithSender(cfg Config, send SendFunc, log *zap.Logger) *Mailer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mailer{cfg: cfg, send: send, log: log}
}

// Send renders tmpl with data and mails it to one recipient.
func (m *Mailer) Send(ctx context.Context, to, tmpl string, data map[string]any) error {
	subject, ok := subjects[tmpl]
	if !ok {
		return Error.New("unknown template %q", tmpl)
	}
	if err := ctx.Err(); err != nil {
		return Error.Wrap(err)
	}

	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, tmpl, data); err != nil {
		return Error.Wrap(err)
	}

	var msg bytes.Buffer
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("From: " + m.cfg.From + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())

	auth := smtp.PlainAuth("", m.cfg.From, m.cfg.Password, m.cfg.Host)
	if err := m.send(m.cfg.Host+":"+m.cfg.Port, auth, m.cfg.From, []string{to}, msg.Bytes()); err != nil {
		m.log.Error("smtp send failed", zap.String("template", tmpl), zap.Error(err))
		return Error.Wrap(err)
	}
	m.log.Debug("email sent", zap.String("template", tmpl))
	return nil
}
