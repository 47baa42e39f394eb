// Package tools provides operator notification helpers.
package tools

import (
	"fmt"
	"net"
	"net/smtp"

	"github.com/jordan-wright/email"

	"github.com/anyswap/CrossChain-HTLC/params"
)

// Mailer smtp mailer to the configured operators
type Mailer struct {
	serverURL    string
	auth         smtp.Auth
	fromWithName string
	to           []string
	cc           []string
}

// NewMailer new mailer from email config
func NewMailer(config *params.EmailConfig) *Mailer {
	m := &Mailer{
		serverURL: net.JoinHostPort(config.Server, fmt.Sprintf("%d", config.Port)),
		to:        config.To,
		cc:        config.Cc,
	}
	if config.Password != "" {
		m.auth = smtp.PlainAuth("", config.From, config.Password, config.Server)
	}
	if config.FromName != "" {
		m.fromWithName = fmt.Sprintf("%s <%s>", config.FromName, config.From)
	} else {
		m.fromWithName = config.From
	}
	return m
}

// NewEmail build a plain text email to the operators
func (m *Mailer) NewEmail(subject, content string) *email.Email {
	e := email.NewEmail()
	e.From = m.fromWithName
	e.To = m.to
	e.Cc = m.cc
	e.Subject = subject
	e.Text = []byte(content)
	return e
}

// SendEmail send email to the operators
func (m *Mailer) SendEmail(subject, content string) error {
	return m.NewEmail(subject, content).Send(m.serverURL, m.auth)
}
