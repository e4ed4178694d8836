package managers

import (
	"context"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/matcornic/hermes/v2"
	log "github.com/sirupsen/logrus"
	"server-identity/internal/config"
)

const sendTimeout = 2 * time.Second

// MailMgr is the notification dispatcher of the identity service.
type MailMgr interface {
	SendVerificationMail(email, name, link string) error
	SendPasswordResetMail(email, name, link string) error
	SendEmailChangeMail(email, name, link string) error
	SendPasswordChangedMail(email, name string) error
}

// MailManager formats mails with Hermes and delivers them through Mailgun.
// Outside of production nothing is sent.
type MailManager struct {
	Hermes     *hermes.Hermes
	Mailgun    *mailgun.MailgunImpl
	from       string
	production bool
}

// NewMailManager initializes a new MailManager from the mail configuration.
func NewMailManager(cfg *config.Config) MailMgr {
	log.Info("Initializing mail manager")

	if !cfg.IsProduction() {
		log.Info("Running in development mode, email will not be sent to users")
	}

	mailgunInstance := mailgun.NewMailgun(cfg.Mail.Domain, cfg.Mail.APIKey)
	mailgunInstance.SetAPIBase(mailgun.APIBaseEU)

	mm := &MailManager{
		Hermes: &hermes.Hermes{
			Theme:         new(hermes.Default),
			TextDirection: hermes.TDLeftToRight,
			Product: hermes.Product{
				Name:        "Server Identity",
				Link:        cfg.FrontendURL,
				Copyright:   "© Server Identity",
				TroubleText: "If you’re having trouble with the button '{ACTION}', copy and paste the URL below into your web browser.",
			},
		},
		Mailgun:    mailgunInstance,
		from:       cfg.Mail.From,
		production: cfg.IsProduction(),
	}
	log.Info("Initialized mail manager")
	return mm
}

// SendVerificationMail asks a freshly registered user to confirm the email address.
func (mm *MailManager) SendVerificationMail(email, name, link string) error {
	body := hermes.Email{
		Body: hermes.Body{
			Name:   name,
			Intros: []string{"Welcome! We're very excited to have you on board."},
			Actions: []hermes.Action{
				{
					Instructions: "To verify your account, please click here:",
					Button:       hermes.Button{Color: "#22BC66", Text: "Verify your account", Link: link},
				},
			},
			Outros: []string{"The link expires after one day. Request a new one if it did."},
		},
	}
	return mm.send(email, "Verify User Account", body)
}

// SendPasswordResetMail sends the link completing a forgotten password flow.
func (mm *MailManager) SendPasswordResetMail(email, name, link string) error {
	body := hermes.Email{
		Body: hermes.Body{
			Name:   name,
			Intros: []string{"You have received this email because a password reset request for your account was received."},
			Actions: []hermes.Action{
				{
					Instructions: "Click the button below to reset your password:",
					Button:       hermes.Button{Color: "#DC4D2F", Text: "Reset your password", Link: link},
				},
			},
			Outros: []string{"If you did not request a password reset, no further action is required on your part."},
		},
	}
	return mm.send(email, "Password Reset", body)
}

// SendEmailChangeMail is sent to the new address of an email change request.
func (mm *MailManager) SendEmailChangeMail(email, name, link string) error {
	body := hermes.Email{
		Body: hermes.Body{
			Name:   name,
			Intros: []string{"A request was made to use this address for your account."},
			Actions: []hermes.Action{
				{
					Instructions: "Confirm the new address:",
					Button:       hermes.Button{Text: "Confirm email", Link: link},
				},
			},
		},
	}
	return mm.send(email, "Confirm Email Change", body)
}

// SendPasswordChangedMail notifies the user that the password was changed.
func (mm *MailManager) SendPasswordChangedMail(email, name string) error {
	body := hermes.Email{
		Body: hermes.Body{
			Name: name,
			Intros: []string{
				"Your password has been changed and all other sessions were signed out.",
				"If this wasn't you, reset your password immediately.",
			},
		},
	}
	return mm.send(email, "Password Changed", body)
}

func (mm *MailManager) send(email, subject string, body hermes.Email) error {
	if !mm.production {
		log.Infof("Skipping %q mail in development mode", subject)
		return nil
	}

	html, err := mm.Hermes.GenerateHTML(body)
	if err != nil {
		return err
	}
	text, err := mm.Hermes.GeneratePlainText(body)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	message := mm.Mailgun.NewMessage(mm.from, subject, text, email)
	message.SetHtml(html)
	if _, _, err = mm.Mailgun.Send(ctx, message); err != nil {
		log.Warningf("Error sending %q mail: %v", subject, err)
		return err
	}
	log.Debugf("%q mail sent", subject)

	return nil
}
