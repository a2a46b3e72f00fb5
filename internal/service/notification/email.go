package notification

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrNotConfigured = errors.New("email configuration not set")

// Config holds SMTP settings
type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	FromName   string
	AdminEmail string
	Timeout    time.Duration
}

// Enabled reports whether enough is set to attempt delivery
func (c Config) Enabled() bool {
	return c.Host != "" && c.Port > 0 && c.Username != "" && c.Password != ""
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier sends HTML confirmation mail to the customer and the admin
type SMTPNotifier struct {
	cfg  Config
	send sendFunc
}

// NewSMTPNotifier creates an SMTP backed notifier
func NewSMTPNotifier(cfg Config) *SMTPNotifier {
	if cfg.FromName == "" {
		cfg.FromName = "QuickDeliver"
	}
	if cfg.AdminEmail == "" {
		cfg.AdminEmail = cfg.Username
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SMTPNotifier{cfg: cfg, send: smtp.SendMail}
}

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <div style="background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); padding: 30px; border-radius: 10px;">
    <h1 style="color: white; margin: 0; text-align: center;">Booking Confirmed!</h1>
  </div>
  <div style="background: #f9f9f9; padding: 30px; border-radius: 0 0 10px 10px;">
    <p style="font-size: 16px; color: #333;">Dear <strong>{{.CustomerName}}</strong>,</p>
    <p style="font-size: 16px; color: #333;">Thank you for booking with <strong>{{.Company}}</strong>!</p>
    <div style="background: white; padding: 20px; border-radius: 8px; margin: 20px 0; border-left: 4px solid #667eea;">
      <h3 style="margin-top: 0; color: #333;">Booking Details:</h3>
      <p style="margin: 10px 0;"><strong>Booking ID:</strong> #{{.BookingID}}</p>
      <p style="margin: 10px 0;"><strong>Service:</strong> {{.Service}}</p>
      <p style="margin: 10px 0;"><strong>Status:</strong> <span style="color: #28a745;">Pending</span></p>
    </div>
    <p style="font-size: 14px; color: #666;">Our team will contact you shortly to confirm pickup and delivery details.</p>
    <div style="margin-top: 30px; padding-top: 20px; border-top: 1px solid #ddd;">
      <p style="font-size: 14px; color: #888; margin: 0;">Best regards,</p>
      <p style="font-size: 16px; color: #667eea; font-weight: bold; margin: 5px 0;">The {{.Company}} Team</p>
    </div>
  </div>
  <div style="text-align: center; padding: 20px; color: #999; font-size: 12px;">
    <p>This is an automated message. Please do not reply to this email.</p>
  </div>
</div>`))

type confirmationData struct {
	CustomerName string
	Company      string
	Service      string
	BookingID    int64
}

// SendBookingConfirmation mails the customer and the admin in one message.
func (n *SMTPNotifier) SendBookingConfirmation(ctx context.Context, email, customerName, service string, bookingID int64) Result {
	if !n.cfg.Enabled() {
		return Result{Success: false, Error: ErrNotConfigured.Error()}
	}

	recipients := []string{email}
	if n.cfg.AdminEmail != "" && !strings.EqualFold(n.cfg.AdminEmail, email) {
		recipients = append(recipients, n.cfg.AdminEmail)
	}

	msg, messageID, err := n.buildMessage(recipients, customerName, service, bookingID)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}

	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))
	auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)

	// net/smtp has no context support, so the send runs with its own deadline
	done := make(chan error, 1)
	go func() {
		done <- n.send(addr, auth, n.cfg.Username, recipients, msg)
	}()

	ctx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
	defer cancel()

	select {
	case err := <-done:
		if err != nil {
			return Result{Success: false, Error: err.Error()}
		}
		return Result{Success: true, MessageID: messageID}
	case <-ctx.Done():
		return Result{Success: false, Error: ctx.Err().Error()}
	}
}

func (n *SMTPNotifier) buildMessage(to []string, customerName, service string, bookingID int64) ([]byte, string, error) {
	var body bytes.Buffer
	err := confirmationTmpl.Execute(&body, confirmationData{
		CustomerName: customerName,
		Company:      n.cfg.FromName,
		Service:      service,
		BookingID:    bookingID,
	})
	if err != nil {
		return nil, "", fmt.Errorf("render confirmation: %w", err)
	}

	domain := n.cfg.Host
	if at := strings.LastIndex(n.cfg.Username, "@"); at >= 0 {
		domain = n.cfg.Username[at+1:]
	}
	messageID := fmt.Sprintf("<%s@%s>", uuid.New().String(), domain)

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: \"%s\" <%s>\r\n", n.cfg.FromName, n.cfg.Username)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "Subject: Booking Confirmation - %s\r\n", n.cfg.FromName)
	fmt.Fprintf(&msg, "Message-ID: %s\r\n", messageID)
	fmt.Fprintf(&msg, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())

	return msg.Bytes(), messageID, nil
}
