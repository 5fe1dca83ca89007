package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendTicketEscalation(toEmail, localID, externalID, tenantID, summary string) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
	senderName  string
}

func NewEmailService(host string, port int, username, password, senderName string) IEmailService {
	d := gomail.NewDialer(host, port, username, password)

	return &emailService{
		dialer:      d,
		senderEmail: username,
		senderName:  senderName,
	}
}

// SendTicketEscalation notifies the support inbox about a high-urgency ticket.
// Callers fire and forget; a mail failure never fails the ticket workflow.
func (s *emailService) SendTicketEscalation(toEmail, localID, externalID, tenantID, summary string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.senderEmail, s.senderName))
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", fmt.Sprintf("[URGENT] Ticket %s requires attention", localID))

	externalRef := "not mirrored yet (local only)"
	if externalID != "" {
		externalRef = externalID
	}

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>High-urgency support ticket</h2>
			<p><strong>Ticket:</strong> %s</p>
			<p><strong>External reference:</strong> %s</p>
			<p><strong>Tenant:</strong> %s</p>
			<p><strong>Summary:</strong></p>
			<p>%s</p>
		</div>
	`, localID, externalRef, tenantID, summary)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		fmt.Printf("[MAILER ERROR] Failed to send escalation for ticket %s: %v\n", localID, err)
		return err
	}

	fmt.Printf("[MAILER] Escalation sent for ticket %s\n", localID)
	return nil
}
