package services

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"inspection-backend/internal/models"

	"gopkg.in/gomail.v2"
)

// EmailSender — контракт отправки уведомлений. Отправка всегда best-effort:
// вызывающая сторона логирует ошибку и не откатывает транзакцию.
type EmailSender interface {
	SendInspectionSubmitted(reviewers []models.User, inspection *models.Inspection, vehicle *models.Vehicle, author *models.User) error
	SendDecision(author *models.User, inspection *models.Inspection, approval *models.Approval, reviewer *models.User) error
}

// SMTPEmailSender отправляет письма через SMTP
type SMTPEmailSender struct {
	host string
	port int
	user string
	pass string
	from string
}

func NewSMTPEmailSender() *SMTPEmailSender {
	port := 587
	if val, err := strconv.Atoi(os.Getenv("SMTP_PORT")); err == nil && val > 0 {
		port = val
	}

	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = os.Getenv("SMTP_USER")
	}

	return &SMTPEmailSender{
		host: os.Getenv("SMTP_HOST"),
		port: port,
		user: os.Getenv("SMTP_USER"),
		pass: os.Getenv("SMTP_PASSWORD"),
		from: from,
	}
}

func (s *SMTPEmailSender) send(to []string, subject, body string) error {
	if s.host == "" {
		log.Printf("SMTP не настроен, письмо '%s' не отправлено", subject)
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(s.host, s.port, s.user, s.pass)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("ошибка отправки письма: %w", err)
	}

	return nil
}

// SendInspectionSubmitted уведомляет проверяющих о новом осмотре
func (s *SMTPEmailSender) SendInspectionSubmitted(reviewers []models.User, inspection *models.Inspection, vehicle *models.Vehicle, author *models.User) error {
	if len(reviewers) == 0 {
		return nil
	}

	recipients := make([]string, 0, len(reviewers))
	for _, r := range reviewers {
		if r.Email != "" {
			recipients = append(recipients, r.Email)
		}
	}
	if len(recipients) == 0 {
		return nil
	}

	subject := fmt.Sprintf("Осмотр №%d ожидает проверки — %s %s (%s)", inspection.ID, vehicle.Brand, vehicle.Model, vehicle.Plate)
	body := fmt.Sprintf(
		"<p>Инспектор %s отправил осмотр машины <b>%s %s (%s)</b> на проверку.</p>"+
			"<p>Состояние: %s, пробег: %d км.</p>"+
			"<p>Комментарий: %s</p>",
		author.FullName(), vehicle.Brand, vehicle.Model, vehicle.Plate,
		inspection.Condition, inspection.Odometer, inspection.Comment,
	)

	return s.send(recipients, subject, body)
}

// SendDecision уведомляет автора осмотра о принятом решении
func (s *SMTPEmailSender) SendDecision(author *models.User, inspection *models.Inspection, approval *models.Approval, reviewer *models.User) error {
	if author.Email == "" {
		return nil
	}

	var subject, verdict string
	if approval.Decision == models.DecisionApproved {
		subject = fmt.Sprintf("Осмотр №%d принят", inspection.ID)
		verdict = "принят"
	} else {
		subject = fmt.Sprintf("Осмотр №%d отклонен", inspection.ID)
		verdict = "отклонен"
	}

	body := fmt.Sprintf(
		"<p>Ваш осмотр №%d %s проверяющим %s.</p><p>Комментарий: %s</p>",
		inspection.ID, verdict, reviewer.FullName(), approval.Comment,
	)

	return s.send([]string{author.Email}, subject, body)
}
