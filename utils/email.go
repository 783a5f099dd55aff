package utils

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/Gunjankadam/Vendofy-sub001/config"
)

type EmailService struct {
	config *config.Config
}

func NewEmailService(cfg *config.Config) *EmailService {
	return &EmailService{config: cfg}
}

// SendEmail отправляет email через SMTP
func (s *EmailService) SendEmail(to, subject, body string) error {
	if s.config.SMTPHost == "" || s.config.SMTPUser == "" {
		return fmt.Errorf("SMTP not configured")
	}

	auth := smtp.PlainAuth("", s.config.SMTPUser, s.config.SMTPPassword, s.config.SMTPHost)

	msg := []byte(fmt.Sprintf("To: %s\r\n"+
		"Subject: %s\r\n"+
		"Content-Type: text/html; charset=utf-8\r\n"+
		"\r\n"+
		"%s\r\n", to, subject, body))

	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)
	return smtp.SendMail(addr, auth, s.config.EmailFrom, []string{to}, msg)
}

// SendDeliveryDateNotice уведомляет клиента о переносе даты доставки
func (s *EmailService) SendDeliveryDateNotice(to, name, orderID string, newDate time.Time) error {
	subject := "📦 Перенос даты доставки - Vendofy"

	body := fmt.Sprintf(`
        <h2>Дата доставки изменена</h2>
        <p>Здравствуйте, <strong>%s</strong>!</p>
        <p>Дата доставки вашего заказа <strong>%s</strong> изменена дистрибьютором.</p>
        <p>Новая дата: <strong>%s</strong></p>
        <p>Если у вас есть вопросы, свяжитесь с вашим дистрибьютором.</p>
        <p>С уважением,<br>Команда Vendofy</p>
    `, name, orderID, newDate.Format("02.01.2006"))

	return s.SendEmail(to, subject, body)
}

// SendWelcomeEmail отправляет приветственное письмо новому пользователю
func (s *EmailService) SendWelcomeEmail(to, name, role string) error {
	subject := "Добро пожаловать в Vendofy"

	body := fmt.Sprintf(`
        <h2>Добро пожаловать в Vendofy!</h2>
        <p>Здравствуйте, <strong>%s</strong>!</p>
        <p>Ваш аккаунт (%s) создан и готов к работе.</p>
        <p>С уважением,<br>Команда Vendofy</p>
    `, name, role)

	return s.SendEmail(to, subject, body)
}
