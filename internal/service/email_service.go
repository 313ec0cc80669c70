package service

import (
	"blog-backend/config"
	"blog-backend/internal/util"
	"fmt"

	"go.uber.org/zap"
	mail "gopkg.in/mail.v2"
)

// EmailService 负责发送系统邮件
type EmailService struct {
	dialer *mail.Dialer
	from   string
}

// NewEmailService 创建邮件服务，使用配置中的 SMTP 参数
func NewEmailService() *EmailService {
	cfg := config.AppConfig
	return &EmailService{
		dialer: mail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:   cfg.SMTPUsername,
	}
}

// SendWelcomeEmail 给新注册用户发送欢迎邮件
func (s *EmailService) SendWelcomeEmail(to, username string) error {
	subject := "欢迎加入"
	body := fmt.Sprintf(`
		<h2>你好，%s！</h2>
		<p>欢迎注册我们的博客平台，现在就可以开始写下你的第一篇文章了。</p>
	`, username)
	return s.send(to, subject, body)
}

func (s *EmailService) send(to, subject, body string) error {
	if config.AppConfig.SMTPUsername == "" {
		// 未配置 SMTP 账号时跳过发送，便于本地开发
		util.Logger.Debug("SMTP 未配置，跳过发送邮件", zap.String("to", to))
		return nil
	}

	m := mail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return err
	}

	util.Logger.Info("邮件发送成功", zap.String("to", to), zap.String("subject", subject))
	return nil
}
