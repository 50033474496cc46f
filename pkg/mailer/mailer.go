package mailer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"ay-digital/backend/config"
)

// Sender 验证码投递渠道
type Sender interface {
	SendOTP(ctx context.Context, to, code string, ttl time.Duration) error
}

// New 根据配置选择投递渠道：未配置 SMTP 时仅写日志
func New(cfg *config.MailConfig, logger *zap.Logger) Sender {
	if cfg.SMTPHost == "" {
		logger.Warn("未配置 SMTP，验证码仅输出到日志")
		return NewLogSender(logger)
	}
	return NewSMTPSender(cfg, logger)
}

// ── SMTP ──

// dialer gomail.Dialer 的最小抽象
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender 通过 SMTP 发送验证码邮件
type SMTPSender struct {
	from   string
	dialer dialer
	logger *zap.Logger
}

// NewSMTPSender 创建 SMTP 发送器
func NewSMTPSender(cfg *config.MailConfig, logger *zap.Logger) *SMTPSender {
	return &SMTPSender{
		from:   cfg.From,
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.Username, cfg.Password),
		logger: logger,
	}
}

// SendOTP 发送验证码邮件
func (s *SMTPSender) SendOTP(ctx context.Context, to, code string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.from, "AY Digital"))
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Your AY Digital login code")
	m.SetBody("text/plain", otpBody(code, ttl))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("发送验证码邮件失败: %w", err)
	}

	s.logger.Info("验证码邮件已发送", zap.String("email", to))
	return nil
}

func otpBody(code string, ttl time.Duration) string {
	return fmt.Sprintf(
		"Your one-time code is %s.\n\nIt expires in %d minutes. If you did not request it, ignore this email.\n",
		code, int(ttl.Minutes()),
	)
}

// ── 日志 ──

// LogSender 将验证码写入日志（开发与演示环境）
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender 创建日志发送器
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// SendOTP 输出验证码
func (s *LogSender) SendOTP(_ context.Context, to, code string, ttl time.Duration) error {
	s.logger.Info("OTP issued",
		zap.String("email", to),
		zap.String("otp", code),
		zap.Duration("ttl", ttl),
	)
	return nil
}
