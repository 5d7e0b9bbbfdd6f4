package service

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"expenseai/analytics"
	"expenseai/config"

	"gopkg.in/gomail.v2"
)

// ErrEmailDisabled 邮件服务未启用
var ErrEmailDisabled = errors.New("email service is disabled, set email.enabled=true")

// EmailService 邮件服务
type EmailService struct {
	cfg  *config.EmailConfig
	send func(m *gomail.Message) error
}

// NewEmailService 创建邮件服务
func NewEmailService(cfg *config.EmailConfig) *EmailService {
	s := &EmailService{cfg: cfg}
	s.send = s.dialAndSend
	return s
}

// Enabled 是否已启用
func (s *EmailService) Enabled() bool {
	return s.cfg != nil && s.cfg.Enabled
}

// SendInsightDigest 发送消费摘要与洞察邮件
func (s *EmailService) SendInsightDigest(toEmail, username, currency string, summary analytics.Summary, insight analytics.Insight) error {
	if !s.Enabled() {
		return ErrEmailDisabled
	}

	subject := "[ExpenseAI] Your spending summary"
	body := s.generateDigestBody(username, currency, summary, insight)

	return s.sendEmail(toEmail, subject, body)
}

// generateDigestBody 生成摘要邮件内容，所有用户相关文本均做 HTML 转义
func (s *EmailService) generateDigestBody(username, currency string, summary analytics.Summary, insight analytics.Insight) string {
	var rows strings.Builder
	for _, c := range summary.Categories {
		fmt.Fprintf(&rows, "<tr><td>%s</td><td class=\"num\">%s%s</td></tr>\n",
			html.EscapeString(string(c.Category)), html.EscapeString(currency), c.Total.StringFixed(2))
	}
	if summary.Count == 0 {
		rows.WriteString("<tr><td colspan=\"2\">No expenses yet</td></tr>\n")
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; background: #f5f5f5; margin: 0; padding: 20px; }
        .container { max-width: 600px; margin: 0 auto; background: #fff; border-radius: 12px; overflow: hidden; box-shadow: 0 4px 20px rgba(0,0,0,0.1); }
        .header { background: linear-gradient(135deg, #2563eb, #1d4ed8); color: white; padding: 30px; text-align: center; }
        .header h1 { margin: 0; font-size: 24px; }
        .content { padding: 30px; }
        .content p { color: #333; line-height: 1.8; margin: 0 0 16px; }
        .insight { background: #eff6ff; border-left: 4px solid #2563eb; padding: 15px; margin: 20px 0; border-radius: 4px; }
        table { width: 100%%; border-collapse: collapse; }
        td { padding: 8px 0; border-bottom: 1px solid #eee; color: #333; }
        td.num { text-align: right; }
        .footer { background: #f8f9fa; padding: 20px 30px; text-align: center; color: #6c757d; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>ExpenseAI</h1>
        </div>
        <div class="content">
            <p>Hi <strong>%s</strong>,</p>
            <p>Total spending: <strong>%s%s</strong> across %d expenses.</p>
            <div class="insight"><p>%s</p></div>
            <table>
%s            </table>
        </div>
        <div class="footer">
            <p>This email was sent automatically, please do not reply.</p>
        </div>
    </div>
</body>
</html>
`, html.EscapeString(username),
		html.EscapeString(currency), summary.Total.StringFixed(2), summary.Count,
		html.EscapeString(insight.Text),
		rows.String())
}

// sendEmail 发送邮件
func (s *EmailService) sendEmail(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.cfg.From, "ExpenseAI"))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.send(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func (s *EmailService) dialAndSend(m *gomail.Message) error {
	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	return d.DialAndSend(m)
}
