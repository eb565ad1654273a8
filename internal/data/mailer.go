package data

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"factfit/internal/biz"
	"factfit/internal/conf"
	"factfit/internal/pkg/tracing"
)

const (
	entryQRContentID = "entryqr"
	entryQRFilename  = "entry-qr.png"
	pngDataURLPrefix = "data:image/png;base64,"
)

// mailSender 对应 sendgrid.Client 的发送调用
type mailSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// sendgridMailer 通过 SendGrid 发送入场二维码邮件，未配置 API Key 时只记日志
type sendgridMailer struct {
	client   mailSender
	fromName string
	fromAddr string
	logger   *log.Helper
}

// NewSendgridMailer 创建邮件发送器
func NewSendgridMailer(c *conf.Mail, logger log.Logger) biz.Mailer {
	var client mailSender
	if c.SendgridApiKey != "" {
		client = sendgrid.NewSendClient(c.SendgridApiKey)
	}
	return newSendgridMailer(client, c, logger)
}

func newSendgridMailer(client mailSender, c *conf.Mail, logger log.Logger) *sendgridMailer {
	return &sendgridMailer{
		client:   client,
		fromName: c.FromName,
		fromAddr: c.FromAddress,
		logger:   log.NewHelper(logger),
	}
}

func (m *sendgridMailer) SendEntryQR(ctx context.Context, to string, order *biz.PaymentOrder, qr *biz.EntryQR) error {
	ctx, span := tracing.StartSpan(ctx, "SendgridMailer.SendEntryQR")
	defer span.End()

	tracing.AddSpanTags(ctx, map[string]interface{}{
		"order_id": order.ID,
		"ref_code": order.RefCode,
	})

	if m.client == nil {
		m.logger.WithContext(ctx).Infof("Mail disabled, entry link for order %s: %s", order.RefCode, qr.Link)
		return nil
	}

	message := buildEntryQRMail(m.fromName, m.fromAddr, to, order, qr)
	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		m.logger.WithContext(ctx).Errorf("Failed to send entry qr mail for order %s, error_reason: %v", order.RefCode, err)
		return err
	}
	if resp.StatusCode >= 300 {
		m.logger.WithContext(ctx).Errorf("SendGrid rejected entry qr mail for order %s, status: %d, body: %s", order.RefCode, resp.StatusCode, resp.Body)
		return fmt.Errorf("sendgrid status %d", resp.StatusCode)
	}

	m.logger.WithContext(ctx).Infof("Sent entry qr mail for order %s", order.RefCode)
	return nil
}

func buildEntryQRMail(fromName, fromAddr, to string, order *biz.PaymentOrder, qr *biz.EntryQR) *mail.SGMailV3 {
	subject := fmt.Sprintf("Your FactFit entry pass (%s)", order.RefCode)
	window := fmt.Sprintf("%s to %s", order.StartDate.Format("2006-01-02"), order.EndDate.Format("2006-01-02"))

	plain := fmt.Sprintf("Payment received for order %s.\nValid %s.\nEntry link: %s\n", order.RefCode, window, qr.Link)
	html := fmt.Sprintf(`<p>Payment received for order <strong>%s</strong>.</p>
<p>Valid %s.</p>
<p><img src="cid:%s" alt="Entry QR" width="256" height="256"></p>
<p><a href="%s">%s</a></p>`, order.RefCode, window, entryQRContentID, qr.Link, qr.Link)

	message := mail.NewV3MailInit(
		mail.NewEmail(fromName, fromAddr),
		subject,
		mail.NewEmail("", to),
		mail.NewContent("text/plain", plain),
		mail.NewContent("text/html", html),
	)

	if strings.HasPrefix(qr.DataURL, pngDataURLPrefix) {
		attachment := mail.NewAttachment()
		attachment.SetContent(strings.TrimPrefix(qr.DataURL, pngDataURLPrefix))
		attachment.SetType("image/png")
		attachment.SetFilename(entryQRFilename)
		attachment.SetDisposition("inline")
		attachment.SetContentID(entryQRContentID)
		message.AddAttachment(attachment)
	}
	return message
}
