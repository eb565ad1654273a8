package data

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factfit/internal/biz"
	"factfit/internal/conf"
)

type fakeSender struct {
	sent   []*mail.SGMailV3
	status int
	err    error
}

func (f *fakeSender) SendWithContext(_ context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	f.sent = append(f.sent, email)
	if f.err != nil {
		return nil, f.err
	}
	return &rest.Response{StatusCode: f.status}, nil
}

func testOrderAndQR() (*biz.PaymentOrder, *biz.EntryQR) {
	order := &biz.PaymentOrder{
		ID:        7,
		RefCode:   "ORD-ABC",
		StartDate: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
	}
	qr := &biz.EntryQR{
		OrderID: 7,
		Token:   "tok-1",
		Link:    "https://factfit.test/entry/tok-1",
		DataURL: "data:image/png;base64,iVBORw0KGgo=",
	}
	return order, qr
}

func TestSendgridMailer_SendEntryQR(t *testing.T) {
	tests := []struct {
		name    string
		sender  *fakeSender
		wantErr bool
	}{
		{name: "发送成功", sender: &fakeSender{status: 202}},
		{name: "SendGrid拒绝", sender: &fakeSender{status: 400}, wantErr: true},
		{name: "网络错误", sender: &fakeSender{err: fmt.Errorf("dial tcp: timeout")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newSendgridMailer(tt.sender, &conf.Mail{FromName: "FactFit", FromAddress: "no-reply@factfit.test"}, log.DefaultLogger)
			order, qr := testOrderAndQR()

			err := m.SendEntryQR(context.Background(), "budi@example.com", order, qr)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			require.Len(t, tt.sender.sent, 1)
		})
	}
}

func TestSendgridMailer_Disabled(t *testing.T) {
	m := NewSendgridMailer(&conf.Mail{}, log.DefaultLogger)
	order, qr := testOrderAndQR()
	assert.NoError(t, m.SendEntryQR(context.Background(), "budi@example.com", order, qr))
}

func TestBuildEntryQRMail(t *testing.T) {
	order, qr := testOrderAndQR()
	message := buildEntryQRMail("FactFit", "no-reply@factfit.test", "budi@example.com", order, qr)

	assert.Equal(t, "Your FactFit entry pass (ORD-ABC)", message.Subject)
	require.Len(t, message.Content, 2)
	assert.Contains(t, message.Content[1].Value, `src="cid:entryqr"`)
	assert.Contains(t, message.Content[0].Value, "2025-09-01 to 2025-10-01")

	require.Len(t, message.Attachments, 1)
	att := message.Attachments[0]
	assert.Equal(t, "iVBORw0KGgo=", att.Content)
	assert.Equal(t, "inline", att.Disposition)
	assert.Equal(t, "entryqr", att.ContentID)
}
