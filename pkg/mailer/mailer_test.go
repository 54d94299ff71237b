package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wacka-accessories/wacka-backend/pkg/config"
)

type captured struct {
	addr string
	from string
	to   []string
	body string
}

func newTestMailer(cfg config.SMTPConfig, sink *captured, sendErr error) *SMTPMailer {
	m := New(cfg, nil)
	m.now = func() time.Time { return time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC) }
	m.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		sink.addr, sink.from, sink.to, sink.body = addr, from, to, string(msg)
		return sendErr
	}
	return m
}

var smtpCfg = config.SMTPConfig{
	Host:       "smtp.example.com",
	Port:       587,
	Username:   "shop@example.com",
	Password:   "secret",
	FromName:   "Wacka Accessories",
	AdminEmail: "owner@example.com",
}

func TestSendSkipsWithoutCredentials(t *testing.T) {
	var sink captured
	m := newTestMailer(config.SMTPConfig{Host: "smtp.example.com", Port: 587}, &sink, nil)
	err := m.Send(context.Background(), Message{To: "a@example.com", Subject: "hi", HTML: "<p>x</p>"})
	require.ErrorIs(t, err, ErrNotConfigured)
	assert.Empty(t, sink.addr)
}

func TestSendBuildsHTMLMessage(t *testing.T) {
	var sink captured
	m := newTestMailer(smtpCfg, &sink, nil)
	require.NoError(t, m.Send(context.Background(), Message{To: "jane@example.com", Subject: "Order Confirmed - #AB12CD34", HTML: "<p>hello</p>"}))

	assert.Equal(t, "smtp.example.com:587", sink.addr)
	assert.Equal(t, "shop@example.com", sink.from)
	assert.Equal(t, []string{"jane@example.com"}, sink.to)
	assert.Contains(t, sink.body, "From: Wacka Accessories <shop@example.com>\r\n")
	assert.Contains(t, sink.body, "Content-Type: text/html")
	assert.True(t, strings.HasSuffix(sink.body, "\r\n\r\n<p>hello</p>"))
}

func TestSendWrapsTransportError(t *testing.T) {
	var sink captured
	m := newTestMailer(smtpCfg, &sink, errors.New("535 auth failed"))
	err := m.Send(context.Background(), Message{To: "jane@example.com", Subject: "x", HTML: "y"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "535 auth failed")
}

func TestFormatKES(t *testing.T) {
	assert.Equal(t, "KES 1,500", FormatKES(decimal.NewFromInt(1500)))
	assert.Equal(t, "KES 12,346", FormatKES(decimal.RequireFromString("12345.6")))
	assert.Equal(t, "KES 0", FormatKES(decimal.Zero))
}

func TestTemplatesRender(t *testing.T) {
	order := OrderEmail{
		Reference:      "AB12CD34",
		Status:         "Pending Payment",
		PaymentMethod:  "Mpesa",
		DeliveryMethod: "Delivery",
		CustomerEmail:  "jane@example.com",
		Items:          []OrderLine{{Name: "Gold <Hoops>", Quantity: 2, Price: decimal.NewFromInt(1200)}},
		Total:          decimal.NewFromInt(2400),
	}

	msg, err := OrderConfirmation("jane@example.com", order)
	require.NoError(t, err)
	assert.Equal(t, "Order Confirmed - #AB12CD34", msg.Subject)
	assert.Contains(t, msg.HTML, "Gold &lt;Hoops&gt;")
	assert.Contains(t, msg.HTML, "Total: KES 2,400")

	admin, err := AdminNewOrder("owner@example.com", order)
	require.NoError(t, err)
	assert.Contains(t, admin.HTML, "jane@example.com")

	paid, err := PaymentReceived("jane@example.com", PaymentEmail{Reference: "AB12CD34", Receipt: "QK7X1Y2Z3", Amount: decimal.NewFromInt(2400)})
	require.NoError(t, err)
	assert.Contains(t, paid.HTML, "QK7X1Y2Z3")

	low, err := LowStockAlert("owner@example.com", []LowStockLine{{Name: "Pearl Studs", Quantity: 2, Threshold: 10}})
	require.NoError(t, err)
	assert.Contains(t, low.HTML, "Pearl Studs")

	status, err := StatusChanged("jane@example.com", OrderEmail{Reference: "AB12CD34", Status: "Shipped"})
	require.NoError(t, err)
	assert.Equal(t, "Order #AB12CD34 is Shipped", status.Subject)
}
