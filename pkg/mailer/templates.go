package mailer

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// OrderLine is one row of an order table.
type OrderLine struct {
	Name     string
	Quantity int
	Price    decimal.Decimal
}

// OrderEmail carries what order and status emails render.
type OrderEmail struct {
	Reference      string
	Status         string
	PaymentMethod  string
	DeliveryMethod string
	CustomerEmail  string
	SupportEmail   string
	Items          []OrderLine
	Total          decimal.Decimal
}

// PaymentEmail carries a settled M-Pesa payment.
type PaymentEmail struct {
	Reference string
	Receipt   string
	Amount    decimal.Decimal
}

// LowStockLine is one product at or below its threshold.
type LowStockLine struct {
	Name      string
	Quantity  int
	Threshold int
}

var printer = message.NewPrinter(language.English)

// FormatKES renders whole shillings with thousands separators.
func FormatKES(amount decimal.Decimal) string {
	return printer.Sprintf("KES %d", amount.Round(0).IntPart())
}

const layout = `{{define "layout"}}<!DOCTYPE html>
<html><head><style>
body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
.container { max-width: 600px; margin: 0 auto; padding: 20px; }
.header { background: {{.Color}}; color: white; padding: 20px; text-align: center; }
.content { padding: 20px; background: #f9f9f9; }
table { width: 100%; border-collapse: collapse; margin: 20px 0; }
th { background: #f3f4f6; padding: 10px; text-align: left; }
td { padding: 10px; border-bottom: 1px solid #eee; }
.total { font-size: 18px; font-weight: bold; text-align: right; margin-top: 20px; }
.footer { text-align: center; padding: 20px; color: #666; font-size: 12px; }
</style></head>
<body><div class="container">
<div class="header"><h1>{{.Heading}}</h1></div>
<div class="content">{{template "body" .Data}}</div>
<div class="footer"><p>{{.Footer}}</p></div>
</div></body></html>{{end}}`

const itemsTable = `{{define "items"}}<table><thead><tr><th>Product</th><th style="text-align:center">Qty</th><th style="text-align:right">Price</th></tr></thead>
<tbody>{{range .}}<tr><td>{{.Name}}</td><td style="text-align:center">{{.Quantity}}</td><td style="text-align:right">{{kes .Price}}</td></tr>{{end}}</tbody></table>{{end}}`

var bodies = map[string]string{
	"order_confirmation": `<p>Thank you for your order at Wacka Accessories!</p>
<p><strong>Order ID:</strong> #{{.Reference}}</p>
<p><strong>Status:</strong> {{.Status}}</p>
<p><strong>Delivery Method:</strong> {{.DeliveryMethod}}</p>
{{template "items" .Items}}
<p class="total">Total: {{kes .Total}}</p>
<p>We'll notify you when your order ships.</p>{{if .SupportEmail}}<p>Questions? Contact us at {{.SupportEmail}}</p>{{end}}`,
	"admin_new_order": `<p><strong>Order ID:</strong> #{{.Reference}}</p>
<p><strong>Customer Email:</strong> {{.CustomerEmail}}</p>
<p><strong>Status:</strong> {{.Status}}</p>
<p><strong>Payment Method:</strong> {{.PaymentMethod}}</p>
<p><strong>Delivery Method:</strong> {{.DeliveryMethod}}</p>
{{template "items" .Items}}
<p class="total">Total: {{kes .Total}}</p>
<p>Please process this order promptly.</p>`,
	"payment_received": `<p><strong>M-Pesa Receipt:</strong> {{.Receipt}}</p>
<p><strong>Amount:</strong> {{kes .Amount}}</p>
<p><strong>Order ID:</strong> #{{.Reference}}</p>
<p>Your payment has been received and your order is now being processed.</p>`,
	"status_changed": `<p><strong>Order ID:</strong> #{{.Reference}}</p>
<p>Your order is now <strong>{{.Status}}</strong>.</p>`,
	"low_stock": `<p>The following products are running low on stock:</p>
<table><thead><tr><th>Product</th><th style="text-align:center">Current Stock</th><th style="text-align:center">Threshold</th></tr></thead>
<tbody>{{range .}}<tr><td>{{.Name}}</td><td style="text-align:center;color:#f59e0b;font-weight:bold">{{.Quantity}}</td><td style="text-align:center">{{.Threshold}}</td></tr>{{end}}</tbody></table>
<p>Please restock these items soon to avoid stockouts.</p>`,
}

var templates = func() map[string]*template.Template {
	funcs := template.FuncMap{"kes": FormatKES}
	out := make(map[string]*template.Template, len(bodies))
	for name, body := range bodies {
		t := template.New(name).Funcs(funcs)
		template.Must(t.Parse(layout))
		template.Must(t.Parse(itemsTable))
		template.Must(t.Parse(`{{define "body"}}` + body + `{{end}}`))
		out[name] = t
	}
	return out
}()

type frame struct {
	Color   string
	Heading string
	Footer  string
	Data    any
}

const (
	colorSuccess = "#10B981"
	colorAdmin   = "#3B82F6"
	colorWarning = "#f59e0b"

	customerFooter = "Wacka Accessories - Premium Accessories for the Modern You"
	adminFooter    = "Wacka Accessories Admin Notification"
)

func render(name string, f frame) (string, error) {
	t, ok := templates[name]
	if !ok {
		return "", fmt.Errorf("unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", f); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// OrderConfirmation is the customer copy of a new order.
func OrderConfirmation(to string, data OrderEmail) (Message, error) {
	html, err := render("order_confirmation", frame{colorSuccess, "Order Confirmed!", customerFooter, data})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "Order Confirmed - #" + data.Reference, HTML: html}, nil
}

// AdminNewOrder alerts the shop owner about a new order.
func AdminNewOrder(to string, data OrderEmail) (Message, error) {
	html, err := render("admin_new_order", frame{colorAdmin, "New Order Received", adminFooter, data})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "New Order #" + data.Reference, HTML: html}, nil
}

func PaymentReceived(to string, data PaymentEmail) (Message, error) {
	html, err := render("payment_received", frame{colorSuccess, "Payment Successful!", customerFooter, data})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "Payment Received - #" + data.Reference, HTML: html}, nil
}

func StatusChanged(to string, data OrderEmail) (Message, error) {
	html, err := render("status_changed", frame{colorAdmin, "Order " + data.Status, customerFooter, data})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: fmt.Sprintf("Order #%s is %s", data.Reference, data.Status), HTML: html}, nil
}

func LowStockAlert(to string, items []LowStockLine) (Message, error) {
	html, err := render("low_stock", frame{colorWarning, "Low Stock Alert", adminFooter, items})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "Low Stock Alert - Wacka Accessories", HTML: html}, nil
}
