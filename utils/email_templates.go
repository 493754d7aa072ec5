package utils

import (
	"bytes"
	"fmt"
	"html/template"
)

// Email template names
const (
	TemplateNewOrderAdmin = "new_order_admin"
	TemplateApproved      = "approved"
	TemplateDispatched    = "dispatched"
	TemplateDelivered     = "delivered"
	TemplateRejected      = "rejected"
	TemplateReturned      = "returned"
	TemplateAnnouncement  = "admin_announcement"
)

// ReviewLink is one redemption link included in the delivered email
type ReviewLink struct {
	ProductName string
	URL         string
}

// EmailLine is an order line as shown in emails
type EmailLine struct {
	Name     string
	Quantity int
	Price    float64
}

// EmailData feeds every template; each uses the fields it needs
type EmailData struct {
	CustomerName   string
	CustomerEmail  string
	Phone          string
	Address        string
	City           string
	Province       string
	PaymentMethod  string
	OrderID        string
	Lines          []EmailLine
	Subtotal       float64
	Discount       float64
	DeliveryCharge float64
	Total          float64
	Reason         string
	ReviewLinks    []ReviewLink
	Subject        string
	Message        string
}

const layout = `{{define "layout"}}<div style="font-family:Arial,sans-serif;max-width:600px;margin:auto">{{template "body" .}}<p style="color:#888;font-size:12px">Thank you for shopping with us!</p></div>{{end}}`

var emailBodies = map[string]string{
	TemplateNewOrderAdmin: `{{define "body"}}<h2>New order {{.OrderID}}</h2>
<p><strong>{{.CustomerName}}</strong> ({{.CustomerEmail}}, {{.Phone}})<br>{{.Address}}, {{.City}}, {{.Province}}</p>
<table>{{range .Lines}}<tr><td>{{.Name}}</td><td>x{{.Quantity}}</td><td>Rs. {{printf "%.2f" .Price}}</td></tr>{{end}}</table>
<p>Subtotal: Rs. {{printf "%.2f" .Subtotal}}<br>Discount: Rs. {{printf "%.2f" .Discount}}<br>Delivery: Rs. {{printf "%.2f" .DeliveryCharge}}<br><strong>Total: Rs. {{printf "%.2f" .Total}}</strong></p>
<p>Payment method: {{.PaymentMethod}}</p>{{end}}`,
	TemplateApproved: `{{define "body"}}<p>Dear {{.CustomerName}},</p>
<p>Your order <strong>{{.OrderID}}</strong> has been approved and is being prepared.</p>{{end}}`,
	TemplateDispatched: `{{define "body"}}<p>Dear {{.CustomerName}},</p>
<p>Your order <strong>{{.OrderID}}</strong> has been dispatched and is on its way.</p>{{end}}`,
	TemplateDelivered: `{{define "body"}}<p>Dear {{.CustomerName}},</p>
<p>Your order <strong>{{.OrderID}}</strong> has been delivered.</p>
{{if .ReviewLinks}}<p>Tell us what you think:</p><ul>{{range .ReviewLinks}}<li><a href="{{.URL}}">Review {{.ProductName}}</a></li>{{end}}</ul>{{end}}{{end}}`,
	TemplateRejected: `{{define "body"}}<p>Dear {{.CustomerName}},</p>
<p>Unfortunately your order <strong>{{.OrderID}}</strong> has been rejected.</p>
<p>Reason: {{.Reason}}</p>{{end}}`,
	TemplateReturned: `{{define "body"}}<p>Dear {{.CustomerName}},</p>
<p>Your order <strong>{{.OrderID}}</strong> has been marked as returned.</p>{{end}}`,
	TemplateAnnouncement: `{{define "body"}}<h2>{{.Subject}}</h2><p>{{.Message}}</p>{{end}}`,
}

var emailTemplates = mustParseTemplates()

func mustParseTemplates() map[string]*template.Template {
	out := make(map[string]*template.Template, len(emailBodies))
	for name, body := range emailBodies {
		t := template.Must(template.New(name).Parse(layout))
		out[name] = template.Must(t.Parse(body))
	}
	return out
}

// RenderEmail renders the named template. User-provided fields are HTML-escaped.
func RenderEmail(name string, data EmailData) (string, error) {
	t, ok := emailTemplates[name]
	if !ok {
		return "", fmt.Errorf("unknown email template %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("rendering %s email: %w", name, err)
	}
	return buf.String(), nil
}
