package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"storefront/internal/domain"
)

type lineView struct {
	Name      string
	Quantity  int
	Price     string
	LineTotal string
}

type orderView struct {
	StoreName string
	OrderID   string
	PaymentID string
	UserName  string
	UserEmail string
	Items     []lineView
	Total     string
	Address   domain.Address
	PlacedAt  string
}

func newOrderView(storeName string, o domain.Order) orderView {
	v := orderView{
		StoreName: storeName,
		OrderID:   o.ID,
		PaymentID: o.PaymentID,
		UserName:  o.UserName,
		UserEmail: o.UserEmail,
		Total:     o.Total.StringFixed(2),
		Address:   o.Address,
		PlacedAt:  o.CreatedAt.UTC().Format(time.RFC1123),
	}
	if v.UserName == "" {
		v.UserName = "there"
	}
	for _, it := range o.Items {
		v.Items = append(v.Items, lineView{
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     it.Price.StringFixed(2),
			LineTotal: it.LineTotal().StringFixed(2),
		})
	}
	return v
}

const layoutHead = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        table { width: 100%; border-collapse: collapse; }
        td, th { padding: 6px; border-bottom: 1px solid #eee; text-align: left; }
        .footer { padding: 20px; text-align: center; font-size: 12px; color: #666; }
    </style>
</head>
<body><div class="container">`

const itemsTable = `{{define "items"}}<table>
<tr><th>Item</th><th>Qty</th><th>Price</th><th>Total</th></tr>
{{range .Items}}<tr><td>{{.Name}}</td><td>{{.Quantity}}</td><td>{{.Price}}</td><td>{{.LineTotal}}</td></tr>
{{end}}<tr><td colspan="3"><strong>Order total</strong></td><td><strong>{{.Total}}</strong></td></tr>
</table>{{end}}`

const layoutFoot = `<div class="footer">{{.StoreName}}</div></div></body></html>`

var templates = template.Must(template.New("mail").Parse(itemsTable +
	`{{define "order_confirmation"}}` + layoutHead + `
<h2>Thanks for your order, {{.UserName}}!</h2>
<p>Order <strong>{{.OrderID}}</strong> was placed on {{.PlacedAt}}.</p>
{{template "items" .}}
<p>Shipping to: {{.Address.Line1}} {{.Address.Line2}}, {{.Address.City}}, {{.Address.State}} {{.Address.Pincode}}</p>
` + layoutFoot + `{{end}}` +
	`{{define "payment_confirmation"}}` + layoutHead + `
<h2>Payment received</h2>
<p>Hi {{.UserName}}, we received your payment of <strong>{{.Total}}</strong> for order <strong>{{.OrderID}}</strong>.</p>
<p>Payment reference: {{.PaymentID}}</p>
` + layoutFoot + `{{end}}` +
	`{{define "admin_notification"}}` + layoutHead + `
<h2>New order {{.OrderID}}</h2>
<p>Customer: {{.UserName}} &lt;{{.UserEmail}}&gt;</p>
<p>Payment: {{.PaymentID}}</p>
{{template "items" .}}
<p>Ship to: {{.Address.Line1}} {{.Address.Line2}}, {{.Address.City}}, {{.Address.State}} {{.Address.Pincode}} {{.Address.Phone}}</p>
` + layoutFoot + `{{end}}`))

func render(name string, v orderView) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, v); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
