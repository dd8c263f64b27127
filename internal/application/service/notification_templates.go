package service

import (
	htmltemplate "html/template"
	texttemplate "text/template"
)

// emailTemplate pairs the subject with the HTML and plain-text bodies of one customer email
type emailTemplate struct {
	subject *texttemplate.Template
	html    *htmltemplate.Template
	text    *texttemplate.Template
	tag     string
}

func mustEmailTemplate(name, tag, subject, html, text string) emailTemplate {
	return emailTemplate{
		subject: texttemplate.Must(texttemplate.New(name + "_subject").Parse(subject)),
		html:    htmltemplate.Must(htmltemplate.New(name + "_html").Parse(htmlLayoutStart + html + htmlLayoutEnd)),
		text:    texttemplate.Must(texttemplate.New(name + "_text").Parse(text + textSignature)),
		tag:     tag,
	}
}

const htmlLayoutStart = `<!DOCTYPE html>
<html><body style="font-family: Arial, sans-serif; color: #222;">
<p>Hello {{if .CustomerName}}{{.CustomerName}}{{else}}there{{end}},</p>
`

const htmlLayoutEnd = `
<p>Thank you,<br>The {{.CompanyName}} team</p>
</body></html>`

const textSignature = `

Thank you,
The {{.CompanyName}} team
`

var (
	tplQuoteReady = mustEmailTemplate("quote_ready", "quote-ready",
		`Your translation quote {{.QuoteNumber}} is ready`,
		`<p>Your quote <strong>{{.QuoteNumber}}</strong> is ready.</p>
<p>Total: <strong>{{.Total}}</strong></p>
<p><a href="{{.Link}}">View your quote</a></p>`,
		`Hello {{if .CustomerName}}{{.CustomerName}}{{else}}there{{end}},

Your quote {{.QuoteNumber}} is ready.
Total: {{.Total}}

View your quote: {{.Link}}`)

	tplUnderReview = mustEmailTemplate("under_review", "quote-under-review",
		`We are reviewing your quote {{.QuoteNumber}}`,
		`<p>A member of our team is reviewing the documents for quote <strong>{{.QuoteNumber}}</strong>.</p>
<p>We will email you as soon as your quote is ready, usually within a few business hours.</p>`,
		`Hello {{if .CustomerName}}{{.CustomerName}}{{else}}there{{end}},

A member of our team is reviewing the documents for quote {{.QuoteNumber}}.
We will email you as soon as your quote is ready, usually within a few business hours.`)

	tplPaymentRequested = mustEmailTemplate("payment_requested", "payment-requested",
		`Complete your order for quote {{.QuoteNumber}}`,
		`<p>Your quote <strong>{{.QuoteNumber}}</strong> is confirmed at <strong>{{.Total}}</strong>.</p>
<p><a href="{{.Link}}">Pay securely to start your translation</a></p>`,
		`Hello {{if .CustomerName}}{{.CustomerName}}{{else}}there{{end}},

Your quote {{.QuoteNumber}} is confirmed at {{.Total}}.
Pay securely to start your translation: {{.Link}}`)

	tplOrderConfirmed = mustEmailTemplate("order_confirmed", "order-confirmed",
		`Order {{.OrderNumber}} confirmed`,
		`<p>We received your payment of <strong>{{.Total}}</strong>.</p>
<p>Your order number is <strong>{{.OrderNumber}}</strong>. Our translators are getting started.</p>`,
		`Hello {{if .CustomerName}}{{.CustomerName}}{{else}}there{{end}},

We received your payment of {{.Total}}.
Your order number is {{.OrderNumber}}. Our translators are getting started.`)

	tplBetterScan = mustEmailTemplate("better_scan", "better-scan-requested",
		`Please upload clearer copies for quote {{.QuoteNumber}}`,
		`<p>Some documents for quote <strong>{{.QuoteNumber}}</strong> were hard to read.</p>
{{if .Message}}<p>{{.Message}}</p>{{end}}
<p><a href="{{.Link}}">Upload new copies</a></p>`,
		`Hello {{if .CustomerName}}{{.CustomerName}}{{else}}there{{end}},

Some documents for quote {{.QuoteNumber}} were hard to read.
{{if .Message}}{{.Message}}
{{end}}
Upload new copies: {{.Link}}`)

	tplOrderCancelled = mustEmailTemplate("order_cancelled", "order-cancelled",
		`Order {{.OrderNumber}} has been cancelled`,
		`<p>Your order <strong>{{.OrderNumber}}</strong> has been cancelled.</p>
{{if .RefundAmount}}<p>{{.RefundNote}}</p>{{end}}`,
		`Hello {{if .CustomerName}}{{.CustomerName}}{{else}}there{{end}},

Your order {{.OrderNumber}} has been cancelled.
{{if .RefundAmount}}{{.RefundNote}}{{end}}`)
)
