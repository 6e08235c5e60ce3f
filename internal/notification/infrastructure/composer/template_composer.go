// Package composer 通知正文模板
package composer

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/wyfcoding/payrollnotify/internal/notification/domain"
)

// DefaultTemplates 默认正文模板
var DefaultTemplates = map[domain.NotificationType]string{
	domain.NotificationTypeSalaryCut: "Hello {{.Name}}, a salary deduction of {{.Amount}} {{.Currency}} has been recorded" +
		"{{if .Reason}} ({{.Reason}}){{end}}.",
	domain.NotificationTypeSalaryAvailable: "Hello {{.Name}}, your salary for {{.Period}} is available: {{.Amount}} {{.Currency}}.",
	domain.NotificationTypePayslip:         "Hello {{.Name}}, your payslip for {{.Period}} is ready.",
	domain.NotificationTypeOther:           "Hello {{.Name}}, you have a new payroll notification.",
}

type templateData struct {
	Name     string
	Amount   string
	Currency string
	Reason   string
	Period   string
}

// TemplateComposer 基于 text/template 的 domain.Composer
type TemplateComposer struct {
	templates map[domain.NotificationType]*template.Template
	currency  string
}

// NewTemplateComposer 解析模板，templates 为空时使用默认模板
func NewTemplateComposer(templates map[domain.NotificationType]string, currency string) (*TemplateComposer, error) {
	if len(templates) == 0 {
		templates = DefaultTemplates
	}
	c := &TemplateComposer{
		templates: make(map[domain.NotificationType]*template.Template, len(templates)),
		currency:  currency,
	}
	for typ, text := range templates {
		t, err := template.New(string(typ)).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", typ, err)
		}
		c.templates[typ] = t
	}
	return c, nil
}

// Compose 实现 domain.Composer
func (c *TemplateComposer) Compose(ctx context.Context, event domain.Event) (string, error) {
	t, ok := c.templates[event.Type]
	if !ok {
		return "", fmt.Errorf("no template for notification type %q", event.Type)
	}

	name := event.RecipientLabel
	if name == "" {
		name = event.EmployeeID
	}
	var b strings.Builder
	err := t.Execute(&b, templateData{
		Name:     name,
		Amount:   event.Amount.StringFixed(2),
		Currency: c.currency,
		Reason:   event.Reason,
		Period:   event.Period,
	})
	if err != nil {
		return "", fmt.Errorf("render template %s: %w", event.Type, err)
	}
	return strings.TrimSpace(b.String()), nil
}
