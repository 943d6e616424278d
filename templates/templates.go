package templates

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

//go:embed emails/*.html emails/*.txt
var files embed.FS

const (
	PaymentApproved     = "payment_approved"
	PaymentRejected     = "payment_rejected"
	ContactNotification = "contact_notification"
)

// Renderer holds the parsed email templates. Each template exists as an HTML
// and a plain text variant sharing one data value.
type Renderer struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

func New() (*Renderer, error) {
	html, err := htmltemplate.ParseFS(files, "emails/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse html templates: %w", err)
	}
	text, err := texttemplate.New("emails").
		Funcs(texttemplate.FuncMap{"inc": func(i int) int { return i + 1 }}).
		ParseFS(files, "emails/*.txt")
	if err != nil {
		return nil, fmt.Errorf("failed to parse text templates: %w", err)
	}
	return &Renderer{html: html, text: text}, nil
}

func (r *Renderer) Render(name string, data interface{}) (htmlBody string, plainBody string, err error) {
	var h, t bytes.Buffer
	if err := r.html.ExecuteTemplate(&h, name+".html", data); err != nil {
		return "", "", fmt.Errorf("failed to execute template %s.html: %w", name, err)
	}
	if err := r.text.ExecuteTemplate(&t, name+".txt", data); err != nil {
		return "", "", fmt.Errorf("failed to execute template %s.txt: %w", name, err)
	}
	return h.String(), t.String(), nil
}
