package email

import (
	"bytes"
	"embed"
	"log"
	"text/template"
)

//go:embed templates/*.tmpl
var tplFS embed.FS

var tpls = parseTemplates()

func parseTemplates() *template.Template {
	t, err := template.ParseFS(tplFS, "templates/*.tmpl")
	if err != nil {
		log.Fatalf("email: parse templates failed: %v", err)
	}
	return t
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := tpls.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// AccessRequestVars — письмо администратору о новой заявке.
type AccessRequestVars struct {
	Name           string
	Email          string
	Message        string
	BuildingLabel  string
	ApartmentLabel string
	ApproveURL     string
	RejectURL      string
}

func RenderAccessRequest(v AccessRequestVars) (subject, text string, err error) {
	text, err = render("access_request.tmpl", v)
	return "Новая заявка на доступ: " + v.Name, text, err
}

// CredentialsVars — письмо жильцу после одобрения.
type CredentialsVars struct {
	Name         string
	Email        string
	TempPassword string
	LoginURL     string
}

func RenderCredentials(v CredentialsVars) (subject, text string, err error) {
	text, err = render("credentials.tmpl", v)
	return "Доступ одобрен", text, err
}

// RejectedVars — уведомление об отказе.
type RejectedVars struct {
	Name string
}

func RenderRejected(v RejectedVars) (subject, text string, err error) {
	text, err = render("rejected.tmpl", v)
	return "Заявка отклонена", text, err
}
