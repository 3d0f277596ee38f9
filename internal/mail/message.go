package mail

const (
	TemplateEmailConfirmation = "email-confirmation"
	TemplateRecoverPassword   = "recover-password"
)

const layout = "layouts/main"

// Message is a templated email. Context is passed to the template as is,
// with Subject added for the layout.
type Message struct {
	To       string
	Subject  string
	Template string
	Context  map[string]any
}

func (m Message) binding() map[string]any {
	b := make(map[string]any, len(m.Context)+1)
	for k, v := range m.Context {
		b[k] = v
	}
	b["Subject"] = m.Subject
	return b
}
