package email

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"html/template"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/shrimptech/internal/domain"
	"github.com/dukerupert/shrimptech/internal/validation"
)

//go:embed templates/*.html
var templateFS embed.FS

// NotProvided is shown in place of an empty optional field.
const NotProvided = "Không có"

const mailer = "SHRIMPTECH Contact Service"

// BuilderConfig holds the static content of outgoing emails.
type BuilderConfig struct {
	From  Address // sender of every message
	Admin Address // recipient of notifications

	Domain       string // used in Message-IDs
	CompanyName  string
	Website      string
	Hotline      string
	SupportEmail string
	OfficeHours  string
}

// Builder composes the subject, HTML and headers of each message kind.
type Builder struct {
	cfg  BuilderConfig
	tmpl *template.Template

	now   func() time.Time
	newID func() string
}

// NewBuilder parses the embedded templates.
func NewBuilder(cfg BuilderConfig) (*Builder, error) {
	tmpl, err := template.New("email").Funcs(TemplateFuncs()).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}
	if cfg.Domain == "" {
		cfg.Domain = domainOf(cfg.From.Email)
	}
	return &Builder{
		cfg:   cfg,
		tmpl:  tmpl,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}, nil
}

// TemplateFuncs returns the helpers available to email templates.
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"nl2br": nl2br,
		"year": func() int {
			return time.Now().Year()
		},
	}
}

// nl2br renders text as HTML with newlines turned into <br>. The text is
// run through the sanitizer first; sanitizing is idempotent so already
// clean input is unchanged.
func nl2br(s string) template.HTML {
	clean := validation.SanitizeInput(s)
	clean = strings.ReplaceAll(clean, "\r\n", "\n")
	return template.HTML(strings.ReplaceAll(clean, "\n", "<br>"))
}

type adminData struct {
	BuilderConfig
	Sub      domain.ContactSubmission
	ClientIP string
	Company  string
}

type confirmationData struct {
	BuilderConfig
	Sub domain.ContactSubmission
}

type newsletterData struct {
	BuilderConfig
	Email     string
	ClientIP  string
	Timestamp string
}

// AdminNotification builds the message that tells the company about a new submission.
func (b *Builder) AdminNotification(sub domain.ContactSubmission, clientIP string) (*Message, error) {
	sub = withDefaults(sub, b.now())
	if clientIP == "" {
		clientIP = "unknown"
	}

	body, err := b.render("admin_notification", adminData{
		BuilderConfig: b.cfg,
		Sub:           sub,
		ClientIP:      clientIP,
		Company:       orDefault(sub.Company, NotProvided),
	})
	if err != nil {
		return nil, err
	}

	msg := b.message(b.cfg.Admin, fmt.Sprintf("[%s] Liên hệ mới từ %s", b.cfg.CompanyName, plain(sub.Name)), body, true)
	msg.ReplyTo = Address{Name: plain(sub.Name), Email: plain(sub.Email)}
	return msg, nil
}

// CustomerConfirmation builds the acknowledgement sent to the submitter.
func (b *Builder) CustomerConfirmation(sub domain.ContactSubmission) (*Message, error) {
	sub = withDefaults(sub, b.now())

	body, err := b.render("customer_confirmation", confirmationData{
		BuilderConfig: b.cfg,
		Sub:           sub,
	})
	if err != nil {
		return nil, err
	}

	to := Address{Name: plain(sub.Name), Email: plain(sub.Email)}
	msg := b.message(to, fmt.Sprintf("Cảm ơn bạn đã liên hệ %s", b.cfg.CompanyName), body, false)
	if b.cfg.SupportEmail != "" {
		msg.ReplyTo = Address{Name: b.cfg.CompanyName, Email: b.cfg.SupportEmail}
	}
	return msg, nil
}

// NewsletterNotification builds the message announcing a new subscriber.
func (b *Builder) NewsletterNotification(email, clientIP string) (*Message, error) {
	if clientIP == "" {
		clientIP = "unknown"
	}

	body, err := b.render("newsletter_notification", newsletterData{
		BuilderConfig: b.cfg,
		Email:         email,
		ClientIP:      clientIP,
		Timestamp:     b.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}

	return b.message(b.cfg.Admin, fmt.Sprintf("[%s] Đăng ký nhận tin mới: %s", b.cfg.CompanyName, plain(email)), body, false), nil
}

func (b *Builder) message(to Address, subject, body string, urgent bool) *Message {
	headers := map[string]string{
		HeaderMessageID: b.messageID(),
		HeaderXMailer:   mailer,
	}
	if urgent {
		headers[HeaderXPriority] = "1"
		headers[HeaderImportance] = "high"
	} else {
		headers[HeaderXPriority] = "3"
		headers[HeaderImportance] = "normal"
	}

	return &Message{
		From:    b.cfg.From,
		To:      to,
		Subject: subject,
		HTML:    body,
		Text:    generatePlainText(body),
		Headers: headers,
	}
}

// messageID returns "<unixnano.random@domain>".
func (b *Builder) messageID() string {
	return fmt.Sprintf("<%d.%s@%s>", b.now().UnixNano(), b.newID(), b.cfg.Domain)
}

func (b *Builder) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := b.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

func withDefaults(sub domain.ContactSubmission, now time.Time) domain.ContactSubmission {
	if sub.Source == "" {
		sub.Source = domain.DefaultSource
	}
	if sub.Timestamp == "" {
		sub.Timestamp = now.UTC().Format(time.RFC3339)
	}
	sub.Name = orDefault(sub.Name, "Khách hàng")
	sub.Phone = orDefault(sub.Phone, NotProvided)
	return sub
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// plain decodes entities left by the sanitizer for use in headers.
func plain(s string) string {
	return html.UnescapeString(s)
}

func domainOf(addr string) string {
	if i := strings.LastIndex(addr, "@"); i >= 0 && i < len(addr)-1 {
		return addr[i+1:]
	}
	return "localhost"
}

// generatePlainText creates a simple plain text version from HTML
func generatePlainText(body string) string {
	text := body

	text = strings.ReplaceAll(text, "<br>", "\n")
	text = strings.ReplaceAll(text, "<br/>", "\n")
	text = strings.ReplaceAll(text, "<br />", "\n")
	text = strings.ReplaceAll(text, "</p>", "\n\n")
	text = strings.ReplaceAll(text, "</div>", "\n")
	text = strings.ReplaceAll(text, "</tr>", "\n")
	text = strings.ReplaceAll(text, "</h1>", "\n\n")
	text = strings.ReplaceAll(text, "</h2>", "\n\n")
	text = strings.ReplaceAll(text, "</h3>", "\n\n")

	// Drop <head> so styles do not leak into the text part.
	if start := strings.Index(text, "<head>"); start >= 0 {
		if end := strings.Index(text, "</head>"); end > start {
			text = text[:start] + text[end+len("</head>"):]
		}
	}

	for strings.Contains(text, "<") && strings.Contains(text, ">") {
		start := strings.Index(text, "<")
		end := strings.Index(text, ">")
		if start >= 0 && end > start {
			text = text[:start] + text[end+1:]
		} else {
			break
		}
	}

	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = html.UnescapeString(text)

	lines := strings.Split(text, "\n")
	var cleaned []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}

	return strings.Join(cleaned, "\n")
}
