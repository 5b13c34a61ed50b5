package email

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/shrimptech/internal/domain"
	"github.com/dukerupert/shrimptech/internal/validation"
)

func TestGeneratePlainText(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		contains []string
		excludes []string
	}{
		{
			name:     "simple paragraph",
			html:     "<p>Hello, World!</p>",
			contains: []string{"Hello, World!"},
			excludes: []string{"<p>", "</p>"},
		},
		{
			name:     "line breaks",
			html:     "Line 1<br>Line 2<br/>Line 3<br />Line 4",
			contains: []string{"Line 1", "Line 2", "Line 3", "Line 4"},
			excludes: []string{"<br>", "<br/>", "<br />"},
		},
		{
			name:     "headings",
			html:     "<h1>Title</h1><h2>Subtitle</h2><h3>Section</h3>",
			contains: []string{"Title", "Subtitle", "Section"},
			excludes: []string{"<h1>", "</h1>", "<h2>", "</h2>", "<h3>", "</h3>"},
		},
		{
			name:     "nested tags",
			html:     "<div><p><strong>Bold text</strong> and <em>italic</em></p></div>",
			contains: []string{"Bold text", "and", "italic"},
			excludes: []string{"<div>", "<p>", "<strong>", "<em>"},
		},
		{
			name:     "HTML entities",
			html:     "Price: $10 &amp; shipping &nbsp; included &lt;$5&gt; &quot;free&quot;",
			contains: []string{"Price: $10 & shipping", "included <$5>", "\"free\""},
			excludes: []string{"&amp;", "&nbsp;", "&lt;", "&gt;", "&quot;"},
		},
		{
			name:     "links stripped",
			html:     `<a href="https://example.com">Click here</a>`,
			contains: []string{"Click here"},
			excludes: []string{"<a", "href", "</a>"},
		},
		{
			name:     "empty content",
			html:     "",
			contains: []string{},
			excludes: []string{},
		},
		{
			name: "email template structure",
			html: `
				<div class="email-content">
					<h2>Welcome!</h2>
					<p>Thank you for signing up.</p>
					<p>Click <a href="https://example.com/verify">here</a> to verify.</p>
				</div>
			`,
			contains: []string{"Welcome!", "Thank you for signing up", "here", "to verify"},
			excludes: []string{"<div", "<h2>", "<p>", "<a href"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := generatePlainText(tt.html)

			for _, want := range tt.contains {
				if !strings.Contains(result, want) {
					t.Errorf("generatePlainText() result should contain %q, got: %q", want, result)
				}
			}

			for _, exclude := range tt.excludes {
				if strings.Contains(result, exclude) {
					t.Errorf("generatePlainText() result should not contain %q, got: %q", exclude, result)
				}
			}
		})
	}
}

func TestGeneratePlainText_WhitespaceHandling(t *testing.T) {
	html := `
		<p>   Line with spaces   </p>
		<p></p>
		<p>Another line</p>
	`

	result := generatePlainText(html)

	// Should not have empty lines (they get filtered)
	lines := strings.Split(result, "\n")
	for _, line := range lines {
		if strings.TrimSpace(line) == "" && line != "" {
			t.Error("generatePlainText() should not have blank lines with only whitespace")
		}
	}

	// Should contain the actual content
	if !strings.Contains(result, "Line with spaces") {
		t.Error("generatePlainText() should contain trimmed content")
	}
	if !strings.Contains(result, "Another line") {
		t.Error("generatePlainText() should contain 'Another line'")
	}
}

func testBuilder(t *testing.T) *Builder {
	t.Helper()

	b, err := NewBuilder(BuilderConfig{
		From:         Address{Name: "SHRIMPTECH", Email: "noreply@shrimptech.vn"},
		Admin:        Address{Name: "SHRIMPTECH Admin", Email: "admin@shrimptech.vn"},
		CompanyName:  "SHRIMPTECH",
		Website:      "https://shrimptech.vn",
		Hotline:      "0901 234 567",
		SupportEmail: "support@shrimptech.vn",
		OfficeHours:  "8:00 - 17:30",
	})
	require.NoError(t, err)

	b.now = func() time.Time { return time.Date(2024, 5, 1, 2, 30, 0, 0, time.UTC) }
	return b
}

func sanitizedSubmission() domain.ContactSubmission {
	sub := domain.ContactSubmission{
		Name:      "Nguyễn Văn A",
		Email:     "a@example.com",
		Phone:     "0901234567",
		Message:   "Tôi muốn tư vấn sản phẩm IoT\ncho ao tôm của tôi.",
		Source:    "Website",
		Timestamp: "2024-05-01T02:30:00Z",
	}
	sub.Name = validation.SanitizeInput(sub.Name)
	sub.Message = validation.SanitizeInput(sub.Message)
	return sub
}

func TestBuilder_AdminNotification(t *testing.T) {
	b := testBuilder(t)

	msg, err := b.AdminNotification(sanitizedSubmission(), "203.0.113.7")
	require.NoError(t, err)

	assert.Equal(t, "admin@shrimptech.vn", msg.To.Email)
	assert.Equal(t, "noreply@shrimptech.vn", msg.From.Email)
	assert.Equal(t, "a@example.com", msg.ReplyTo.Email)
	assert.Equal(t, "[SHRIMPTECH] Liên hệ mới từ Nguyễn Văn A", msg.Subject)

	for _, want := range []string{"Nguyễn Văn A", "a@example.com", "0901234567", NotProvided, "Website", "2024-05-01T02:30:00Z", "203.0.113.7"} {
		assert.Contains(t, msg.HTML, want)
	}
	assert.Contains(t, msg.HTML, "IoT<br>cho ao tôm")
	assert.True(t, strings.HasPrefix(msg.HTML, "<!DOCTYPE html>"))

	assert.Equal(t, "1", msg.Headers[HeaderXPriority])
	assert.Equal(t, "high", msg.Headers[HeaderImportance])
	assert.Equal(t, mailer, msg.Headers[HeaderXMailer])
	assert.Contains(t, msg.Text, "Nguyễn Văn A")
	assert.NotContains(t, msg.Text, "<div")
}

func TestBuilder_AdminNotification_Company(t *testing.T) {
	b := testBuilder(t)
	sub := sanitizedSubmission()
	sub.Company = validation.SanitizeInput("Tôm & Cá Co.")

	msg, err := b.AdminNotification(sub, "")
	require.NoError(t, err)

	// Sanitized entities are rendered once, not double-encoded.
	assert.Contains(t, msg.HTML, "Tôm &amp; Cá Co.")
	assert.NotContains(t, msg.HTML, "&amp;amp;")
	assert.NotContains(t, msg.HTML, NotProvided)
	assert.Contains(t, msg.HTML, "unknown")
}

func TestBuilder_UserHTMLNeverPassesThrough(t *testing.T) {
	b := testBuilder(t)
	sub := sanitizedSubmission()
	sub.Message = "<script>alert(1)</script>Hello there friend"

	msg, err := b.AdminNotification(sub, "")
	require.NoError(t, err)

	assert.NotContains(t, msg.HTML, "<script")
	assert.Contains(t, msg.HTML, "Hello there friend")
}

func TestBuilder_MissingOptionalFields(t *testing.T) {
	b := testBuilder(t)

	msg, err := b.AdminNotification(domain.ContactSubmission{Email: "a@example.com"}, "")
	require.NoError(t, err)

	assert.Contains(t, msg.HTML, domain.DefaultSource)
	assert.Contains(t, msg.HTML, "2024-05-01T02:30:00Z")
	assert.Contains(t, msg.HTML, NotProvided)
}

func TestBuilder_CustomerConfirmation(t *testing.T) {
	b := testBuilder(t)

	msg, err := b.CustomerConfirmation(sanitizedSubmission())
	require.NoError(t, err)

	assert.Equal(t, "a@example.com", msg.To.Email)
	assert.Equal(t, "Nguyễn Văn A", msg.To.Name)
	assert.Equal(t, "support@shrimptech.vn", msg.ReplyTo.Email)
	assert.Equal(t, "Cảm ơn bạn đã liên hệ SHRIMPTECH", msg.Subject)
	assert.Contains(t, msg.HTML, "Xin chào Nguyễn Văn A")
	assert.Contains(t, msg.HTML, "0901 234 567")
	assert.Contains(t, msg.HTML, "support@shrimptech.vn")
	assert.Equal(t, "normal", msg.Headers[HeaderImportance])
}

func TestBuilder_CustomerConfirmation_DecodesNameForHeaders(t *testing.T) {
	b := testBuilder(t)
	sub := sanitizedSubmission()
	sub.Name = validation.SanitizeInput("O'Brien")

	msg, err := b.CustomerConfirmation(sub)
	require.NoError(t, err)

	assert.Equal(t, "O'Brien", msg.To.Name)
	assert.Contains(t, msg.HTML, "O&#x27;Brien")
}

func TestBuilder_NewsletterNotification(t *testing.T) {
	b := testBuilder(t)

	msg, err := b.NewsletterNotification("farm@example.vn", "198.51.100.1")
	require.NoError(t, err)

	assert.Equal(t, "admin@shrimptech.vn", msg.To.Email)
	assert.Equal(t, "[SHRIMPTECH] Đăng ký nhận tin mới: farm@example.vn", msg.Subject)
	assert.Contains(t, msg.HTML, "farm@example.vn")
	assert.Contains(t, msg.HTML, "198.51.100.1")
}

func TestBuilder_MessageIDUnique(t *testing.T) {
	b := testBuilder(t)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		msg, err := b.CustomerConfirmation(sanitizedSubmission())
		require.NoError(t, err)

		id := msg.MessageID()
		assert.Regexp(t, `^<\d+\.[0-9a-f-]+@shrimptech\.vn>$`, id)
		assert.False(t, seen[id], "duplicate Message-ID %s", id)
		seen[id] = true
	}
}
