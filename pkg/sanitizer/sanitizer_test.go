package sanitizer_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/inspectauth/pkg/sanitizer"
)

func TestText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello world", "hello world"},
		{"angle brackets", "<script>alert(1)</script>", "scriptalert(1)/script"},
		{"trims", "  padded  ", "padded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, sanitizer.Text(tt.in))
		})
	}

	long := strings.Repeat("é", 1500)
	assert.Equal(t, sanitizer.MaxTextLength, utf8.RuneCountInString(sanitizer.Text(long)))
}

func TestStripHTML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no markup", "just text", "just text"},
		{"tags", "<b>bold</b> and <i>italic</i>", "bold and italic"},
		{"attributes", `<a href="javascript:alert(1)" onclick="x()">link</a>`, "link"},
		{"script body", "before<script>alert('x')</script>after", "beforeafter"},
		{"style body", "<style>body{color:red}</style>visible", "visible"},
		{"entities stay escaped", "Tom &amp; Jerry", "Tom &amp; Jerry"},
		{"escaped markup stays inert", "&lt;img src=x onerror=alert(1)&gt;", "&lt;img src=x onerror=alert(1)&gt;"},
		{"bare specials are escaped", `a > b & "c"`, "a &gt; b &amp; &#34;c&#34;"},
		{"comment", "a<!-- hidden -->b", "ab"},
		{"unclosed", "<div>text", "text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, sanitizer.StripHTML(tt.in))
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "user@example.com", sanitizer.NormalizeEmail("  User@Example.COM "))
	// Malformed input is not repaired.
	assert.Equal(t, "a..b@example.com", sanitizer.NormalizeEmail("a..b@example.com"))
}

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"+1 (555) 123-4567", "+15551234567"},
		{"555.123.4567", "5551234567"},
		{"1+2", "12"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizer.NormalizePhone(tt.in), tt.in)
	}
}

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	// Decomposed "é" (e + combining acute) becomes the precomposed form.
	assert.Equal(t, "Ren\u00e9", sanitizer.NormalizeName("Rene\u0301"))
	assert.Equal(t, "Mary Ann", sanitizer.NormalizeName("  Mary \t Ann\x00 "))
}

func TestApplyAndCompose(t *testing.T) {
	t.Parallel()

	upper := func(s string) string { return strings.ToUpper(s) }
	assert.Equal(t, "A B", sanitizer.Apply(" a   b ", sanitizer.RemoveExtraWhitespace, upper))

	pipeline := sanitizer.Compose(sanitizer.StripHTML, sanitizer.RemoveExtraWhitespace)
	assert.Equal(t, "hi there", pipeline("<p>hi</p>   <p>there</p>"))
}

func TestIsLetterOrNameMark(t *testing.T) {
	t.Parallel()
	for _, r := range "Zoë O'Neil-Smith" {
		assert.True(t, sanitizer.IsLetterOrNameMark(r), string(r))
	}
	for _, r := range "1_@" {
		assert.False(t, sanitizer.IsLetterOrNameMark(r), string(r))
	}
}
