package internal

import (
	"regexp"
	"strings"
)

type tagRule struct {
	pattern     *regexp.Regexp
	replacement string
}

func pairedTag(name, replacement string) tagRule {
	return tagRule{
		pattern:     regexp.MustCompile(`(?is)<` + name + `(?:\s[^>]*)?>(.*?)</` + name + `\s*>`),
		replacement: replacement,
	}
}

func voidTag(name, replacement string) tagRule {
	return tagRule{
		pattern:     regexp.MustCompile(`(?i)<` + name + `(?:\s[^>]*)?/?>`),
		replacement: replacement,
	}
}

// Applied in order; headers before inline formatting before blocks.
var markupRules = []tagRule{
	pairedTag("h1", "# $1\n\n"),
	pairedTag("h2", "## $1\n\n"),
	pairedTag("h3", "### $1\n\n"),
	pairedTag("h4", "#### $1\n\n"),
	pairedTag("h5", "##### $1\n\n"),
	pairedTag("h6", "###### $1\n\n"),
	pairedTag("strong", "**$1**"),
	pairedTag("b", "**$1**"),
	pairedTag("em", "*$1*"),
	pairedTag("i", "*$1*"),
	pairedTag("p", "$1\n\n"),
	voidTag("br", "\n"),
	voidTag("hr", "\n---\n\n"),
}

var (
	anyTagPattern        = regexp.MustCompile(`<[^>]+>`)
	horizontalSpaceRun   = regexp.MustCompile(`[ \t\r\f\v\x{00a0}]+`)
	spaceAroundNewline   = regexp.MustCompile(` ?\n ?`)
	excessNewlinePattern = regexp.MustCompile(`\n{3,}`)

	entityReplacer = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&rsquo;", "'",
		"&lsquo;", "'",
		"&rdquo;", `"`,
		"&ldquo;", `"`,
	)
)

// ToMarkup converts the HTML an assistant reply may carry into lightweight
// markup. Content without any tag is returned unchanged.
func ToMarkup(content string) string {
	if !anyTagPattern.MatchString(content) {
		return content
	}

	text := content
	for _, rule := range markupRules {
		text = rule.pattern.ReplaceAllString(text, rule.replacement)
	}
	text = anyTagPattern.ReplaceAllString(text, "")
	text = entityReplacer.Replace(text)

	// Newlines survive whitespace collapsing, capped at one blank line.
	text = horizontalSpaceRun.ReplaceAllString(text, " ")
	text = spaceAroundNewline.ReplaceAllString(text, "\n")
	text = excessNewlinePattern.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

var (
	boldMarkup   = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicMarkup = regexp.MustCompile(`\*(.*?)\*`)
)

// FormatMessageContent renders markup as inline HTML
func FormatMessageContent(content string) string {
	text := boldMarkup.ReplaceAllString(content, "<strong>$1</strong>")
	text = italicMarkup.ReplaceAllString(text, "<em>$1</em>")
	return strings.ReplaceAll(text, "\n", "<br>")
}

// NormalizeTranscript returns a copy of messages with assistant content
// converted to markup. User messages are left as typed.
func NormalizeTranscript(messages []Message) []Message {
	out := make([]Message, len(messages))
	for i, msg := range messages {
		out[i] = msg
		if !msg.IsUser() {
			out[i].Content = ToMarkup(msg.Content)
		}
	}
	return out
}
