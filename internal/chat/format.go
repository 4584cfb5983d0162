package chat

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxReplyLength  = 1500
	truncatedMarker = "\n\n*[Response truncated for brevity]*"
)

var numberedItem = regexp.MustCompile(`(\d+)\)[ \t]`)

// FormatReply normalises generator output into the markdown the clients render.
func FormatReply(text string) string {
	text = strings.ReplaceAll(text, "- ", "* ")
	text = doubleSingleNewlines(text)
	text = strings.ReplaceAll(text, "• ", "* ")
	text = numberedItem.ReplaceAllString(text, "$1. ")
	return truncate(text)
}

// doubleSingleNewlines turns every lone newline into a paragraph break.
func doubleSingleNewlines(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/8)

	for i := 0; i < len(text); i++ {
		if text[i] != '\n' {
			b.WriteByte(text[i])
			continue
		}
		run := 1
		for i+run < len(text) && text[i+run] == '\n' {
			run++
		}
		if run == 1 {
			b.WriteString("\n\n")
		} else {
			b.WriteString(strings.Repeat("\n", run))
		}
		i += run - 1
	}
	return b.String()
}

// truncate cuts replies over maxReplyLength runes at the last paragraph break.
func truncate(text string) string {
	if utf8.RuneCountInString(text) <= maxReplyLength {
		return text
	}
	head := string([]rune(text)[:maxReplyLength])
	if idx := strings.LastIndex(head, "\n\n"); idx > 0 {
		return head[:idx] + truncatedMarker
	}
	return head + "..." + truncatedMarker
}
