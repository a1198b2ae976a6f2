package domain

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf16"
)

const (
	shortLabelMax     = 10
	shortLabelKeep    = 9
	phoneDigitsMin    = 11
	ellipsis          = "…"
	groupNameFallback = "Group Chat"
)

// avatarPalette is indexed by AvatarColor.
var avatarPalette = []string{
	"#2563EB",
	"#4ECDC4",
	"#FF6B6B",
	"#95E1D3",
	"#FFE66D",
	"#A78BFA",
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ShortLabel truncates a node label for display inside a circle.
//
// Phone-like labels ("+" followed by 11 or more digits) collapse to their
// last four digits. Labels of up to ten characters are kept; longer ones are
// cut to nine characters plus an ellipsis. Surrounding whitespace is
// ignored.
func ShortLabel(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return "?"
	}
	if strings.HasPrefix(text, "+") {
		if d := digitsOf(text); len(d) >= phoneDigitsMin {
			return d[len(d)-4:]
		}
	}
	runes := []rune(text)
	if len(runes) <= shortLabelMax {
		return text
	}
	return string(runes[:shortLabelKeep]) + ellipsis
}

// FirstName returns the first space-separated token of name, or "?".
func FirstName(name string) string {
	first, _, _ := strings.Cut(name, " ")
	if first == "" {
		return "?"
	}
	return first
}

// GroupName derives a group label from the names of the members other than
// the signed-in user.
func GroupName(others []string) string {
	switch n := len(others); {
	case n == 0:
		return groupNameFallback
	case n <= 2:
		firsts := make([]string, n)
		for i, name := range others {
			firsts[i] = FirstName(name)
		}
		return strings.Join(firsts, " & ")
	default:
		rest := n - 2
		suffix := ""
		if rest > 1 {
			suffix = "s"
		}
		return fmt.Sprintf("%s, %s & %d other%s", FirstName(others[0]), FirstName(others[1]), rest, suffix)
	}
}

// FormatPhoneDisplay renders a North American number as "(xxx) xxx-xxxx".
// Other non-empty inputs are returned unchanged.
func FormatPhoneDisplay(phone string) string {
	if phone == "" {
		return ""
	}
	d := digitsOf(phone)
	if len(d) == 11 && d[0] == '1' {
		return fmt.Sprintf("(%s) %s-%s", d[1:4], d[4:7], d[7:])
	}
	return phone
}

// NormalizePhoneNumber converts user input into E.164 form. Ten digit input
// is assumed to be North American.
func NormalizePhoneNumber(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}
	d := digitsOf(trimmed)
	switch {
	case len(d) == 10:
		return "+1" + d
	case len(d) >= 11:
		return "+" + d
	default:
		return trimmed
	}
}

// UsernameToEmail maps a login identifier to the email used by the auth
// provider. Inputs that already contain "@" are returned trimmed; phone
// numbers become "<digits>@<domain>".
func UsernameToEmail(input, domain string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}
	if strings.Contains(trimmed, "@") {
		return trimmed
	}
	normalized := NormalizePhoneNumber(trimmed)
	return digitsOf(normalized) + "@" + domain
}

// Initials returns up to two upper-case initials for name, or "?".
func Initials(name string) string {
	parts := strings.Fields(name)
	first := func(s string) string {
		r := []rune(s)
		return string(unicode.ToUpper(r[0]))
	}
	switch len(parts) {
	case 0:
		return "?"
	case 1:
		return first(parts[0])
	default:
		return first(parts[0]) + first(parts[len(parts)-1])
	}
}

// AvatarColor picks a stable palette color for id using a 32-bit string hash
// over UTF-16 code units.
func AvatarColor(id string) string {
	var h int32
	for _, c := range utf16.Encode([]rune(id)) {
		h = (h << 5) - h + int32(c)
	}
	abs := int64(h)
	if abs < 0 {
		abs = -abs
	}
	return avatarPalette[abs%int64(len(avatarPalette))]
}
