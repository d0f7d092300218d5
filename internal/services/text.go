package services

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var whitespace = regexp.MustCompile(`\s+`)

// Slugify lowercases value and joins its letter/digit runs with dashes.
func Slugify(value string) string {
	lower := strings.ToLower(strings.TrimSpace(value))
	var b strings.Builder
	lastDash := false
	for _, r := range lower {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			b.WriteRune('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}

// AdminKeyBase derives the storage key from an email's local part:
// lowercased with everything but ASCII letters and digits removed.
func AdminKeyBase(email string) string {
	local := strings.ToLower(strings.TrimSpace(email))
	if at := strings.Index(local, "@"); at >= 0 {
		local = local[:at]
	}
	var b strings.Builder
	for _, r := range local {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "admin"
	}
	return b.String()
}

// ResolveAdminKey appends a numeric suffix until taken reports false.
func ResolveAdminKey(email string, taken func(string) bool) string {
	base := AdminKeyBase(email)
	candidate := base
	counter := 2
	for taken(candidate) {
		candidate = base + strconv.Itoa(counter)
		counter++
	}
	return candidate
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func CleanSearchTerm(term string) string {
	return whitespace.ReplaceAllString(strings.TrimSpace(term), " ")
}

func CleanText(value string) string {
	return strings.TrimSpace(value)
}
