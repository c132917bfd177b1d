package commands

import (
	"strings"
	"unicode"
)

// Invocation is a parsed prefix command.
type Invocation struct {
	Name string
	Args []string
	// raw is the text after the command name, whitespace preserved.
	raw string
}

// Parse splits a message into a command invocation. It reports false for messages
// that do not start with the prefix or carry no command name.
func Parse(prefix, content string) (Invocation, bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return Invocation{}, false
	}
	body := strings.TrimPrefix(content, prefix)
	if body == "" || unicode.IsSpace(rune(body[0])) {
		return Invocation{}, false
	}

	name, rest, _ := strings.Cut(body, " ")
	if i := strings.IndexFunc(name, unicode.IsSpace); i >= 0 {
		name, rest = name[:i], name[i:]+" "+rest
	}
	rest = strings.TrimSpace(rest)
	inv := Invocation{Name: strings.ToLower(name), raw: rest}
	if rest != "" {
		inv.Args = strings.Fields(rest)
	}
	return inv, true
}

// Arg returns the i-th argument, or "" when absent.
func (inv Invocation) Arg(i int) string {
	if i < 0 || i >= len(inv.Args) {
		return ""
	}
	return inv.Args[i]
}

// Rest returns the raw text after the first n arguments, keeping inner spacing.
func (inv Invocation) Rest(n int) string {
	s := inv.raw
	for i := 0; i < n; i++ {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		end := strings.IndexFunc(s, unicode.IsSpace)
		if end < 0 {
			return ""
		}
		s = s[end:]
	}
	return strings.TrimSpace(s)
}
