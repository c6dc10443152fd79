// Package validate holds the pure field predicates shared by the profile
// and listing forms. Predicates report validity only; the caller owns the
// error message for its flow.
package validate

import (
	"strings"
	"unicode"
)

// Email checks the relaxed shape local@domain.tld: exactly one "@" with a
// non-empty local part and a dot somewhere after it.
func Email(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at != strings.LastIndex(email, "@") {
		return false
	}
	domain := email[at+1:]
	dot := strings.Index(domain, ".")
	if dot <= 0 || dot == len(domain)-1 {
		return false
	}
	return !strings.ContainsAny(email, " \t")
}

// Phone checks a contact phone. Empty is valid: phone is optional in the
// generic profile flow, and the listing flow layers its own required check
// on top. Spaces and dashes are stripped; what remains may contain digits,
// "+" and parentheses, with 10 to 15 digits total.
func Phone(phone string) bool {
	if phone == "" {
		return true
	}
	cleaned := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, phone)

	digits := 0
	for _, r := range cleaned {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '+' || r == '(' || r == ')':
		default:
			return false
		}
	}
	return digits >= 10 && digits <= 15
}

// Password checks the minimum length rule.
func Password(password string) bool {
	return len(password) >= 8
}

// Required checks trimmed non-emptiness.
func Required(value string) bool {
	return strings.TrimSpace(value) != ""
}

// PasswordsMatch checks the confirmation field.
func PasswordsMatch(password, confirm string) bool {
	return password == confirm
}
