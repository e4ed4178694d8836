package identity

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"server-identity/internal/schemas"
)

const (
	defaultMinLength  = 8
	maxPasswordBytes  = 72
	specialCharacters = "@#$%!^&*"
	maxSimilarity     = 0.7
)

var nonWordCharacters = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

var commonPasswords = []string{
	"password", "password1", "password123", "passw0rd", "p@ssw0rd", "p@ssword", "12345678", "123456789",
	"1234567890", "qwerty123", "qwertyuiop", "iloveyou", "sunshine", "princess", "football", "baseball",
	"welcome1", "welcome123", "admin123", "letmein1", "trustno1", "abc12345", "monkey123", "dragon123",
	"starwars", "whatever", "superman", "11111111", "00000000", "changeme",
}

// PasswordPolicy validates new passwords and itemizes every violated rule.
type PasswordPolicy struct {
	MinLength int
	common    map[string]struct{}
}

// NewPasswordPolicy creates the default policy.
func NewPasswordPolicy() *PasswordPolicy {
	common := make(map[string]struct{}, len(commonPasswords))
	for _, password := range commonPasswords {
		common[password] = struct{}{}
	}
	return &PasswordPolicy{MinLength: defaultMinLength, common: common}
}

// Validate returns a *WeakPasswordError when the password violates any rule. The user is
// optional and used for the similarity rule.
func (p *PasswordPolicy) Validate(password string, user *schemas.User) error {
	var reasons []string

	if len([]rune(password)) < p.MinLength {
		reasons = append(reasons, fmt.Sprintf("This password is too short. It must contain at least %d characters.", p.MinLength))
	}
	if len(password) > maxPasswordBytes {
		reasons = append(reasons, fmt.Sprintf("This password is too long. It must contain at most %d bytes.", maxPasswordBytes))
	}
	if isNumeric(password) {
		reasons = append(reasons, "This password is entirely numeric.")
	}
	if _, ok := p.common[strings.ToLower(password)]; ok {
		reasons = append(reasons, "This password is too common.")
	}
	if user != nil {
		if attribute := similarAttribute(password, user); attribute != "" {
			reasons = append(reasons, "The password is too similar to the "+attribute+".")
		}
	}
	if !strings.ContainsFunc(password, unicode.IsUpper) {
		reasons = append(reasons, "The password must contain at least 1 uppercase letter, A-Z.")
	}
	if !strings.ContainsAny(password, specialCharacters) {
		reasons = append(reasons, "The password must contain at least 1 special character: "+specialCharacters)
	}

	if len(reasons) > 0 {
		return &WeakPasswordError{Reasons: reasons}
	}
	return nil
}

func isNumeric(password string) bool {
	if password == "" {
		return false
	}
	for _, r := range password {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// similarAttribute returns the name of the first user attribute the password resembles. Each
// attribute is compared whole and split into its word parts.
func similarAttribute(password string, user *schemas.User) string {
	lowered := strings.ToLower(password)

	attributes := []struct {
		name  string
		value string
	}{
		{"first name", user.FirstName},
		{"last name", user.LastName},
		{"email", user.Email},
	}
	for _, attribute := range attributes {
		if attribute.value == "" {
			continue
		}
		value := strings.ToLower(attribute.value)
		parts := append(nonWordCharacters.Split(value, -1), value)
		for _, part := range parts {
			if exceedsLengthRatio(lowered, part) {
				continue
			}
			if quickRatio(lowered, part) >= maxSimilarity {
				return attribute.name
			}
		}
	}
	return ""
}

// exceedsLengthRatio reports whether the value is too short relative to the password to ever
// reach maxSimilarity.
func exceedsLengthRatio(password, value string) bool {
	passwordLen := utf8.RuneCountInString(password)
	valueLen := utf8.RuneCountInString(value)
	return passwordLen >= 10*valueLen && float64(valueLen) < maxSimilarity/2*float64(passwordLen)
}

// quickRatio is an upper bound on the Ratcliff/Obershelp similarity: twice the number of
// runes the strings share, counted with multiplicity, over their total length.
func quickRatio(a, b string) float64 {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 1
	}

	available := make(map[rune]int)
	for _, r := range b {
		available[r]++
	}
	matches := 0
	for _, r := range a {
		if available[r] > 0 {
			available[r]--
			matches++
		}
	}
	return 2 * float64(matches) / float64(total)
}
