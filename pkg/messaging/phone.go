package messaging

import (
	"fmt"
	"strings"
)

// jidSuffix marks a personal chat address on the gateway.
const jidSuffix = "@c.us"

// countryCode is prefixed to local numbers.
const countryCode = "62"

// ValidatePhone reports whether number looks like a reachable mobile number.
// Lengths count digits only and depend on the prefix:
//
//	+62...  10-14 digits
//	62...   10-13 digits
//	0...    10-12 digits (local)
//	8...     9-11 digits (no prefix)
//	other    9-14 digits
func ValidatePhone(number string) bool {
	number = strings.TrimSpace(number)
	if number == "" {
		return false
	}
	n := len(digits(number))

	switch {
	case strings.HasPrefix(number, "+"+countryCode):
		return n >= 10 && n <= 14
	case strings.HasPrefix(number, countryCode):
		return n >= 10 && n <= 13
	case strings.HasPrefix(number, "0"):
		return n >= 10 && n <= 12
	case strings.HasPrefix(number, "8"):
		return n >= 9 && n <= 11
	default:
		return n >= 9 && n <= 14
	}
}

// NormalizePhone converts a number to international digits without "+":
// a leading "0" or "8" gets the country code. Separators are dropped.
func NormalizePhone(number string) string {
	n := strings.TrimPrefix(strings.TrimSpace(number), "+")
	n = digits(n)
	if strings.HasPrefix(n, "0") {
		n = countryCode + n[1:]
	}
	if strings.HasPrefix(n, "8") {
		n = countryCode + n
	}
	return n
}

// ChatID returns the gateway chat address for number.
func ChatID(number string) string {
	if strings.HasSuffix(number, jidSuffix) {
		return number
	}
	return NormalizePhone(number) + jidSuffix
}

// InvalidRecipientsError lists recipients that failed ValidatePhone.
type InvalidRecipientsError struct {
	Numbers []string
}

// Error implements the error interface.
func (e *InvalidRecipientsError) Error() string {
	return fmt.Sprintf("messaging: invalid number: %s", strings.Join(e.Numbers, ", "))
}

// Unwrap lets errors.Is match ErrInvalidPhone.
func (e *InvalidRecipientsError) Unwrap() error { return ErrInvalidPhone }

// ValidateRecipients checks every number and returns *InvalidRecipientsError
// naming the bad ones.
func ValidateRecipients(numbers []string) error {
	if len(numbers) == 0 {
		return ErrNoRecipients
	}
	var bad []string
	for _, n := range numbers {
		if !ValidatePhone(n) {
			bad = append(bad, n)
		}
	}
	if len(bad) > 0 {
		return &InvalidRecipientsError{Numbers: bad}
	}
	return nil
}

func digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
