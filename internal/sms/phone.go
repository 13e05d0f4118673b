package sms

import (
	"errors"
	"strconv"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// ErrInvalidPhoneNumber is returned when a phone number cannot be parsed or validated.
var ErrInvalidPhoneNumber = errors.New("invalid phone number")

// PhoneNumber is a destination number with an optional international
// dialing code. The zero value is an empty number.
type PhoneNumber struct {
	number  string
	iddCode string
}

// NewPhoneNumber returns a PhoneNumber for number. The optional iddCode may be
// written as "86", "+86" or "0086"; it is stored in canonical decimal form.
func NewPhoneNumber(number string, iddCode ...string) PhoneNumber {
	p := PhoneNumber{number: strings.TrimSpace(number)}
	if len(iddCode) > 0 {
		p.iddCode = normalizeIDDCode(iddCode[0])
	}
	return p
}

func normalizeIDDCode(code string) string {
	code = strings.TrimSpace(code)
	code = strings.TrimPrefix(code, "+")
	code = strings.TrimLeft(code, "0")
	if code == "" {
		return ""
	}
	n, err := strconv.Atoi(code)
	if err != nil || n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// ParsePhoneNumber splits an international number ("+8613812345678",
// "008613812345678") into its dialing code and national number. Input without
// an international prefix is kept as a bare number.
func ParsePhoneNumber(input string) (PhoneNumber, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return PhoneNumber{}, ErrEmptyNumber
	}
	if strings.HasPrefix(input, "00") {
		input = "+" + input[2:]
	}
	if !strings.HasPrefix(input, "+") {
		return NewPhoneNumber(input), nil
	}
	num, err := phonenumbers.Parse(input, "")
	if err != nil {
		return PhoneNumber{}, ErrInvalidPhoneNumber
	}
	national := phonenumbers.GetNationalSignificantNumber(num)
	if national == "" {
		return PhoneNumber{}, ErrInvalidPhoneNumber
	}
	return NewPhoneNumber(national, strconv.Itoa(int(num.GetCountryCode()))), nil
}

// Number returns the number without any dialing code.
func (p PhoneNumber) Number() string { return p.number }

// IDDCode returns the dialing code without prefix, or "" when absent.
func (p PhoneNumber) IDDCode() string { return p.iddCode }

// UniversalNumber returns "+<idd><number>", or the bare number when no
// dialing code is set.
func (p PhoneNumber) UniversalNumber() string {
	if p.iddCode == "" {
		return p.number
	}
	return "+" + p.iddCode + p.number
}

// ZeroPrefixedNumber returns "00<idd><number>", or the bare number when no
// dialing code is set.
func (p PhoneNumber) ZeroPrefixedNumber() string {
	if p.iddCode == "" {
		return p.number
	}
	return "00" + p.iddCode + p.number
}

// InChineseMainland reports whether the number has no dialing code or the
// +86 dialing code.
func (p PhoneNumber) InChineseMainland() bool {
	return p.iddCode == "" || p.iddCode == "86"
}

// IsEmpty reports whether the number is blank.
func (p PhoneNumber) IsEmpty() bool { return p.number == "" }

func (p PhoneNumber) String() string { return p.UniversalNumber() }

// NormalizePhone parses and validates a phone number using libphonenumber,
// returning E.164 format. Requires a '+' prefix (no default region).
func NormalizePhone(input string) (string, error) {
	// Only ASCII digits, one leading '+', and formatting chars are allowed.
	plusCount := 0
	for _, r := range input {
		switch {
		case r == '+':
			plusCount++
		case r >= '0' && r <= '9', r == ' ', r == '-', r == '(', r == ')', r == '.':
		default:
			return "", ErrInvalidPhoneNumber
		}
	}
	if plusCount != 1 {
		return "", ErrInvalidPhoneNumber
	}

	num, err := phonenumbers.Parse(input, "")
	if err != nil {
		return "", ErrInvalidPhoneNumber
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalidPhoneNumber
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// PhoneCountry returns the ISO 3166-1 alpha-2 region for the number, or ""
// when it has no dialing code or cannot be parsed.
func PhoneCountry(p PhoneNumber) string {
	if p.iddCode == "" {
		return ""
	}
	num, err := phonenumbers.Parse(p.UniversalNumber(), "")
	if err != nil {
		return ""
	}
	return phonenumbers.GetRegionCodeForNumber(num)
}

// IsAllowedCountry checks whether the number's region is one of allowed. An
// empty list permits all. Numbers without a dialing code count as CN, the
// same numbers InChineseMainland accepts.
func IsAllowedCountry(p PhoneNumber, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	region := "CN"
	if p.iddCode != "" {
		region = PhoneCountry(p)
	}
	if region == "" {
		return false
	}
	for _, code := range allowed {
		if strings.EqualFold(code, region) {
			return true
		}
	}
	return false
}
