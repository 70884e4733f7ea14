package flow

import (
	"strings"
	"unicode/utf8"

	"github.com/nyaruka/phonenumbers"
)

func longEnough(s string, n int) bool {
	return utf8.RuneCountInString(strings.TrimSpace(s)) >= n
}

// validContact is the shared minimum for free-form contacts.
func validContact(s string) bool {
	return longEnough(s, minContactLength)
}

// normalizePhone formats a phone number as E.164 when it parses as a valid
// number for region; otherwise the trimmed input is kept as typed.
func normalizePhone(input, region string) string {
	trimmed := strings.TrimSpace(input)
	num, err := phonenumbers.Parse(trimmed, region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return trimmed
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}
