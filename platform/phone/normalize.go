// Package phone validates applicant contact numbers.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion applies to numbers written without a country code.
const DefaultRegion = "PH"

// Normalize parses input as a Philippine or international number and returns
// its E.164 form. ok is false when the number is not dialable.
func Normalize(input string) (e164 string, ok bool) {
	number, err := phonenumbers.Parse(strings.TrimSpace(input), DefaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(number) {
		return "", false
	}
	return phonenumbers.Format(number, phonenumbers.E164), true
}
