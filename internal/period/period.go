// Package period handles YYYY-MM accounting periods.
package period

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/jask/glrecon/internal/apperr"
)

var pattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// Valid reports whether s is a YYYY-MM period with a month of 01-12.
func Valid(s string) bool {
	if !pattern.MatchString(s) {
		return false
	}
	m, _ := strconv.Atoi(s[5:])
	return m >= 1 && m <= 12
}

// Check returns a validation error unless s is a valid period.
func Check(s string) error {
	if !Valid(s) {
		return apperr.Validation("period %q must be YYYY-MM", s)
	}
	return nil
}

// OfDate returns the period of an ISO YYYY-MM-DD date.
func OfDate(date string) string {
	if len(date) < 7 {
		return ""
	}
	return date[:7]
}

// Of returns the period containing t.
func Of(t time.Time) string {
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}
