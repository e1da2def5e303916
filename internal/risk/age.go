package risk

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// pivotYear splits two-digit years: above it is the 1900s, otherwise the 2000s.
const pivotYear = 30

// BirthYear parses a dd/mm/yy or dd/mm/yyyy date of birth.
func BirthYear(dob string) (int, error) {
	parts := strings.Split(strings.TrimSpace(dob), "/")
	if len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q is not day/month/year", ErrInvalidDOB, dob)
	}
	if _, err := parsePart(parts[0], 1, 31); err != nil {
		return 0, fmt.Errorf("%w: bad day in %q", ErrInvalidDOB, dob)
	}
	if _, err := parsePart(parts[1], 1, 12); err != nil {
		return 0, fmt.Errorf("%w: bad month in %q", ErrInvalidDOB, dob)
	}

	yearText := strings.TrimSpace(parts[2])
	year, err := strconv.Atoi(yearText)
	if err != nil || !allDigits(yearText) {
		return 0, fmt.Errorf("%w: bad year in %q", ErrInvalidDOB, dob)
	}
	switch len(yearText) {
	case 1, 2:
		if year > pivotYear {
			return 1900 + year, nil
		}
		return 2000 + year, nil
	case 4:
		return year, nil
	default:
		return 0, fmt.Errorf("%w: bad year in %q", ErrInvalidDOB, dob)
	}
}

// AgeAt returns the age in whole calendar years at now.
// Only the year component is compared.
func AgeAt(dob string, now time.Time) (int, error) {
	year, err := BirthYear(dob)
	if err != nil {
		return 0, err
	}
	age := now.Year() - year
	if age < 0 {
		return 0, fmt.Errorf("%w: %q is in the future", ErrInvalidDOB, dob)
	}
	return age, nil
}

func parsePart(raw string, min, max int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > 2 || !allDigits(raw) {
		return 0, fmt.Errorf("invalid component %q", raw)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < min || n > max {
		return 0, fmt.Errorf("component %d out of range", n)
	}
	return n, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
