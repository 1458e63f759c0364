package flow

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var (
	errBadPrice    = errors.New("price must be a number greater than zero")
	errBadDiscount = errors.New("discount must be an integer between 1 and 100")
	errBadDate     = errors.New("date must look like YYYY-MM-DD")
	errDatePast    = errors.New("start date must not be in the past")
	errDateOrder   = errors.New("end date must not precede start date")
	errBadCode     = errors.New("code must contain only letters and digits")
	errBadMinutes  = errors.New("delay must be a whole number of minutes, at least 1")
)

func parsePrice(s string) (float64, error) {
	price, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(s, ",", ".")), 64)
	if err != nil || price <= 0 {
		return 0, errBadPrice
	}
	return price, nil
}

func parseDiscount(s string) (int, error) {
	discount, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || discount < 1 || discount > 100 {
		return 0, errBadDiscount
	}
	return discount, nil
}

func parseDate(s string) (time.Time, error) {
	day, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, errBadDate
	}
	return day, nil
}

// parseStartDate validates the opening date of a range against today's wall
// clock: starting in the past is rejected, starting today is fine.
func parseStartDate(s string, now time.Time) (time.Time, error) {
	start, err := parseDate(s)
	if err != nil {
		return time.Time{}, err
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if start.Before(today) {
		return time.Time{}, errDatePast
	}
	return start, nil
}

// parseEndDate validates the closing date of a range against its start.
func parseEndDate(s, start string) (time.Time, error) {
	end, err := parseDate(s)
	if err != nil {
		return time.Time{}, err
	}
	startDay, err := parseDate(start)
	if err != nil {
		return time.Time{}, err
	}
	if end.Before(startDay) {
		return time.Time{}, errDateOrder
	}
	return end, nil
}

// normalizeCode uppercases a promo code after checking it is purely
// alphanumeric.
func normalizeCode(s string) (string, error) {
	code := strings.TrimSpace(s)
	if code == "" {
		return "", errBadCode
	}
	for _, r := range code {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		default:
			return "", errBadCode
		}
	}
	return strings.ToUpper(code), nil
}

func parseMinutes(s string) (int, error) {
	minutes, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || minutes < 1 {
		return 0, errBadMinutes
	}
	return minutes, nil
}
