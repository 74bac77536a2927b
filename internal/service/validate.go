package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/studentride/rideshare/backend/internal/domain"
)

var (
	travelTimePattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)
	phonePattern      = regexp.MustCompile(`^\+?[\d\s\-()]{10,15}$`)
)

// normalizeRequest trims the free-text fields, defaults the car type, and
// enforces the request rules shared by Create and Update.
//   - Origin and destination are 2-100 characters after trimming.
//   - Travel date is not before today (UTC).
//   - Travel time is HH:MM on a 24h clock.
//   - Max persons is between domain.MinPersons and domain.MaxPersons.
func normalizeRequest(u domain.RequestUpdate, today time.Time) (domain.RequestUpdate, error) {
	u.Origin = strings.TrimSpace(u.Origin)
	u.Destination = strings.TrimSpace(u.Destination)
	u.TravelTime = strings.TrimSpace(u.TravelTime)
	if u.CarType == "" {
		u.CarType = domain.CarAny
	}

	if err := checkLength("origin", u.Origin, 2, 100); err != nil {
		return u, err
	}
	if err := checkLength("destination", u.Destination, 2, 100); err != nil {
		return u, err
	}
	if u.TravelDate.IsZero() {
		return u, fmt.Errorf("%w: travel date is required", domain.ErrValidation)
	}
	u.TravelDate = dateOnly(u.TravelDate)
	if u.TravelDate.Before(dateOnly(today)) {
		return u, fmt.Errorf("%w: travel date cannot be in the past", domain.ErrValidation)
	}
	if !travelTimePattern.MatchString(u.TravelTime) {
		return u, fmt.Errorf("%w: travel time must be HH:MM", domain.ErrValidation)
	}
	if !u.CarType.Valid() {
		return u, fmt.Errorf("%w: car type must be sedan, suv, hatchback or any", domain.ErrValidation)
	}
	if u.MaxPersons < domain.MinPersons || u.MaxPersons > domain.MaxPersons {
		return u, fmt.Errorf("%w: max persons must be between %d and %d",
			domain.ErrValidation, domain.MinPersons, domain.MaxPersons)
	}
	return u, nil
}

// validateProfile enforces the profile rules. Phone is optional.
func validateProfile(u domain.User) (domain.User, error) {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.TrimSpace(u.Email)
	u.Phone = strings.TrimSpace(u.Phone)

	if err := checkLength("name", u.Name, 2, 50); err != nil {
		return u, err
	}
	if u.Email != "" && !strings.Contains(u.Email, "@") {
		return u, fmt.Errorf("%w: email is not valid", domain.ErrValidation)
	}
	if u.Phone != "" && !phonePattern.MatchString(u.Phone) {
		return u, fmt.Errorf("%w: phone number is not valid", domain.ErrValidation)
	}
	return u, nil
}

func checkLength(field, v string, lo, hi int) error {
	n := utf8.RuneCountInString(v)
	if n < lo || n > hi {
		return fmt.Errorf("%w: %s must be between %d and %d characters", domain.ErrValidation, field, lo, hi)
	}
	return nil
}

// dateOnly truncates t to midnight UTC of its calendar day.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
