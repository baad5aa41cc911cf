package lead

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidContact wraps every contact validation failure
var ErrInvalidContact = errors.New("invalid contact")

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Normalized trims every field, lowercases the email and strips the phone down to digits
func (c Contact) Normalized() Contact {
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.Age = strings.TrimSpace(c.Age)
	c.Gender = strings.TrimSpace(c.Gender)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Phone = digits(c.Phone)
	c.City = strings.TrimSpace(c.City)
	c.ZipCode = strings.TrimSpace(c.ZipCode)
	c.Campaign = strings.TrimSpace(c.Campaign)
	return c
}

// Validate checks the fields the lead form requires.
// Phones are ten digit North American numbers without the leading country code.
func (c Contact) Validate() error {
	switch {
	case strings.TrimSpace(c.FirstName) == "":
		return fmt.Errorf("%w: first name is required", ErrInvalidContact)
	case strings.TrimSpace(c.LastName) == "":
		return fmt.Errorf("%w: last name is required", ErrInvalidContact)
	case strings.TrimSpace(c.Email) == "":
		return fmt.Errorf("%w: email is required", ErrInvalidContact)
	case !emailPattern.MatchString(strings.TrimSpace(c.Email)):
		return fmt.Errorf("%w: email address is not valid", ErrInvalidContact)
	}

	phone := digits(c.Phone)
	switch {
	case phone == "":
		return fmt.Errorf("%w: phone is required", ErrInvalidContact)
	case len(phone) != 10:
		return fmt.Errorf("%w: phone must have 10 digits", ErrInvalidContact)
	case phone[0] == '1':
		return fmt.Errorf("%w: phone must not start with 1", ErrInvalidContact)
	}
	return nil
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
