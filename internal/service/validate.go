package service

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"rentflow/internal/domain"
)

func requireText(field, value string, max int) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", domain.ErrValidation, field)
	}
	if utf8.RuneCountInString(value) > max {
		return fmt.Errorf("%w: %s exceeds %d characters", domain.ErrValidation, field, max)
	}
	return nil
}

func maxText(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return fmt.Errorf("%w: %s exceeds %d characters", domain.ErrValidation, field, max)
	}
	return nil
}

func validateEmail(email string) error {
	if err := requireText("email", email, domain.MaxEmailLen); err != nil {
		return err
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: email %q is not a valid address", domain.ErrValidation, email)
	}
	return nil
}

func validateRent(rent domain.Money) error {
	if rent < 0 {
		return fmt.Errorf("%w: rent must not be negative", domain.ErrValidation)
	}
	return nil
}

func validateStatus(status domain.ApartmentStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown apartment status %q", domain.ErrValidation, status)
	}
	return nil
}
