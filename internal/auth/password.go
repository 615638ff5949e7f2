package auth

import (
	"errors"
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"storefront/internal/domain"
)

const MinPasswordLength = 6

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// CheckPassword reports a mismatch as *domain.UnauthorizedError.
func CheckPassword(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return domain.NewUnauthorizedError("invalid credentials")
	}
	return err
}

// PasswordProblems lists every rule password breaks, keyed by error code.
func PasswordProblems(password string) []domain.FieldError {
	var hasDigit, hasLower, hasUpper, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case !unicode.IsLetter(r):
			hasSymbol = true
		}
	}

	var out []domain.FieldError
	if len([]rune(password)) < MinPasswordLength {
		out = append(out, domain.FieldError{Field: "PasswordTooShort",
			Message: fmt.Sprintf("Passwords must be at least %d characters.", MinPasswordLength)})
	}
	if !hasSymbol {
		out = append(out, domain.FieldError{Field: "PasswordRequiresNonAlphanumeric",
			Message: "Passwords must have at least one non alphanumeric character."})
	}
	if !hasDigit {
		out = append(out, domain.FieldError{Field: "PasswordRequiresDigit",
			Message: "Passwords must have at least one digit ('0'-'9')."})
	}
	if !hasLower {
		out = append(out, domain.FieldError{Field: "PasswordRequiresLower",
			Message: "Passwords must have at least one lowercase ('a'-'z')."})
	}
	if !hasUpper {
		out = append(out, domain.FieldError{Field: "PasswordRequiresUpper",
			Message: "Passwords must have at least one uppercase ('A'-'Z')."})
	}
	return out
}
