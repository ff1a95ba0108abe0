package auth

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 8

var (
	ErrPasswordTooShort     = errors.New("This password is too short. It must contain at least 8 characters.")
	ErrPasswordNumeric      = errors.New("This password is entirely numeric.")
	ErrPasswordCommon       = errors.New("This password is too common.")
	ErrPasswordLikeUsername = errors.New("The password is too similar to the username.")
	ErrPasswordMismatch     = errors.New("The two password fields didn't match.")
	ErrIncorrectPassword    = errors.New("Your old password was entered incorrectly.")
)

var commonPasswords = map[string]bool{
	"password": true, "password1": true, "password123": true, "12345678": true,
	"123456789": true, "1234567890": true, "qwerty123": true, "qwertyuiop": true,
	"iloveyou": true, "sunshine": true, "princess": true, "football": true,
	"baseball": true, "welcome1": true, "abc12345": true, "letmein1": true,
	"admin123": true, "passw0rd": true, "trustno1": true, "11111111": true,
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePassword applies the account password rules and returns the first
// one that password breaks.
func ValidatePassword(password, username string) error {
	if len([]rune(password)) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	lower := strings.ToLower(password)
	if name := strings.ToLower(username); name != "" && (lower == name || (len(name) >= 4 && strings.Contains(lower, name))) {
		return ErrPasswordLikeUsername
	}
	if commonPasswords[lower] {
		return ErrPasswordCommon
	}
	if strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		return ErrPasswordNumeric
	}
	return nil
}
