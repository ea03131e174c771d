package password

import (
	"errors"
	"unicode"
)

// MinLength is the shortest password the policy accepts.
const MinLength = 8

var ErrWeakPassword = errors.New("password must be at least 8 characters and contain upper and lower case letters, a digit and a symbol")

// CheckStrength returns ErrWeakPassword unless plaintext has at least
// MinLength characters with one lower case letter, one upper case letter, one
// digit and one symbol.
func CheckStrength(plaintext string) error {
	if len([]rune(plaintext)) < MinLength {
		return ErrWeakPassword
	}
	var lower, upper, digit, symbol bool
	for _, r := range plaintext {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	if !lower || !upper || !digit || !symbol {
		return ErrWeakPassword
	}
	return nil
}
