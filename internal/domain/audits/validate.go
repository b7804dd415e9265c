package audits

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// MinSourceLength is the shortest trimmed input, in characters, accepted as a contract.
const MinSourceLength = 20

// MaxSourceBytes caps uploads and request bodies.
const MaxSourceBytes = 1 << 20

var (
	ErrNotFound        = errors.New("audit not found")
	ErrInvalidContract = errors.New("please enter a valid Solidity smart contract")
	ErrNotSolidityFile = errors.New("please upload a Solidity (.sol) file")
	ErrSourceTooLarge  = errors.New("contract source exceeds 1 MiB")
)

// IsValidation reports whether err is a user input error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidContract) ||
		errors.Is(err, ErrNotSolidityFile) ||
		errors.Is(err, ErrSourceTooLarge)
}

// ValidateSource rejects inputs too short to be a contract or too large to accept.
func ValidateSource(source string) error {
	if len(source) > MaxSourceBytes {
		return ErrSourceTooLarge
	}
	if utf8.RuneCountInString(strings.TrimSpace(source)) < MinSourceLength {
		return ErrInvalidContract
	}
	return nil
}

// ValidateFilename requires a .sol extension. Empty names are allowed for pasted source.
func ValidateFilename(name string) error {
	if name == "" {
		return nil
	}
	if filepath.Ext(name) != ".sol" {
		return ErrNotSolidityFile
	}
	return nil
}
