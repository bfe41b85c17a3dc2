package utils

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Request limits
const (
	MaxJSONSize   = 1 * 1024 * 1024 // 1MB - maximum JSON payload size
	MaxValueDepth = 32              // nesting depth of a stored value
	MaxKeyLength  = 256
)

var (
	ErrTooLarge   = errors.New("payload too large")
	ErrTooDeep    = errors.New("payload nested too deeply")
	ErrInvalidKey = errors.New("invalid key")
)

// JSONSizeValidator validates JSON size limits
type JSONSizeValidator struct {
	maxSize int
}

// NewJSONSizeValidator creates a new validator with the specified max size
func NewJSONSizeValidator(maxSize int) *JSONSizeValidator {
	return &JSONSizeValidator{maxSize: maxSize}
}

// DefaultJSONValidator returns a validator with the default 1MB limit
func DefaultJSONValidator() *JSONSizeValidator {
	return NewJSONSizeValidator(MaxJSONSize)
}

// MaxSize returns the configured limit in bytes
func (v *JSONSizeValidator) MaxSize() int {
	return v.maxSize
}

// ValidateSize checks if the data size is within limits
func (v *JSONSizeValidator) ValidateSize(data []byte) error {
	if size := len(data); size > v.maxSize {
		return fmt.Errorf("%w: %d bytes exceeds maximum %d bytes", ErrTooLarge, size, v.maxSize)
	}
	return nil
}

// ValidateJSONDepth checks that decoded JSON nests no deeper than maxDepth
func ValidateJSONDepth(data any, maxDepth int) error {
	return checkDepth(data, 0, maxDepth)
}

func checkDepth(data any, currentDepth int, maxDepth int) error {
	if currentDepth > maxDepth {
		return fmt.Errorf("%w: depth %d exceeds maximum %d", ErrTooDeep, currentDepth, maxDepth)
	}

	switch v := data.(type) {
	case map[string]any:
		for _, value := range v {
			if err := checkDepth(value, currentDepth+1, maxDepth); err != nil {
				return err
			}
		}
	case []any:
		for _, value := range v {
			if err := checkDepth(value, currentDepth+1, maxDepth); err != nil {
				return err
			}
		}
	}

	return nil
}

// ValidateKey checks a data store key. Keys travel as a single path
// segment, so slashes are rejected along with control characters.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key is required", ErrInvalidKey)
	}
	if !utf8.ValidString(key) {
		return fmt.Errorf("%w: key is not valid UTF-8", ErrInvalidKey)
	}
	if n := utf8.RuneCountInString(key); n > MaxKeyLength {
		return fmt.Errorf("%w: key must not exceed %d characters", ErrInvalidKey, MaxKeyLength)
	}
	if strings.ContainsRune(key, '/') {
		return fmt.Errorf("%w: key must not contain '/'", ErrInvalidKey)
	}
	if strings.IndexFunc(key, unicode.IsControl) >= 0 {
		return fmt.Errorf("%w: key contains control characters", ErrInvalidKey)
	}
	return nil
}
