package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fpang/retrosnap/internal/auth"
)

// ValidateInputFile checks that path exists and is a regular file, then
// returns its absolute path.
func ValidateInputFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", path)
		}
		return "", fmt.Errorf("failed to access %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("path is a directory: %s", path)
	}

	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return path, nil
}

// DescribeValidationError turns an auth.ValidationError into advice for the user.
func DescribeValidationError(err error) string {
	var validationErr *auth.ValidationError
	if !errors.As(err, &validationErr) {
		return "Unexpected error during API key validation, captions disabled"
	}

	switch validationErr.Type {
	case auth.ErrTypeNoKey:
		return "No API key configured. Set GEMINI_API_KEY or store it in ~/.retrosnap/credentials.gpg"
	case auth.ErrTypeInvalidKey:
		return "Invalid API key, captions disabled. Please check your API key"
	case auth.ErrTypeNetworkError:
		return "Network error while validating the API key, captions disabled"
	case auth.ErrTypeQuotaExceeded:
		return "API quota exceeded, captions disabled. Try again later or check your usage limits"
	default:
		return "API key validation failed, captions disabled"
	}
}
