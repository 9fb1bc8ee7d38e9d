// Package auth resolves the Gemini API key used for captions and validates it
// once at startup.
package auth

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	credentialDir  = ".retrosnap"
	credentialFile = "credentials.gpg"
)

// ErrNoAPIKey is returned when no source provides a key.
var ErrNoAPIKey = errors.New("API key not found. Set GEMINI_API_KEY or store it in ~/.retrosnap/credentials.gpg")

// envKeys are checked in order.
var envKeys = []string{"GEMINI_API_KEY", "API_KEY"}

// GetAPIKey retrieves the Gemini API key.
// Priority order:
//  1. GEMINI_API_KEY, then API_KEY environment variables
//  2. GPG-encrypted file at ~/.retrosnap/credentials.gpg
func GetAPIKey() (string, error) {
	for _, name := range envKeys {
		if key := strings.TrimSpace(os.Getenv(name)); key != "" {
			log.Debug().Str("source", name).Msg("Using API key from environment variable")
			return key, nil
		}
	}

	key, err := getFromGPG()
	if err == nil && key != "" {
		log.Debug().Msg("Using API key from GPG encrypted file")
		return key, nil
	}

	log.Debug().Err(err).Msg("No API key available")
	return "", ErrNoAPIKey
}

// getFromGPG decrypts the API key from the GPG-encrypted credentials file.
func getFromGPG() (string, error) {
	credPath, err := getCredentialPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(credPath); os.IsNotExist(err) {
		return "", fmt.Errorf("GPG credentials file not found at %s", credPath)
	}

	log.Debug().Str("file", credPath).Msg("Decrypting GPG credentials")

	cmd := exec.Command("gpg", "--decrypt", "--quiet", credPath)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("GPG decryption failed: %s", string(exitErr.Stderr))
		}
		return "", fmt.Errorf("GPG decryption failed: %w", err)
	}

	return strings.TrimSpace(string(output)), nil
}

// getCredentialPath returns the full path to the credentials file.
func getCredentialPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, credentialDir, credentialFile), nil
}
