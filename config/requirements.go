package config

import (
	"fmt"
	"os"
	"strings"
)

// CheckRequirements verifies the runtime environment before the server starts: the
// templates directory must exist, the upload directory is created when missing and the
// Gemini API key must be set to something other than the placeholder.
func CheckRequirements(cfg *Config) error {
	info, err := os.Stat(cfg.TemplatesDir)
	if err != nil {
		return fmt.Errorf("templates directory %q not found: %w", cfg.TemplatesDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("templates path %q is not a directory", cfg.TemplatesDir)
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return fmt.Errorf("failed to create upload directory %q: %w", cfg.UploadDir, err)
	}

	key := strings.TrimSpace(cfg.GeminiAPIKey)
	if key == "" || key == PlaceholderAPIKey {
		return fmt.Errorf("gemini API key not configured: set GEMINI_API_KEY (get a key from https://aistudio.google.com/)")
	}

	return nil
}
