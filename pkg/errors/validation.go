package errors

import (
	"strings"
	"unicode"
)

// ValidateDependencyKey validates a dependency key for safety and correctness.
// Keys become TOML table keys and filesystem-facing identifiers, so the rules
// are intentionally conservative:
//   - No empty keys
//   - No control characters
//   - No path traversal sequences (.., //)
//   - Maximum length of 256 characters
func ValidateDependencyKey(key string) error {
	if key == "" {
		return New(ErrCodeInvalidInput, "dependency key cannot be empty")
	}

	if len(key) > 256 {
		return New(ErrCodeInvalidInput, "dependency key too long (max 256 characters)")
	}

	for _, r := range key {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "dependency key contains invalid control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"//",   // Double slash
		"\x00", // Null byte
		"\\",   // Backslash (Windows path)
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(key, pattern) {
			return New(ErrCodeInvalidInput, "dependency key contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// ValidateDestination validates a download destination path for safety.
// It prevents path traversal out of the manifest directory and ensures
// reasonable path length.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
//
// Absolute paths are allowed; the original tool accepts both absolute paths
// and paths relative to the manifest directory.
func ValidateDestination(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "destination cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "destination too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "destination contains invalid characters")
		}
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "destination cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "destination cannot contain backslashes")
	}

	return nil
}

// ValidateGroupName validates a dependency group name.
// Group names become TOML table keys, so only simple identifiers are allowed.
func ValidateGroupName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "group name cannot be empty")
	}

	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			return New(ErrCodeInvalidInput, "invalid group name: %q", name)
		}
	}

	return nil
}
