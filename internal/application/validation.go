package application

import (
	"fmt"
	"path"
	"strings"
)

// ValidateRequired checks if a string field is non-empty (after trimming whitespace).
// Returns a ValidationError if the field is empty.
func ValidateRequired(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		displayName := formatFieldName(fieldName)
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("%s is required", displayName),
		}
	}
	return nil
}

// formatFieldName converts camelCase field names to space-separated words
// for more readable error messages (e.g., "groupID" -> "group ID")
func formatFieldName(fieldName string) string {
	replacements := map[string]string{
		"groupID":    "group ID",
		"nodeID":     "node ID",
		"sourcePath": "source path",
		"path":       "path",
		"text":       "text",
	}

	if formatted, ok := replacements[fieldName]; ok {
		return formatted
	}

	return fieldName
}

// ValidateCanvasPath checks that a document path is a vault-relative
// canvas path. Returns the cleaned path.
func ValidateCanvasPath(fieldName, p string) (string, error) {
	if err := ValidateRequired(fieldName, p); err != nil {
		return "", err
	}

	cleaned := path.Clean(strings.ReplaceAll(strings.TrimSpace(p), "\\", "/"))
	if path.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("%s must be inside the vault, got: %s", formatFieldName(fieldName), p),
		}
	}

	if !IsCanvasPath(cleaned) {
		return "", &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("expected a .canvas file, got: %s", p),
		}
	}

	return cleaned, nil
}
