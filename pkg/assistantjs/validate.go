package assistantjs

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxMessageLength        = 10000
	MaxMetadataKeyLength    = 100
	MaxMetadataValueLength  = 1000
	MaxUserIdentifierLength = 255
)

var (
	projectIDPattern   = regexp.MustCompile(`^proj_[A-Za-z0-9_]+_public$`)
	assistantIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_\s-]+$`)
	metadataKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,100}$`)
)

func ValidProjectID(id string) bool {
	return projectIDPattern.MatchString(id)
}

func validateProjectID(id string) error {
	if id == "" {
		return newError(KindValidation, "project ID is required")
	}
	if !ValidProjectID(id) {
		return newError(KindValidation, "project ID must look like proj_<id>_public")
	}
	return nil
}

func validateUserIdentifier(u string) error {
	if utf8.RuneCountInString(u) > MaxUserIdentifierLength {
		return newError(KindValidation, "user identifier is too long")
	}
	return nil
}

// validateAssistantID returns the trimmed id.
func validateAssistantID(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return "", newError(KindValidation, "assistant ID is required")
	}
	if !assistantIDPattern.MatchString(id) {
		return "", newError(KindValidation, "assistant ID contains invalid characters")
	}
	return trimmed, nil
}

// validateMessage returns the trimmed message.
func validateMessage(msg string) (string, error) {
	trimmed := strings.TrimSpace(msg)
	if trimmed == "" {
		return "", newError(KindValidation, "message cannot be empty")
	}
	if utf8.RuneCountInString(msg) > MaxMessageLength {
		return "", newError(KindValidation, "message is too long (max 10000 characters)")
	}
	return trimmed, nil
}

// SanitizeMetadata keeps the entries with a well-formed key and a string value
// of at most MaxMetadataValueLength characters. It never fails.
func SanitizeMetadata(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if !metadataKeyPattern.MatchString(k) {
			continue
		}
		s, ok := v.(string)
		if !ok || utf8.RuneCountInString(s) > MaxMetadataValueLength {
			continue
		}
		out[k] = s
	}
	return out
}
