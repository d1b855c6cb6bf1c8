package dataroom

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"dataroom/internal/config"
	"dataroom/internal/domain"
)

var noSlashes = regexp.MustCompile(`^[^/]+$`)

// validateName trims name and checks it against the shared naming rules.
// kind is "folder" or "file" and only shapes the error message.
func validateName(kind, name string, maxLength int) (string, error) {
	name = strings.TrimSpace(name)

	err := validation.Validate(name,
		validation.Required.Error(fmt.Sprintf("%s name is required", kind)),
		validation.By(validUTF8(kind)),
		validation.RuneLength(1, maxLength).Error(fmt.Sprintf("%s name must be at most %d characters", kind, maxLength)),
		validation.Match(noSlashes).Error(fmt.Sprintf("%s name cannot contain slashes", kind)),
		validation.By(noControlCharacters(kind)),
	)
	if err != nil {
		return "", &domain.ValidationError{Message: err.Error()}
	}
	return name, nil
}

func validateFolderName(name string) (string, error) {
	return validateName("folder", name, config.MaxFolderNameLength)
}

func validateFileName(name string) (string, error) {
	return validateName("file", name, config.MaxFileNameLength)
}

func validUTF8(kind string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if !utf8.ValidString(s) {
			return errors.New(kind + " name must be valid UTF-8")
		}
		return nil
	}
}

func noControlCharacters(kind string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		for _, r := range s {
			if unicode.IsControl(r) {
				return errors.New(kind + " name cannot contain control characters")
			}
		}
		return nil
	}
}

// sanitizeFilename reduces a client-supplied filename to a safe display name:
// directory parts are dropped and control characters removed.
func sanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "\\", "/")
	filename = path.Base(filename)
	if filename == "." || filename == ".." || filename == "/" {
		return ""
	}

	filename = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, filename)

	return strings.TrimSpace(filename)
}
