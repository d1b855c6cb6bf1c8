package config

import (
	_ "embed"
	"fmt"
	"mime"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed uploads.yaml
var defaultUploadPolicy []byte

// UploadPolicy bounds what the file upload endpoint accepts
type UploadPolicy struct {
	MaxBytes         int64    `yaml:"max_bytes"`
	SniffBytes       int      `yaml:"sniff_bytes"`
	AllowedMimeTypes []string `yaml:"allowed_mime_types"`
}

// DefaultUploadPolicy returns the policy compiled into the binary
func DefaultUploadPolicy() (*UploadPolicy, error) {
	return ParseUploadPolicy(defaultUploadPolicy)
}

// ParseUploadPolicy decodes a YAML policy document
func ParseUploadPolicy(data []byte) (*UploadPolicy, error) {
	policy := &UploadPolicy{
		MaxBytes:   DefaultMaxUploadBytes,
		SniffBytes: DefaultSniffBytes,
	}
	if err := yaml.Unmarshal(data, policy); err != nil {
		return nil, fmt.Errorf("parse upload policy: %w", err)
	}
	for i, mt := range policy.AllowedMimeTypes {
		policy.AllowedMimeTypes[i] = NormalizeMimeType(mt)
	}
	return policy, policy.Validate()
}

// Validate checks the policy is usable
func (p *UploadPolicy) Validate() error {
	if p.MaxBytes <= 0 {
		return fmt.Errorf("upload policy: max_bytes must be positive")
	}
	if p.SniffBytes <= 0 {
		return fmt.Errorf("upload policy: sniff_bytes must be positive")
	}
	if len(p.AllowedMimeTypes) == 0 {
		return fmt.Errorf("upload policy: at least one allowed mime type is required")
	}
	return nil
}

// Allows reports whether mimeType is on the allow-list.
// Parameters such as charset are ignored.
func (p *UploadPolicy) Allows(mimeType string) bool {
	normalized := NormalizeMimeType(mimeType)
	if normalized == "" {
		return false
	}
	for _, allowed := range p.AllowedMimeTypes {
		if NormalizeMimeType(allowed) == normalized {
			return true
		}
	}
	return false
}

// NormalizeMimeType lowercases a media type and strips its parameters
func NormalizeMimeType(mimeType string) string {
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		return ""
	}
	if mediaType, _, err := mime.ParseMediaType(mimeType); err == nil {
		return mediaType
	}
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
