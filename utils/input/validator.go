package input

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Common file extensions
var (
	DatasetExtensions = []string{
		".csv",
		".txt",
	}

	DocumentExtensions = []string{
		".html",
		".htm",
	}
)

// Validator validates input paths
type Validator struct {
	allowedExtensions []string
}

// NewValidator creates a validator accepting the given extensions
func NewValidator(extensions []string) *Validator {
	return &Validator{
		allowedExtensions: append([]string{}, extensions...),
	}
}

// ValidateFileExtension checks that a local file has an allowed extension.
// Standard input and URLs are not checked.
func (v *Validator) ValidateFileExtension(path string) error {
	if path == StdinPath || IsURL(path) {
		return nil
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return fmt.Errorf("file must have an extension (one of %s)", strings.Join(v.allowedExtensions, ", "))
	}

	for _, allowedExt := range v.allowedExtensions {
		if ext == allowedExt {
			return nil
		}
	}

	return fmt.Errorf("file extension %s is not allowed (expected one of %s)", ext, strings.Join(v.allowedExtensions, ", "))
}
