package security

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// Safe patterns for validation
	projectPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)
	domainPattern  = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*(\.[a-z0-9][a-z0-9-]*)*\.test$`)
)

// ValidateProjectName ensures a project folder name is safe for use in
// domains, file names and Apache directives.
func ValidateProjectName(name string) error {
	if name == "" {
		return fmt.Errorf("project name cannot be empty")
	}
	if strings.HasPrefix(name, "-") || strings.HasPrefix(name, ".") {
		return fmt.Errorf("project name cannot start with '-' or '.'")
	}
	if !projectPattern.MatchString(name) {
		return fmt.Errorf("project name contains invalid characters (allowed: letters, digits, '_', '-', '.')")
	}
	return nil
}

// ValidateDomain ensures a domain is a well-formed .test hostname.
// The domain becomes a file name under the Apache config directory and a
// line in the hosts file, so anything outside this pattern is rejected.
func ValidateDomain(domain string) error {
	if domain == "" {
		return fmt.Errorf("domain cannot be empty")
	}
	if !domainPattern.MatchString(domain) {
		return fmt.Errorf("domain %q is not a valid .test hostname", domain)
	}
	return nil
}

// ValidateAbsolutePath ensures a path is absolute and free of traversal
// segments before it is written into an Apache directive.
func ValidateAbsolutePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if !filepath.IsAbs(path) {
		return fmt.Errorf("path must be absolute: %s", path)
	}
	if path != filepath.Clean(path) {
		return fmt.Errorf("path contains redundant or traversal segments: %s", path)
	}
	return nil
}
