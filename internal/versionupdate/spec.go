package versionupdate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// specVersion matches a `version = '...'` assignment that is not part of a
// longer identifier such as required_ruby_version.
var specVersion = regexp.MustCompile(`(^|\W)version(.*)=(.*)['"]`)

// SetSpecVersion rewrites the version assignment in a gemspec or podspec.
// It reports whether anything changed.
func SetSpecVersion(path, version string) (bool, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- configured spec path
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	updated := specVersion.ReplaceAllString(string(data), "${1}version     = '"+version+"'")
	if updated == string(data) {
		return false, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(path, []byte(updated), info.Mode().Perm()); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

// FindGemspec returns the first *.gemspec in root, or "" when there is none.
func FindGemspec(root string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(root, "*.gemspec"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", nil
	}
	return matches[0], nil
}
