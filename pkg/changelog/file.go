package changelog

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/aretw0/caravel/pkg/domain"
)

// FileName is the per-package changelog file.
const FileName = "CHANGELOG.md"

const header = `# Changelog

All notable changes to this project will be documented in this file.
`

var versionHeaderRe = regexp.MustCompile(`(?m)^## \[([^]\s]+)\]`)

// Load reads a changelog file; a missing file is an empty changelog.
func Load(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(raw), nil
}

// Write saves the changelog content.
func Write(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// HasVersion reports whether the changelog already contains a section
// header for the given version.
func HasVersion(content, version string) bool {
	for _, m := range versionHeaderRe.FindAllStringSubmatch(content, -1) {
		if m[1] == version {
			return true
		}
	}
	return false
}

// Insert prepends the section to the changelog, newest first, creating the
// standard header when the file was empty. Existing sections are never
// rewritten.
func Insert(content string, section domain.ChangelogSection) string {
	if strings.TrimSpace(content) == "" {
		return header + "\n" + section.Body + "\n"
	}
	// New sections go immediately above the first existing version header;
	// anything before it (title, preamble, an Unreleased stub) stays put.
	loc := versionHeaderRe.FindStringIndex(content)
	if loc == nil {
		return strings.TrimRight(content, "\n") + "\n\n" + section.Body + "\n"
	}
	return content[:loc[0]] + section.Body + "\n\n" + content[loc[0]:]
}

// SectionFor extracts the body of the section for one version, without its
// trailing blank lines. It returns ok=false when the version is absent.
func SectionFor(content, version string) (string, bool) {
	matches := versionHeaderRe.FindAllStringSubmatchIndex(content, -1)
	for i, m := range matches {
		if content[m[2]:m[3]] != version {
			continue
		}
		end := len(content)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		return strings.TrimSpace(content[m[0]:end]), true
	}
	return "", false
}
