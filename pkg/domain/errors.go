package domain

import (
	"fmt"
	"strings"
)

// CycleError reports a dependency cycle in the workspace graph. It aborts
// the whole run: no plan is meaningful over a cyclic graph.
type CycleError struct {
	// Cycle lists the package names forming the cycle, in edge order.
	Cycle []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// DetectionError reports unreadable path metadata for one package. It is
// logged and the path skipped; detection for the package continues.
type DetectionError struct {
	Package string
	Path    string
	Err     error
}

func (e *DetectionError) Error() string {
	return fmt.Sprintf("package %s: cannot resolve %s: %v", e.Package, e.Path, e.Err)
}

func (e *DetectionError) Unwrap() error { return e.Err }

// CompatibilityCheckError reports a failed compatibility check. It degrades
// the report to not-checked and becomes a warning, never a fatal error.
type CompatibilityCheckError struct {
	Package string
	Err     error
}

func (e *CompatibilityCheckError) Error() string {
	return fmt.Sprintf("compatibility check for %s failed: %v", e.Package, e.Err)
}

func (e *CompatibilityCheckError) Unwrap() error { return e.Err }

// TemplateError reports a failed title or body rendering. It is fatal for
// the planning step: no request is created or updated with malformed content.
type TemplateError struct {
	// Name is the template that failed ("pr_name" or "pr_body").
	Name string
	Err  error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("failed to render %s: %v", e.Name, e.Err)
}

func (e *TemplateError) Unwrap() error { return e.Err }

// LabelError reports a configured label violating the hosting platform's
// rules. It is fatal for the planning step.
type LabelError struct {
	Label  string
	Reason string
}

func (e *LabelError) Error() string {
	return fmt.Sprintf("failed to add label %q: %s", e.Label, e.Reason)
}

// VersionControlError wraps a failed version-control operation.
type VersionControlError struct {
	Op  string
	Err error
}

func (e *VersionControlError) Error() string {
	return fmt.Sprintf("git %s: %v", e.Op, e.Err)
}

func (e *VersionControlError) Unwrap() error { return e.Err }
