package planner

import (
	"strings"

	"github.com/aretw0/caravel/pkg/domain"
)

// maxLabelLength is the longest label name git hosting providers accept.
const maxLabelLength = 50

// ValidateLabels checks the configured label set before any label creation
// is requested. The first violation fails the whole planning step with a
// *domain.LabelError naming the label and the rule it broke.
func ValidateLabels(labels []string) error {
	seen := make(map[string]bool, len(labels))
	for _, label := range labels {
		switch {
		case label == "":
			return &domain.LabelError{Label: label, Reason: "empty labels are not allowed"}
		case strings.TrimSpace(label) != label:
			return &domain.LabelError{Label: label, Reason: "leading or trailing whitespace is not allowed"}
		case len(label) > maxLabelLength:
			return &domain.LabelError{Label: label, Reason: "it exceeds maximum length of 50 characters"}
		case seen[label]:
			return &domain.LabelError{Label: label, Reason: "duplicate labels are not allowed"}
		}
		seen[label] = true
	}
	return nil
}
