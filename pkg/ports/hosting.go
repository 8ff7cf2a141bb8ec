package ports

import (
	"context"

	"github.com/aretw0/caravel/pkg/domain"
)

// HostingClient talks to the platform that owns change requests, labels and
// release records.
type HostingClient interface {
	// FindOpenReleaseRequest returns the open request whose head branch
	// starts with branchPrefix, or nil if none exists.
	FindOpenReleaseRequest(ctx context.Context, branchPrefix string) (*domain.OutgoingRequest, error)

	CreateRequest(ctx context.Context, title, body, branch string, labels []string) (*domain.OutgoingRequest, error)

	UpdateRequest(ctx context.Context, number int, title, body string, labels []string) error

	// EnsureLabelsExist creates any missing labels. A rejected label is
	// reported as a *domain.LabelError.
	EnsureLabelsExist(ctx context.Context, names []string) error

	// CreateRelease publishes a release record for an existing tag.
	CreateRelease(ctx context.Context, tag, name, body string) error

	// CompareURL renders the platform's compare URL between two tags.
	CompareURL(prevTag, nextTag string) string

	// TagURL renders the platform's page for a single release tag.
	TagURL(tag string) string
}
