// Package planner assembles the workspace-wide release plan, renders the
// outgoing request title and body, and reconciles the plan against any
// request that is already open.
package planner

import (
	"fmt"
	"time"

	"github.com/aretw0/caravel/pkg/domain"
)

// Templates are the configurable request templates. Empty fields fall back
// to the built-in rendering.
type Templates struct {
	Title string
	Body  string
}

// Planner turns decisions and changelog sections into a ReleasePlan.
type Planner struct {
	templates    Templates
	labels       []string
	branchPrefix string
	now          func() time.Time
}

// New creates a planner. branchPrefix names the engine-owned release
// branches and is used to find a previously opened request.
func New(templates Templates, labels []string, branchPrefix string, now func() time.Time) *Planner {
	if now == nil {
		now = time.Now
	}
	return &Planner{templates: templates, labels: labels, branchPrefix: branchPrefix, now: now}
}

// Plan renders the aggregate title, body and label set. Label validation
// failures and template failures are fatal for the planning step.
func (p *Planner) Plan(decisions []domain.ReleaseDecision, sections map[string]domain.ChangelogSection) (*domain.ReleasePlan, error) {
	if err := ValidateLabels(p.labels); err != nil {
		return nil, err
	}

	title, err := p.renderTitle(decisions)
	if err != nil {
		return nil, err
	}
	body, err := p.renderBody(decisions, sections)
	if err != nil {
		return nil, err
	}

	return &domain.ReleasePlan{
		Decisions:  decisions,
		Changelogs: sections,
		Title:      title,
		Body:       body,
		Labels:     append([]string(nil), p.labels...),
	}, nil
}

// ActionKind says what reconciliation decided to do with the plan.
type ActionKind int

const (
	// ActionNoOp means nothing needs to change. Any open request is left
	// alone; closing it is the caller's business, not the planner's.
	ActionNoOp ActionKind = iota
	ActionCreate
	ActionUpdate
)

func (k ActionKind) String() string {
	switch k {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	default:
		return "no-op"
	}
}

// Action is the reconciliation outcome. For Update, Request carries the
// identity and branch of the existing request with the recomputed content
// and the unioned label set; for Create it carries the new branch name.
type Action struct {
	Kind    ActionKind
	Request domain.OutgoingRequest
}

// Reconcile compares the freshly computed plan with the currently open
// request, if any. The existing request's identity and branch are always
// preserved on update, and labels are only ever added, never removed, so
// reruns converge instead of flapping.
func (p *Planner) Reconcile(plan *domain.ReleasePlan, existing *domain.OutgoingRequest) Action {
	if len(plan.Decisions) == 0 {
		return Action{Kind: ActionNoOp}
	}
	if existing != nil && existing.Open {
		return Action{
			Kind: ActionUpdate,
			Request: domain.OutgoingRequest{
				Number: existing.Number,
				Branch: existing.Branch,
				Title:  plan.Title,
				Body:   plan.Body,
				Labels: unionLabels(existing.Labels, plan.Labels),
			},
		}
	}
	return Action{
		Kind: ActionCreate,
		Request: domain.OutgoingRequest{
			Branch: fmt.Sprintf("%s%d", p.branchPrefix, p.now().Unix()),
			Title:  plan.Title,
			Body:   plan.Body,
			Labels: plan.Labels,
		},
	}
}

// unionLabels keeps the already-applied labels in place and appends the
// configured ones that are missing.
func unionLabels(existing, configured []string) []string {
	out := append([]string(nil), existing...)
	seen := make(map[string]bool, len(existing))
	for _, l := range existing {
		seen[l] = true
	}
	for _, l := range configured {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}
