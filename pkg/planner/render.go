package planner

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/aretw0/caravel/pkg/domain"
)

// renderTitle produces the request title. With no configured template the
// default mirrors the classic release tooling shape: "chore: release vX"
// when every planned package lands on the same version, plain
// "chore: release" otherwise.
func (p *Planner) renderTitle(decisions []domain.ReleaseDecision) (string, error) {
	if p.templates.Title != "" {
		return renderTemplate("pr_name", p.templates.Title, templateContext(decisions, nil))
	}
	common := ""
	for i, d := range decisions {
		v := d.Next.String()
		if i == 0 {
			common = v
		} else if v != common {
			return "chore: release", nil
		}
	}
	if common == "" {
		return "chore: release", nil
	}
	return fmt.Sprintf("chore: release v%s", common), nil
}

func (p *Planner) renderBody(decisions []domain.ReleaseDecision, sections map[string]domain.ChangelogSection) (string, error) {
	if p.templates.Body != "" {
		return renderTemplate("pr_body", p.templates.Body, templateContext(decisions, sections))
	}
	return defaultBody(decisions, sections), nil
}

// templateContext builds the data exposed to user templates. Per-release
// fields are always present; the bare package/version scalars exist only in
// a single-package plan, so referencing them elsewhere fails the render
// (missingkey=error) instead of silently printing garbage.
func templateContext(decisions []domain.ReleaseDecision, sections map[string]domain.ChangelogSection) map[string]any {
	releases := make([]map[string]any, 0, len(decisions))
	names := make([]string, 0, len(decisions))
	for _, d := range decisions {
		names = append(names, d.Package)
		title, notes := splitSection(sections, d.Package)
		releases = append(releases, map[string]any{
			"package":          d.Package,
			"previous_version": d.Previous.String(),
			"next_version":     d.Next.String(),
			"compat":           d.Compat.Status.String(),
			"breaking":         d.Compat.Status == domain.CompatBreaking,
			"title":            title,
			"changelog":        notes,
		})
	}
	ctx := map[string]any{
		"releases":      releases,
		"packages":      names,
		"package_count": len(decisions),
	}
	if len(decisions) == 1 {
		ctx["package"] = decisions[0].Package
		ctx["version"] = decisions[0].Next.String()
	}
	return ctx
}

// splitSection separates a changelog section into its header text (without
// the leading "## ") and the categorized notes below it.
func splitSection(sections map[string]domain.ChangelogSection, pkg string) (title, notes string) {
	sec, ok := sections[pkg]
	if !ok {
		return "", ""
	}
	head, rest, found := strings.Cut(sec.Body, "\n")
	if !found {
		return strings.TrimPrefix(head, "## "), ""
	}
	return strings.TrimPrefix(head, "## "), strings.TrimSpace(rest)
}

func renderTemplate(name, text string, ctx map[string]any) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", &domain.TemplateError{Name: name, Err: err}
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, ctx); err != nil {
		return "", &domain.TemplateError{Name: name, Err: err}
	}
	return strings.TrimSpace(sb.String()), nil
}

// defaultBody renders the built-in request body: the release list, any
// breaking-change reports, and the collapsed changelog preview.
func defaultBody(decisions []domain.ReleaseDecision, sections map[string]domain.ChangelogSection) string {
	var sb strings.Builder
	sb.WriteString("## 🤖 New release\n\n")
	for _, d := range decisions {
		if d.FirstRelease {
			fmt.Fprintf(&sb, "* `%s`: %s%s\n", d.Package, d.Next, compatNote(d))
		} else {
			fmt.Fprintf(&sb, "* `%s`: %s -> %s%s\n", d.Package, d.Previous, d.Next, compatNote(d))
		}
	}

	for _, d := range decisions {
		if d.Compat.Status == domain.CompatBreaking && d.Compat.Detail != "" {
			fmt.Fprintf(&sb, "\n### ⚠ `%s` breaking changes\n\n```text\n%s\n```\n",
				d.Package, strings.TrimSpace(d.Compat.Detail))
		}
	}

	sb.WriteString("\n<details><summary><i><b>Changelog</b></i></summary><p>\n\n")
	multi := len(decisions) > 1
	for _, d := range decisions {
		sec, ok := sections[d.Package]
		if !ok {
			continue
		}
		if multi {
			fmt.Fprintf(&sb, "## `%s`\n\n", d.Package)
		}
		fmt.Fprintf(&sb, "<blockquote>\n\n%s\n</blockquote>\n\n", sec.Body)
	}
	sb.WriteString("\n</p></details>\n\n---\n")
	sb.WriteString("This PR was generated with [caravel](https://github.com/aretw0/caravel).")
	return sb.String()
}

func compatNote(d domain.ReleaseDecision) string {
	switch d.Compat.Status {
	case domain.CompatCompatible:
		return " (✓ API compatible changes)"
	case domain.CompatBreaking:
		return " (⚠ API breaking changes)"
	default:
		return ""
	}
}
