package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/aretw0/caravel"
	"github.com/aretw0/caravel/pkg/domain"
)

// summary is the machine-readable stdout contract of the plan command.
type summary struct {
	PRs []summaryPR `json:"prs"`
}

type summaryPR struct {
	HeadBranch string           `json:"head_branch"`
	BaseBranch string           `json:"base_branch"`
	HTMLURL    string           `json:"html_url"`
	Number     int              `json:"number"`
	Releases   []summaryRelease `json:"releases"`
}

type summaryRelease struct {
	PackageName string `json:"package_name"`
	Version     string `json:"version"`
}

func printSummary(result *caravel.PlanResult, request *domain.OutgoingRequest) error {
	out := summary{PRs: []summaryPR{}}
	if request != nil {
		pr := summaryPR{
			HeadBranch: request.Branch,
			BaseBranch: result.BaseBranch,
			HTMLURL:    request.HTMLURL,
			Number:     request.Number,
			Releases:   []summaryRelease{},
		}
		for _, d := range result.Plan.Decisions {
			pr.Releases = append(pr.Releases, summaryRelease{
				PackageName: d.Package,
				Version:     d.Next.String(),
			})
		}
		out.PRs = append(out.PRs, pr)
	}
	enc := json.NewEncoder(os.Stdout)
	return enc.Encode(out)
}

// printPreview renders the would-be request body. On a terminal the
// markdown goes through glamour; piped output stays plain.
func printPreview(result *caravel.PlanResult) error {
	body := fmt.Sprintf("# %s\n\n%s\n", result.Plan.Title, result.Plan.Body)

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Print(body)
		return nil
	}

	style := glamour.WithStandardStyle("dark")
	if termenv.DefaultOutput().Profile == termenv.Ascii {
		style = glamour.WithStandardStyle("notty")
	}
	renderer, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(100))
	if err != nil {
		return err
	}
	rendered, err := renderer.Render(body)
	if err != nil {
		return err
	}
	fmt.Print(rendered)
	return nil
}
