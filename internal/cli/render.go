package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"landgen/internal/engine"
	"landgen/internal/params"
	"landgen/internal/report"
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	styleMuted   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleWarning = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	styleBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")).
			Padding(0, 1)
)

// renderer turns engine progress events and the final report into terminal
// output. Events from concurrent steps are serialized by a mutex so lines
// never interleave mid-write.
type renderer struct {
	mu    sync.Mutex
	out   io.Writer
	total int
	done  int
}

func newRenderer(out io.Writer, total int) *renderer {
	return &renderer{out: out, total: total}
}

// Banner prints the run header.
func (r *renderer) Banner(p params.Parameters, provider, model string) {
	header := fmt.Sprintf("%s\n%s",
		styleTitle.Render("landgen — "+p.ProductName),
		styleMuted.Render(fmt.Sprintf("%d steps · %s/%s", r.total, provider, model)))
	fmt.Fprintln(r.out, styleBox.Render(header))
}

// Progress renders one engine event as a line.
func (r *renderer) Progress(ev engine.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.State {
	case engine.StateAttempting:
		fmt.Fprintf(r.out, "%s %s %s\n",
			styleMuted.Render("●"),
			ev.Title,
			styleMuted.Render(fmt.Sprintf("attempt %d/%d", ev.Attempt, ev.MaxAttempts)))
	case engine.StateRetrying:
		reason := "provider error"
		if len(ev.Violations) > 0 {
			reason = strings.Join(ev.Violations, "; ")
		}
		fmt.Fprintf(r.out, "%s %s %s\n",
			styleWarning.Render("↻"),
			ev.Title,
			styleMuted.Render(reason))
	case engine.StateAccepted:
		r.done++
		fmt.Fprintf(r.out, "%s %s %s\n",
			styleSuccess.Render("✓"),
			ev.Title,
			styleMuted.Render(fmt.Sprintf("[%d/%d]", r.done, r.total)))
	case engine.StateFailed:
		r.done++
		detail := ""
		if ev.Err != nil {
			detail = ev.Err.Error()
		} else if len(ev.Violations) > 0 {
			detail = strings.Join(ev.Violations, "; ")
		}
		fmt.Fprintf(r.out, "%s %s %s\n",
			styleError.Render("✗"),
			ev.Title,
			styleMuted.Render(detail))
	case engine.StateCancelled:
		r.done++
		fmt.Fprintf(r.out, "%s %s %s\n",
			styleMuted.Render("○"),
			ev.Title,
			styleMuted.Render("cancelled"))
	}
}

// Summary prints the final run summary box.
func (r *renderer) Summary(rep report.Report, outDir string) {
	var sb strings.Builder

	switch rep.Outcome {
	case report.OutcomeAccepted:
		sb.WriteString(styleSuccess.Render("✓ Generation complete"))
	case report.OutcomeCancelled:
		sb.WriteString(styleWarning.Render("○ Generation interrupted"))
	default:
		sb.WriteString(styleError.Render("✗ Generation finished with failures"))
	}
	sb.WriteString("\n\n")

	for _, s := range rep.Steps {
		var mark string
		switch s.Outcome {
		case report.OutcomeAccepted:
			mark = styleSuccess.Render("✓")
		case report.OutcomeCancelled:
			mark = styleMuted.Render("○")
		default:
			mark = styleError.Render("✗")
		}
		fmt.Fprintf(&sb, "%s %-22s %s\n", mark, s.Title,
			styleMuted.Render(fmt.Sprintf("%d attempt(s), %s",
				len(s.Attempts), s.Duration.Round(time.Millisecond))))
	}

	fmt.Fprintf(&sb, "\n%s\n", styleMuted.Render(fmt.Sprintf(
		"accepted %d · failed %d · cancelled %d · %s",
		rep.Accepted, rep.Failed, rep.Cancelled, rep.Elapsed.Round(time.Millisecond))))
	fmt.Fprintf(&sb, "%s", styleMuted.Render("output: "+outDir))

	fmt.Fprintln(r.out, styleBox.Render(sb.String()))
}
