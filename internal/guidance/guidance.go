// Package guidance loads the static guidance documents and shapes them into
// the fixed system-context string reused by every generation step.
//
// The guidance directory follows the landing-page-guide skill layout: a
// SKILL.md entry document plus optional reference material under
// references/. The documents are read once per run and cached inside the
// returned [Context]; the engine treats the result as an opaque blob.
package guidance

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// guidanceFiles maps section names to their paths relative to the guidance
// directory. MAIN is required; the reference sections are optional.
var guidanceFiles = []struct {
	name     string
	path     string
	required bool
}{
	{"MAIN", "SKILL.md", true},
	{"ELEMENTS", filepath.Join("references", "11-essential-elements.md"), false},
	{"COMPONENTS", filepath.Join("references", "component-examples.md"), false},
}

const systemPreamble = `You are an expert generating professional landing pages with Next.js 14+ and ShadCN UI.

Always follow these rules:

1. Essential elements: every landing page includes the 11 essential landing-page elements from the guide below.
2. Tech stack: Next.js 14+ App Router, TypeScript, Tailwind CSS, ShadCN UI.
3. Code quality: production-level, clean, optimized code.
4. Accessibility: comply with WCAG standards.
5. Responsive: mobile-first design.

You generate one component per request. When asked to correct violations, fix exactly what is listed and preserve everything else.`

// Context is the assembled system-context for a run.
type Context struct {
	// SystemPrompt is the full system-context string sent with every
	// generation request.
	SystemPrompt string

	// Sections lists the guidance section names that were loaded, in order.
	Sections []string
}

// Loader reads guidance documents from a directory.
type Loader struct {
	dir    string
	logger *slog.Logger
}

// NewLoader creates a [Loader] for the given guidance directory.
func NewLoader(dir string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{dir: dir, logger: logger}
}

// Load reads the guidance documents and folds them into a [Context].
//
// Missing optional reference files are logged and skipped; a guidance
// directory with no readable documents at all is an error, since every
// generation step depends on the guide.
func (l *Loader) Load() (*Context, error) {
	var sb strings.Builder
	var loaded []string

	for _, gf := range guidanceFiles {
		path := filepath.Join(l.dir, gf.path)
		data, err := os.ReadFile(path)
		if err != nil {
			if gf.required {
				return nil, fmt.Errorf("failed to read guidance document %s: %w", path, err)
			}
			l.logger.Warn("guidance reference not found, skipping", "path", path)
			continue
		}
		fmt.Fprintf(&sb, "## %s\n\n%s\n\n", gf.name, strings.TrimSpace(string(data)))
		loaded = append(loaded, gf.name)
		l.logger.Info("loaded guidance document", "section", gf.name, "bytes", len(data))
	}

	if len(loaded) == 0 {
		return nil, fmt.Errorf("no guidance documents found in %s", l.dir)
	}

	return &Context{
		SystemPrompt: systemPreamble + "\n\n# Landing Page Guide\n\n" + sb.String(),
		Sections:     loaded,
	}, nil
}
