// Package writer persists run outputs: accepted artifacts, the project
// README, and the generation report.
//
// The writer owns a single output directory and creates nested directories
// on demand, so plan path hints like "app/layout.tsx" land where a Next.js
// project expects them.
package writer

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"landgen/internal/params"
	"landgen/internal/report"
)

// Writer persists artifacts under a single output directory.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// New creates a [Writer] rooted at dir, creating it if necessary.
func New(dir string, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return &Writer{dir: dir, logger: logger}, nil
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// WriteArtifact writes an accepted artifact to its path hint, relative to
// the output directory. Path hints that escape the output directory are
// rejected.
func (w *Writer) WriteArtifact(pathHint, content string) error {
	if pathHint == "" {
		return fmt.Errorf("artifact has no output path")
	}
	clean := filepath.Clean(pathHint)
	if !filepath.IsLocal(clean) {
		return fmt.Errorf("artifact path %q escapes the output directory", pathHint)
	}
	full := filepath.Join(w.dir, clean)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", pathHint, err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", pathHint, err)
	}
	w.logger.Info("wrote artifact", "path", clean, "bytes", len(content))
	return nil
}

// WriteReadme writes a README.md describing the generated project.
func (w *Writer) WriteReadme(p params.Parameters) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", p.ProjectName)
	fmt.Fprintf(&sb, "Landing page for **%s**.\n\n", p.ProductName)
	fmt.Fprintf(&sb, "%s\n\n", p.Description)
	fmt.Fprintf(&sb, "Target audience: %s.\n\n", p.TargetAudience)
	if len(p.Features) > 0 {
		sb.WriteString("## Features\n\n")
		for _, f := range p.Features {
			fmt.Fprintf(&sb, "- %s\n", f)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("## Getting started\n\n")
	sb.WriteString("```bash\nnpm install\nnpm run dev\n```\n\n")
	sb.WriteString("Open http://localhost:3000 to view the page.\n")

	return w.WriteArtifact("README.md", sb.String())
}

// WriteReport persists the generation report as indented JSON under the
// given file name.
func (w *Writer) WriteReport(name string, rep report.Report) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return w.WriteArtifact(name, string(data)+"\n")
}
