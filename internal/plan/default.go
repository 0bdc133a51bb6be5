package plan

import "landgen/internal/schema"

// Reference names resolved by the engine when validating artifacts.
// Product-derived names resolve from the project parameters; a dependency
// step ID resolves to an excerpt of that step's accepted artifact.
const (
	RefProductName  = "product name"
	RefFirstFeature = "first feature"
)

// Markers shared by the TSX component schemas.
var (
	importMarkers = []string{"import "}
	exportMarkers = []string{"export default", "export function", "export const"}
	ctaMarkers    = []string{"<Button", "<button", "<a "}
)

const codeSuffix = "\n\nReturn the complete TypeScript/TSX code. Return only the code, with no commentary around it."

// DefaultPlan returns the standard landing-page generation plan.
//
// The order mirrors the essential-elements sequence the guidance document
// teaches: layout first, then the page sections top to bottom, then the
// composing page, stylesheet and package manifest. The final CTA depends on
// the hero (it echoes the hero's promise) and the page composition depends
// on every section it imports.
func DefaultPlan() *Plan {
	steps := []Step{
		{
			ID:       "layout",
			Title:    "Root layout",
			PathHint: "app/layout.tsx",
			Instruction: `Generate app/layout.tsx, the Next.js App Router root layout for {{.Params.ProjectName}}.

Define the HTML shell and page metadata (title and description) for {{.Params.ProductName}}: {{.Params.Description}}
Load a sensible default font and apply the global stylesheet.` + codeSuffix,
			Schema: schema.Schema{
				Name:      "layout",
				MinLength: 200,
				Sections: []schema.Section{
					{Name: "import", Markers: importMarkers},
					{Name: "export", Markers: exportMarkers},
					{Name: "metadata", Markers: []string{"metadata", "Metadata"}},
				},
			},
		},
		{
			ID:       "header",
			Title:    "Header",
			PathHint: "components/Header.tsx",
			Instruction: `Generate Header.tsx, the site header for {{.Params.ProductName}}.

Include the company logo (text logo is fine) and a navigation bar linking to the page sections (benefits, testimonials, FAQ). Mobile-first, brand color {{.Params.BrandColor}}.` + codeSuffix,
			Schema: schema.Schema{
				Name:      "header",
				MinLength: 200,
				Sections: []schema.Section{
					{Name: "import", Markers: importMarkers},
					{Name: "export", Markers: exportMarkers},
					{Name: "navigation", Markers: []string{"<nav", "<Nav"}},
				},
				References: []schema.Reference{{Name: RefProductName}},
			},
		},
		{
			ID:       "hero",
			Title:    "Hero section",
			PathHint: "components/Hero.tsx",
			Instruction: `Generate Hero.tsx, the hero section for {{.Params.ProductName}}.

Product: {{.Params.Description}}
Target audience: {{.Params.TargetAudience}}. Brand color: {{.Params.BrandColor}}.

It must include:
- An SEO-optimized H1 headline naming {{.Params.ProductName}}
- A clear supporting subtitle
- A primary call-to-action button (use the ShadCN Button component)
- Social proof (star rating, user count, or similar)` + codeSuffix,
			Schema: schema.Schema{
				Name:      "hero",
				MinLength: 300,
				Sections: []schema.Section{
					{Name: "headline", Markers: []string{"<h1"}},
					{Name: "call to action", Markers: ctaMarkers},
				},
				References: []schema.Reference{{Name: RefProductName}},
			},
		},
		{
			ID:       "media",
			Title:    "Media section",
			PathHint: "components/MediaSection.tsx",
			Instruction: `Generate MediaSection.tsx, a section presenting {{.Params.ProductName}} visually.

Show the product with an image or video placeholder and a short caption tying the visual back to the product promise.` + codeSuffix,
			Schema: schema.Schema{
				Name:      "media",
				MinLength: 200,
				Sections: []schema.Section{
					{Name: "export", Markers: exportMarkers},
					{Name: "media element", Markers: []string{"<img", "<Image", "<video", "<iframe"}},
				},
			},
		},
		{
			ID:       "benefits",
			Title:    "Benefits section",
			PathHint: "components/Benefits.tsx",
			Instruction: `Generate Benefits.tsx, the core benefits section for {{.Params.ProductName}}.

Present each of these features as a card (use the ShadCN Card component), with a benefit-oriented heading and one supporting sentence:
{{range .Params.Features}}- {{.}}
{{end}}` + codeSuffix,
			Schema: schema.Schema{
				Name:      "benefits",
				MinLength: 250,
				Sections: []schema.Section{
					{Name: "export", Markers: exportMarkers},
					{Name: "cards", Markers: []string{"<Card", "card"}},
				},
				References: []schema.Reference{{Name: RefFirstFeature}},
			},
		},
		{
			ID:       "testimonials",
			Title:    "Testimonials section",
			PathHint: "components/Testimonials.tsx",
			Instruction: `Generate Testimonials.tsx for {{.Params.ProductName}}.

Show four to six short customer testimonials appropriate for the target audience ({{.Params.TargetAudience}}), each with a name, role, and quote. Invent plausible placeholder content.` + codeSuffix,
			Schema: schema.Schema{
				Name:      "testimonials",
				MinLength: 250,
				Sections: []schema.Section{
					{Name: "export", Markers: exportMarkers},
				},
			},
		},
		{
			ID:       "faq",
			Title:    "FAQ section",
			PathHint: "components/FAQ.tsx",
			Instruction: `Generate FAQ.tsx for {{.Params.ProductName}}.

Answer five to ten frequently asked questions in an accordion (use the ShadCN Accordion component). Ground the questions in the product description: {{.Params.Description}}` + codeSuffix,
			Schema: schema.Schema{
				Name:      "faq",
				MinLength: 250,
				Sections: []schema.Section{
					{Name: "export", Markers: exportMarkers},
					{Name: "accordion", Markers: []string{"<Accordion", "accordion", "<details"}},
				},
			},
		},
		{
			ID:        "finalcta",
			Title:     "Final call to action",
			PathHint:  "components/FinalCTA.tsx",
			DependsOn: []string{"hero"},
			Instruction: `Generate FinalCTA.tsx, the closing call-to-action section for {{.Params.ProductName}}.

Echo the promise made by the hero section and drive the reader to act now. Name the product explicitly.

Hero section for reference:
{{index .Deps "hero"}}` + codeSuffix,
			Schema: schema.Schema{
				Name:      "finalcta",
				MinLength: 150,
				Sections: []schema.Section{
					{Name: "call to action", Markers: ctaMarkers},
				},
				References: []schema.Reference{{Name: RefProductName}},
			},
		},
		{
			ID:        "footer",
			Title:     "Footer",
			PathHint:  "components/Footer.tsx",
			DependsOn: []string{"header"},
			Instruction: `Generate Footer.tsx for {{.Params.ProductName}}.

Include contact information, legal page links (privacy, terms), and a copyright line. Keep the navigation consistent with the header:
{{index .Deps "header"}}` + codeSuffix,
			Schema: schema.Schema{
				Name:      "footer",
				MinLength: 200,
				Sections: []schema.Section{
					{Name: "export", Markers: exportMarkers},
					{Name: "contact", Markers: []string{"contact", "Contact", "mailto:"}},
				},
			},
		},
		{
			ID:       "page",
			Title:    "Page composition",
			PathHint: "app/page.tsx",
			DependsOn: []string{
				"header", "hero", "media", "benefits",
				"testimonials", "faq", "finalcta", "footer",
			},
			Instruction: `Generate app/page.tsx, the main page composing the already generated components.

Import Header, Hero, MediaSection, Benefits, Testimonials, FAQ, FinalCTA and Footer from components/ and render them in that order inside <main>.` + codeSuffix,
			Schema: schema.Schema{
				Name:      "page",
				MinLength: 200,
				Sections: []schema.Section{
					{Name: "Header import", Markers: []string{"Header"}},
					{Name: "Hero import", Markers: []string{"Hero"}},
					{Name: "MediaSection import", Markers: []string{"MediaSection"}},
					{Name: "Benefits import", Markers: []string{"Benefits"}},
					{Name: "Testimonials import", Markers: []string{"Testimonials"}},
					{Name: "FAQ import", Markers: []string{"FAQ"}},
					{Name: "FinalCTA import", Markers: []string{"FinalCTA"}},
					{Name: "Footer import", Markers: []string{"Footer"}},
				},
			},
		},
		{
			ID:       "globals",
			Title:    "Global stylesheet",
			PathHint: "app/globals.css",
			Instruction: `Generate app/globals.css with the Tailwind CSS directives and the global styles for the page, including CSS variables for the {{.Params.BrandColor}} brand palette.

Return only the CSS, with no commentary around it.`,
			Schema: schema.Schema{
				Name:      "globals",
				MinLength: 100,
				Sections: []schema.Section{
					{Name: "tailwind directives", Markers: []string{"@tailwind", "@import"}},
				},
			},
		},
		{
			ID:       "packagejson",
			Title:    "Package manifest",
			PathHint: "package.json",
			Instruction: `Generate package.json for the {{.Params.ProjectName}} project: Next.js 14+ with TypeScript, Tailwind CSS and the ShadCN UI dependencies, plus the standard dev/build/start scripts.

Return only the JSON, with no commentary around it.`,
			Schema: schema.Schema{
				Name:      "packagejson",
				MinLength: 80,
				Sections: []schema.Section{
					{Name: "name field", Markers: []string{`"name"`}},
					{Name: "scripts", Markers: []string{`"scripts"`}},
					{Name: "next dependency", Markers: []string{`"next"`}},
				},
			},
		},
	}

	p, err := NewPlan(steps)
	if err != nil {
		// The default plan is static; a construction failure is a programming
		// error caught by the package tests.
		panic(err)
	}
	return p
}
