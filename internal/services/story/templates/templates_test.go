package templates

import (
	"context"
	"strings"
	"testing"

	"github.com/louisbranch/budgetstory/internal/platform/i18n/catalog"
	"github.com/louisbranch/budgetstory/internal/services/story/dataset"
	"github.com/louisbranch/budgetstory/internal/services/story/layout"
	"github.com/louisbranch/budgetstory/internal/services/story/viewport"
	"golang.org/x/text/language"
)

func testPage() PageData {
	cfg := viewport.ConfigFor(1280, 800)
	records := []layout.Record{
		{Year: 1965, Text: "Roads.", PrimaryType: layout.TypePromise, PrimaryValue: layout.ValueCitizen},
		{Year: 1980, Text: "Taxes.", PrimaryType: layout.TypeObligation, PrimaryValue: layout.ValueFirm},
	}
	return PageData{
		Lang:    "en-US",
		Printer: catalog.Default().Printer(language.AmericanEnglish),
		Sections: []dataset.Section{
			{ID: "turning_point", YearRange: [2]int{1985, 1995}, Title: "Recession <1980s>", Reflection: "One.\n\nTwo."},
			{ID: "explore", YearRange: [2]int{1965, 2026}, Type: "explore", Title: "Explore"},
		},
		NavIDs: []string{"turning_point", "explore"},
		Layout: layout.Compute(records, cfg),
		Config: cfg,
		Script: "/static/story.js",
	}
}

func TestPageRendersStepsAndChart(t *testing.T) {
	var b strings.Builder
	if err := Page(testPage()).Render(context.Background(), &b); err != nil {
		t.Fatalf("Page() error = %v", err)
	}
	got := b.String()
	for _, want := range []string{
		`<html lang="en-US">`,
		`data-step="turning_point" data-year-start="1985" data-year-end="1995"`,
		`class="step step-explore"`,
		`Recession &lt;1980s&gt;`,
		`<p class="reflection">Two.</p>`,
		`class="dot" data-seq="1" data-year="1980" data-category="obligation_firm"`,
		`fill="#6B8CAE"`,
		`Promises to you`,
		`2 paragraphs`,
		`href="#explore"`,
		`src="/static/story.js"`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("page missing %q", want)
		}
	}
}

func TestLegendGroupsCategoriesUnderHeadings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		lang language.Tag
		want []string
	}{
		{name: "english", lang: language.AmericanEnglish, want: []string{"Promises", "Promises to you", "Promises to firms", "Asks", "Asks of you", "Asks of firms"}},
		{name: "portuguese", lang: language.BrazilianPortuguese, want: []string{"Promessas", "Promessas a você", "Promessas às empresas", "Pedidos", "Pedidos a você", "Pedidos às empresas"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var b strings.Builder
			if err := Legend(catalog.Default().Printer(tc.lang)).Render(context.Background(), &b); err != nil {
				t.Fatalf("Legend() error = %v", err)
			}
			got := b.String()
			if n := strings.Count(got, `class="legend-heading"`); n != 2 {
				t.Fatalf("legend headings = %d, want 2", n)
			}
			// Each label must follow the previous one: headings precede their items.
			rest := got
			for _, label := range tc.want {
				idx := strings.Index(rest, ">"+label+"<")
				if idx < 0 {
					t.Fatalf("legend missing %q in order: %s", label, got)
				}
				rest = rest[idx+len(label):]
			}
		})
	}
}

func TestChartHidesAnnotationsOnMobile(t *testing.T) {
	data := testPage()
	data.Config = viewport.ConfigFor(400, 700)
	data.Layout = layout.Compute(data.Layout.Records, data.Config)

	var b strings.Builder
	if err := Chart(data.Layout, data.Config).Render(context.Background(), &b); err != nil {
		t.Fatalf("Chart() error = %v", err)
	}
	if strings.Contains(b.String(), "year-label") {
		t.Fatal("mobile chart rendered year labels")
	}
	if !strings.Contains(b.String(), `data-tier="small-mobile"`) {
		t.Fatalf("chart tier missing: %s", b.String())
	}
}

func TestChartEmptyLayout(t *testing.T) {
	var b strings.Builder
	cfg := viewport.ConfigFor(1280, 800)
	if err := Chart(layout.Compute(nil, cfg), cfg).Render(context.Background(), &b); err != nil {
		t.Fatalf("Chart() error = %v", err)
	}
	got := b.String()
	if strings.Contains(got, `class="dot"`) || strings.Contains(got, "baseline") {
		t.Fatalf("empty chart rendered records: %s", got)
	}
	if !strings.Contains(got, `data-status="empty"`) {
		t.Fatalf("empty chart status missing: %s", got)
	}
}
