package templates

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/louisbranch/budgetstory/internal/platform/i18n/catalog"
	"github.com/louisbranch/budgetstory/internal/services/story/dataset"
	"github.com/louisbranch/budgetstory/internal/services/story/hover"
	"github.com/louisbranch/budgetstory/internal/services/story/layout"
	"github.com/louisbranch/budgetstory/internal/services/story/viewport"
	"golang.org/x/text/message"
)

// PageData is everything the story page needs.
type PageData struct {
	Lang     string
	Printer  *message.Printer
	Sections []dataset.Section
	NavIDs   []string
	Layout   layout.Result
	Config   viewport.Config
	Script   string
}

// Page renders the full story document.
func Page(data PageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := data.Printer
		h := &htmlWriter{w: w}
		h.raw(`<!DOCTYPE html><html`)
		h.attr("lang", data.Lang)
		h.raw(`><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<title>`)
		h.text(p.Sprintf(catalog.KeyTitle))
		h.raw(`</title></head><body>`)

		h.raw(`<header class="sticky-header"><span id="current-era"></span><span id="current-context"></span>`)
		h.raw(`<div class="progress"><div id="progress-fill" style="width: 0%"></div></div></header>`)
		if h.err != nil {
			return h.err
		}
		if err := Nav(data.Sections, data.NavIDs, p).Render(ctx, w); err != nil {
			return err
		}

		h.raw(`<main class="story"><div id="scroll-sections">`)
		if h.err != nil {
			return h.err
		}
		for _, section := range data.Sections {
			if err := Step(section).Render(ctx, w); err != nil {
				return err
			}
		}
		h.raw(`</div><div id="chart-container">`)
		if h.err != nil {
			return h.err
		}
		if err := Chart(data.Layout, data.Config).Render(ctx, w); err != nil {
			return err
		}
		if !data.Config.HideLegend {
			if err := Legend(p).Render(ctx, w); err != nil {
				return err
			}
		}
		h.raw(`<p class="record-count">`)
		h.text(p.Sprintf(catalog.KeyRecordCount, len(data.Layout.Records)))
		h.raw(`</p></div>`)
		if h.err != nil {
			return h.err
		}
		if err := HoverPanel(p).Render(ctx, w); err != nil {
			return err
		}
		h.raw(`<button type="button" id="exit-explore" class="hidden">`)
		h.text(p.Sprintf(catalog.KeyExploreExit))
		h.raw(`</button></main>`)
		if data.Script != "" {
			h.raw(`<script type="module"`)
			h.attr("src", data.Script)
			h.raw(`></script>`)
		}
		h.raw(`</body></html>`)
		return h.err
	})
}

// Step renders one narrative section. The explore step is the mount point
// for exploration.
func Step(section dataset.Section) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		class := "step"
		if section.Type == "explore" {
			class += " step-explore"
		}
		h.raw(`<section`)
		h.attr("class", class)
		h.attr("data-step", section.ID)
		h.attr("data-year-start", strconv.Itoa(section.YearRange[0]))
		h.attr("data-year-end", strconv.Itoa(section.YearRange[1]))
		h.raw(`><div class="step-content">`)
		if section.EraLabel != "" {
			h.raw(`<span class="era-badge">`)
			h.text(section.EraLabel)
			h.raw(`</span>`)
		}
		if section.Title != "" {
			h.raw(`<h3>`)
			h.text(section.Title)
			h.raw(`</h3>`)
		}
		if section.Setup != "" {
			h.raw(`<p class="setup">`)
			h.text(section.Setup)
			h.raw(`</p>`)
		}
		for _, paragraph := range paragraphs(section.Reflection) {
			h.raw(`<p class="reflection">`)
			h.text(paragraph)
			h.raw(`</p>`)
		}
		h.raw(`</div></section>`)
		return h.err
	})
}

// Nav renders the section navigation for the ids present in sections.
func Nav(sections []dataset.Section, navIDs []string, p *message.Printer) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<nav id="section-nav"`)
		h.attr("aria-label", p.Sprintf(catalog.KeyNavLabel))
		h.raw(`><ul>`)
		for _, id := range navIDs {
			label := id
			for _, section := range sections {
				if section.ID == id && section.Title != "" {
					label = section.Title
					break
				}
			}
			h.raw(`<li><a`)
			h.attr("href", "#"+id)
			h.attr("data-nav", id)
			h.raw(`>`)
			h.text(label)
			h.raw(`</a></li>`)
		}
		h.raw(`</ul></nav>`)
		return h.err
	})
}

// legendGroups pairs each heading with the record type its categories share.
var legendGroups = []struct {
	heading string
	kind    layout.Type
}{
	{heading: catalog.KeyLegendPromises, kind: layout.TypePromise},
	{heading: catalog.KeyLegendObligation, kind: layout.TypeObligation},
}

// Legend renders the four record categories under promise and obligation
// headings.
func Legend(p *message.Printer) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<div class="legend">`)
		for _, group := range legendGroups {
			h.raw(`<div class="legend-group"><span class="legend-heading">`)
			h.text(p.Sprintf(group.heading))
			h.raw(`</span>`)
			for _, category := range hover.Categories {
				if !strings.HasPrefix(category.Key, string(group.kind)+"_") {
					continue
				}
				h.raw(`<div class="legend-item"><span class="legend-swatch"`)
				h.attr("style", "background: "+category.Color)
				h.raw(`></span><span>`)
				h.text(p.Sprintf(catalog.TagKey(category.Key)))
				h.raw(`</span></div>`)
			}
			h.raw(`</div>`)
		}
		h.raw(`</div>`)
		return h.err
	})
}

// HoverPanel renders the empty detail panel filled in by the client.
func HoverPanel(p *message.Printer) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<aside id="hover-panel" class="hover-panel hidden">`)
		h.raw(`<span class="hover-panel-year"></span><span class="hover-panel-fm"></span>`)
		h.raw(`<blockquote class="hover-panel-quote"></blockquote><span class="hover-panel-tag"></span>`)
		h.raw(`<button type="button" class="hover-panel-close">`)
		h.text(p.Sprintf(catalog.KeyExploreUnpin))
		h.raw(`</button></aside>`)
		return h.err
	})
}

func paragraphs(text string) []string {
	var out []string
	for _, part := range strings.Split(text, "\n\n") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
