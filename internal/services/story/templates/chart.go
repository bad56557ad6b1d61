package templates

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
	"github.com/louisbranch/budgetstory/internal/services/story/hover"
	"github.com/louisbranch/budgetstory/internal/services/story/layout"
	"github.com/louisbranch/budgetstory/internal/services/story/viewport"
)

// Chart renders the record grid for one layout pass.
func Chart(result layout.Result, cfg viewport.Config) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.rawf(`<svg class="chart" width="%s" height="%s" viewBox="0 0 %s %s" data-tier="%s" data-status="%s">`,
			num(cfg.Width), num(cfg.Height), num(cfg.Width), num(cfg.Height), cfg.Tier, result.Status)
		h.rawf(`<rect class="highlight-box" x="0" y="%s" width="0" height="%s" opacity="0"></rect>`,
			num(result.Top), num(result.Bottom-result.Top))
		if !result.Empty() {
			h.rawf(`<line class="baseline" x1="%s" x2="%s" y1="%s" y2="%s"></line>`,
				num(result.Left), num(result.Right), num(result.Baseline), num(result.Baseline))
		}
		h.raw(`<g class="dots">`)
		half := result.DotSize / 2
		for _, record := range result.Records {
			if !record.Positioned {
				continue
			}
			category, _ := hover.CategoryFor(record)
			h.raw(`<rect class="dot"`)
			h.attr("data-seq", strconv.Itoa(record.Seq))
			h.attr("data-year", strconv.Itoa(record.Year))
			h.attr("data-category", category.Key)
			h.attr("x", num(record.X-half))
			h.attr("y", num(record.Y-half))
			h.attr("width", num(result.DotSize))
			h.attr("height", num(result.DotSize))
			h.attr("fill", category.Color)
			h.raw(`></rect>`)
		}
		h.raw(`</g>`)
		if !cfg.HideAnnotations {
			h.raw(`<g class="year-labels">`)
			for _, label := range result.Labels {
				h.rawf(`<text class="year-label" x="%s" y="%s" text-anchor="middle" font-size="%s">%d</text>`,
					num(label.X), num(label.Y), num(cfg.FontSize.Year), label.Year)
			}
			h.raw(`</g>`)
		}
		h.raw(`</svg>`)
		return h.err
	})
}
