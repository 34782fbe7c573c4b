package preview

import (
	"fmt"
	"io"
	"math"

	svg "github.com/ajstarks/svgo"

	"github.com/beletteringbestellen/plakletters/internal/pricing"
)

const (
	svgPadding     = 24
	svgLabelHeight = 40
)

// SVGOptions describes one preview render.
type SVGOptions struct {
	Text       string
	Font       pricing.FontOption
	Color      pricing.ColorOption
	Background string
	Box        BoundingBox
	Dimensions Dimensions
}

// RenderSVG draws the text at reference size with its physical dimensions
// underneath. Empty dimensions render the placeholder message instead.
func RenderSVG(w io.Writer, opts SVGOptions) {
	background := opts.Background
	if background == "" {
		background = "#E5E7EB"
	}

	width := int(math.Ceil(opts.Box.WidthPx)) + 2*svgPadding
	height := int(math.Ceil(opts.Box.HeightPx)) + 2*svgPadding + svgLabelHeight
	if width < 320 {
		width = 320
	}

	canvas := svg.New(w)
	canvas.Start(width, height)
	canvas.Rect(0, 0, width, height, "fill:"+background)

	if opts.Dimensions.IsZero() {
		canvas.Text(width/2, height/2, "Typ je tekst om een voorbeeld te zien", "text-anchor:middle;font-family:sans-serif;font-size:16px;fill:#6B7280")
		canvas.End()
		return
	}

	x := (width - int(math.Ceil(opts.Box.WidthPx))) / 2
	y := svgPadding + int(math.Round(opts.Box.BaselinePx))
	canvas.Text(x, y, opts.Text, fmt.Sprintf("font-family:%s;font-size:%dpx;fill:%s", opts.Font.FontFamily, ReferenceFontSize, opts.Color.Hex))

	rounded := opts.Dimensions.Rounded()
	label := fmt.Sprintf("%.1f × %.1f cm", rounded.WidthCm, rounded.HeightCm)
	canvas.Text(width/2, height-svgLabelHeight/2, label, "text-anchor:middle;font-family:sans-serif;font-size:16px;fill:#374151")
	canvas.End()
}
