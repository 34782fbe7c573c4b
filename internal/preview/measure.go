package preview

import (
	"fmt"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/beletteringbestellen/plakletters/internal/pricing"
)

// FontMeasurer measures text with the Go font family. The web fonts of the
// designer are not shipped server side, so each font category maps to the Go
// face closest in weight and slant.
type FontMeasurer struct {
	catalog    pricing.Catalog
	byCategory map[pricing.FontCategory]*opentype.Font
	fallback   *opentype.Font
}

// NewFontMeasurer parses the embedded Go fonts.
func NewFontMeasurer(catalog pricing.Catalog) (*FontMeasurer, error) {
	parse := func(name string, ttf []byte) (*opentype.Font, error) {
		f, err := opentype.Parse(ttf)
		if err != nil {
			return nil, fmt.Errorf("parse %s font: %w", name, err)
		}
		return f, nil
	}

	regular, err := parse("regular", goregular.TTF)
	if err != nil {
		return nil, err
	}
	medium, err := parse("medium", gomedium.TTF)
	if err != nil {
		return nil, err
	}
	bold, err := parse("bold", gobold.TTF)
	if err != nil {
		return nil, err
	}
	italic, err := parse("italic", goitalic.TTF)
	if err != nil {
		return nil, err
	}

	return &FontMeasurer{
		catalog: catalog,
		byCategory: map[pricing.FontCategory]*opentype.Font{
			pricing.FontBusiness:    regular,
			pricing.FontClassic:     medium,
			pricing.FontModern:      bold,
			pricing.FontPlayful:     medium,
			pricing.FontHandwriting: italic,
		},
		fallback: regular,
	}, nil
}

func (m *FontMeasurer) fontFor(fontID string) *opentype.Font {
	option, ok := m.catalog.FontByID(fontID)
	if !ok {
		return m.fallback
	}
	if f, ok := m.byCategory[option.Category]; ok {
		return f
	}
	return m.fallback
}

// Measure returns the ink bounds of text at sizePx. Faces are created per call
// because they are not safe for concurrent use.
func (m *FontMeasurer) Measure(text, fontID string, sizePx float64) (BoundingBox, error) {
	face, err := opentype.NewFace(m.fontFor(fontID), &opentype.FaceOptions{
		Size:    sizePx,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return BoundingBox{}, fmt.Errorf("create font face: %w", err)
	}
	defer face.Close()

	bounds, _ := font.BoundString(face, text)
	return BoundingBox{
		WidthPx:    toPx(bounds.Max.X - bounds.Min.X),
		HeightPx:   toPx(bounds.Max.Y - bounds.Min.Y),
		BaselinePx: toPx(-bounds.Min.Y),
	}, nil
}

func toPx(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
