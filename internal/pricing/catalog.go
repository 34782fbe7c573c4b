package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ColorCategory groups vinyl colors by material.
type ColorCategory string

const (
	ColorStandard ColorCategory = "standard"
	ColorColored  ColorCategory = "colored"
	ColorMetallic ColorCategory = "metallic"
)

// CategoryRates holds the surcharge every entry of a category is expected to carry.
// Prices are computed from the entry itself; this table only backs Validate.
var CategoryRates = map[ColorCategory]decimal.Decimal{
	ColorStandard: decimal.Zero,
	ColorColored:  decimal.RequireFromString("0.02"),
	ColorMetallic: decimal.RequireFromString("0.05"),
}

// ColorOption is a vinyl color. Surcharge is charged per letter per cm of height.
type ColorOption struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Hex       string          `json:"hex"`
	Category  ColorCategory   `json:"category"`
	Surcharge decimal.Decimal `json:"surcharge"`
}

// FontCategory is a cosmetic grouping of fonts.
type FontCategory string

const (
	FontBusiness    FontCategory = "zakelijk"
	FontClassic     FontCategory = "klassiek"
	FontModern      FontCategory = "modern"
	FontPlayful     FontCategory = "speels"
	FontHandwriting FontCategory = "handschrift"
)

// FontOption identifies a font for rendering. It has no effect on price.
type FontOption struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	FontFamily string       `json:"fontFamily"`
	Category   FontCategory `json:"category"`
}

// Catalog is the fixed list of colors and fonts offered in the designer.
type Catalog struct {
	Colors []ColorOption `json:"colors"`
	Fonts  []FontOption  `json:"fonts"`
}

// ColorByID returns the color with the given id.
func (c Catalog) ColorByID(id string) (ColorOption, bool) {
	for _, color := range c.Colors {
		if color.ID == id {
			return color, true
		}
	}
	return ColorOption{}, false
}

// FontByID returns the font with the given id.
func (c Catalog) FontByID(id string) (FontOption, bool) {
	for _, font := range c.Fonts {
		if font.ID == id {
			return font, true
		}
	}
	return FontOption{}, false
}

// Validate checks that ids are unique and that every color carries its category rate.
func (c Catalog) Validate() error {
	seen := make(map[string]bool, len(c.Colors))
	for _, color := range c.Colors {
		if seen[color.ID] {
			return fmt.Errorf("duplicate color id %q", color.ID)
		}
		seen[color.ID] = true

		rate, ok := CategoryRates[color.Category]
		if !ok {
			return fmt.Errorf("color %q has unknown category %q", color.ID, color.Category)
		}
		if !color.Surcharge.Equal(rate) {
			return fmt.Errorf("color %q surcharge %s does not match %s rate %s", color.ID, color.Surcharge, color.Category, rate)
		}
	}

	seen = make(map[string]bool, len(c.Fonts))
	for _, font := range c.Fonts {
		if seen[font.ID] {
			return fmt.Errorf("duplicate font id %q", font.ID)
		}
		seen[font.ID] = true
	}
	return nil
}

func standard(id, name, hex string) ColorOption {
	return ColorOption{ID: id, Name: name, Hex: hex, Category: ColorStandard, Surcharge: CategoryRates[ColorStandard]}
}

func colored(id, name, hex string) ColorOption {
	return ColorOption{ID: id, Name: name, Hex: hex, Category: ColorColored, Surcharge: CategoryRates[ColorColored]}
}

func metallic(id, name, hex string) ColorOption {
	return ColorOption{ID: id, Name: name, Hex: hex, Category: ColorMetallic, Surcharge: CategoryRates[ColorMetallic]}
}

// DefaultCatalog returns the colors and fonts sold in the shop.
func DefaultCatalog() Catalog {
	return Catalog{
		Colors: []ColorOption{
			standard("black", "Zwart", "#1a1a1a"),
			standard("white", "Wit", "#FFFFFF"),
			standard("darkgray", "Donkergrijs", "#4a4a4a"),
			standard("lightgray", "Lichtgrijs", "#a0a0a0"),

			colored("red", "Rood", "#E53935"),
			colored("blue", "Blauw", "#1E88E5"),
			colored("navy", "Marineblauw", "#1a237e"),
			colored("green", "Groen", "#43A047"),
			colored("lime", "Limegroen", "#7cb342"),
			colored("yellow", "Geel", "#FDD835"),
			colored("orange", "Oranje", "#FB8C00"),
			colored("purple", "Paars", "#8E24AA"),
			colored("pink", "Roze", "#E91E63"),
			colored("turquoise", "Turquoise", "#00ACC1"),
			colored("bordeaux", "Bordeaux", "#7B1F3A"),
			colored("brown", "Bruin", "#5D4037"),

			metallic("gold", "Goud", "#FFD700"),
			metallic("silver", "Zilver", "#C0C0C0"),
			metallic("bronze", "Brons", "#CD7F32"),
			metallic("rosegold", "Roségoud", "#B76E79"),
			metallic("copper", "Koper", "#B87333"),
		},
		Fonts: []FontOption{
			{ID: "arial", Name: "Arial", FontFamily: "Arial, sans-serif", Category: FontBusiness},
			{ID: "helvetica", Name: "Helvetica", FontFamily: "Helvetica, Arial, sans-serif", Category: FontBusiness},
			{ID: "roboto", Name: "Roboto", FontFamily: "'Roboto', sans-serif", Category: FontBusiness},
			{ID: "opensans", Name: "Open Sans", FontFamily: "'Open Sans', sans-serif", Category: FontBusiness},
			{ID: "lato", Name: "Lato", FontFamily: "'Lato', sans-serif", Category: FontBusiness},
			{ID: "poppins", Name: "Poppins", FontFamily: "'Poppins', sans-serif", Category: FontBusiness},

			{ID: "times", Name: "Times New Roman", FontFamily: "Times New Roman, serif", Category: FontClassic},
			{ID: "georgia", Name: "Georgia", FontFamily: "Georgia, serif", Category: FontClassic},
			{ID: "playfair", Name: "Playfair Display", FontFamily: "'Playfair Display', serif", Category: FontClassic},
			{ID: "merriweather", Name: "Merriweather", FontFamily: "'Merriweather', serif", Category: FontClassic},

			{ID: "montserrat", Name: "Montserrat", FontFamily: "'Montserrat', sans-serif", Category: FontModern},
			{ID: "bebas", Name: "Bebas Neue", FontFamily: "'Bebas Neue', cursive", Category: FontModern},
			{ID: "oswald", Name: "Oswald", FontFamily: "'Oswald', sans-serif", Category: FontModern},
			{ID: "anton", Name: "Anton", FontFamily: "'Anton', sans-serif", Category: FontModern},
			{ID: "impact", Name: "Impact", FontFamily: "Impact, sans-serif", Category: FontModern},
			{ID: "raleway", Name: "Raleway", FontFamily: "'Raleway', sans-serif", Category: FontModern},

			{ID: "verdana", Name: "Verdana", FontFamily: "Verdana, sans-serif", Category: FontPlayful},
			{ID: "comicsans", Name: "Comic Sans", FontFamily: "'Comic Sans MS', cursive", Category: FontPlayful},
			{ID: "fredoka", Name: "Fredoka One", FontFamily: "'Fredoka One', cursive", Category: FontPlayful},
			{ID: "baloo", Name: "Baloo 2", FontFamily: "'Baloo 2', cursive", Category: FontPlayful},

			{ID: "dancing", Name: "Dancing Script", FontFamily: "'Dancing Script', cursive", Category: FontHandwriting},
			{ID: "pacifico", Name: "Pacifico", FontFamily: "'Pacifico', cursive", Category: FontHandwriting},
			{ID: "greatvibes", Name: "Great Vibes", FontFamily: "'Great Vibes', cursive", Category: FontHandwriting},
			{ID: "sacramento", Name: "Sacramento", FontFamily: "'Sacramento', cursive", Category: FontHandwriting},
			{ID: "caveat", Name: "Caveat", FontFamily: "'Caveat', cursive", Category: FontHandwriting},
		},
	}
}
