package preview

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beletteringbestellen/plakletters/internal/pricing"
)

type stubMeasurer struct {
	box BoundingBox
	err error
}

func (s stubMeasurer) Measure(string, string, float64) (BoundingBox, error) {
	return s.box, s.err
}

func TestEstimate_ScalesWidthWithHeight(t *testing.T) {
	dims, ok := Estimate(BoundingBox{WidthPx: 200, HeightPx: 100}, 10)
	require.True(t, ok)
	assert.InDelta(t, 20.0, dims.WidthCm, 1e-9)
	assert.Equal(t, 10.0, dims.HeightCm)

	dims, ok = Estimate(BoundingBox{WidthPx: 333, HeightPx: 71}, 7.5)
	require.True(t, ok)
	assert.Equal(t, 7.5, dims.HeightCm)
	assert.InDelta(t, 333.0/71.0*7.5, dims.WidthCm, 1e-9)
}

func TestEstimate_UnusableInput(t *testing.T) {
	cases := []struct {
		box    BoundingBox
		height float64
	}{
		{box: BoundingBox{}, height: 10},
		{box: BoundingBox{WidthPx: 100}, height: 10},
		{box: BoundingBox{WidthPx: 100, HeightPx: 50}, height: 0},
		{box: BoundingBox{WidthPx: 100, HeightPx: 50}, height: -3},
		{box: BoundingBox{WidthPx: math.NaN(), HeightPx: 50}, height: 5},
	}
	for _, tc := range cases {
		dims, ok := Estimate(tc.box, tc.height)
		assert.False(t, ok, "%+v", tc)
		assert.True(t, dims.IsZero(), "%+v", tc)
	}
}

func TestEstimator_MeasurementFailureMeansNoPreview(t *testing.T) {
	est := NewEstimator(stubMeasurer{err: errors.New("not mounted")})
	dims, ok := est.Dimensions("OPEN", "arial", 10)
	assert.False(t, ok)
	assert.True(t, dims.IsZero())
}

func TestEstimator_EmptyTextSkipsMeasurement(t *testing.T) {
	est := NewEstimator(stubMeasurer{box: BoundingBox{WidthPx: 100, HeightPx: 100}})
	_, ok := est.Dimensions("   ", "arial", 10)
	assert.False(t, ok)
}

func TestFontMeasurer_MeasuresGlyphs(t *testing.T) {
	m, err := NewFontMeasurer(pricing.DefaultCatalog())
	require.NoError(t, err)

	wide, err := m.Measure("WWWW", "arial", ReferenceFontSize)
	require.NoError(t, err)
	narrow, err := m.Measure("iiii", "arial", ReferenceFontSize)
	require.NoError(t, err)

	assert.Greater(t, wide.WidthPx, narrow.WidthPx)
	assert.Greater(t, wide.HeightPx, 0.0)
	assert.Greater(t, wide.BaselinePx, 0.0)

	est := NewEstimator(m)
	dims, ok := est.Dimensions("OPEN", "montserrat", 12)
	require.True(t, ok)
	assert.Equal(t, 12.0, dims.HeightCm)
	assert.Greater(t, dims.WidthCm, dims.HeightCm)
}

func TestFontMeasurer_UnknownFontFallsBack(t *testing.T) {
	m, err := NewFontMeasurer(pricing.DefaultCatalog())
	require.NoError(t, err)

	box, err := m.Measure("OPEN", "does-not-exist", ReferenceFontSize)
	require.NoError(t, err)
	assert.Greater(t, box.WidthPx, 0.0)
}

func TestRenderSVG(t *testing.T) {
	catalog := pricing.DefaultCatalog()
	font, _ := catalog.FontByID("arial")
	red, _ := catalog.ColorByID("red")

	var buf bytes.Buffer
	RenderSVG(&buf, SVGOptions{
		Text:       "Open & dicht",
		Font:       font,
		Color:      red,
		Box:        BoundingBox{WidthPx: 400, HeightPx: 80, BaselinePx: 70},
		Dimensions: Dimensions{WidthCm: 50.04, HeightCm: 10},
	})

	out := buf.String()
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "<?xml"))
	assert.Contains(t, out, "Open &amp; dicht")
	assert.Contains(t, out, "50.0 × 10.0 cm")
	assert.Contains(t, out, red.Hex)
}

func TestRenderSVG_Placeholder(t *testing.T) {
	var buf bytes.Buffer
	RenderSVG(&buf, SVGOptions{})
	assert.Contains(t, buf.String(), "voorbeeld")
}

func TestDecodeLogo(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	img.Set(10, 10, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	logo, err := DecodeLogo(&buf)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, logo.AspectRatio, 1e-9)
	assert.True(t, strings.HasPrefix(logo.DataURL, "data:image/png;base64,"))
}

func TestDecodeLogo_RejectsGarbage(t *testing.T) {
	_, err := DecodeLogo(strings.NewReader("<svg></svg>"))
	assert.ErrorIs(t, err, ErrUnsupportedLogo)
}

func TestLogoSizeFor(t *testing.T) {
	size := LogoSizeFor(10, 3)
	assert.Equal(t, 10.0, size.WidthCm)
	assert.Equal(t, 3.3, size.HeightCm)
	assert.InDelta(t, 100.0/3.0, size.AreaCm2, 1e-9)

	assert.Equal(t, pricing.LogoSize{}, LogoSizeFor(10, 0))
}
