// Package preview derives the physical size of a sticker from rendered glyph
// metrics. Nothing here feeds back into pricing.
package preview

import (
	"math"
	"strings"
)

const (
	// PxToCm converts CSS pixels to centimeters at 96 DPI.
	PxToCm = 2.54 / 96
	// ReferenceFontSize is the pixel size text is measured at.
	ReferenceFontSize = 100
)

// BoundingBox is the measured extent of rendered text in pixels.
// BaselinePx is the distance from the top of the box to the baseline.
type BoundingBox struct {
	WidthPx    float64 `json:"widthPx"`
	HeightPx   float64 `json:"heightPx"`
	BaselinePx float64 `json:"baselinePx"`
}

// Dimensions is the physical size of a sticker.
type Dimensions struct {
	WidthCm  float64 `json:"widthCm"`
	HeightCm float64 `json:"heightCm"`
}

// Rounded returns d rounded to one decimal, as shown to customers.
func (d Dimensions) Rounded() Dimensions {
	return Dimensions{WidthCm: roundTenth(d.WidthCm), HeightCm: roundTenth(d.HeightCm)}
}

// IsZero reports whether d means "no preview available".
func (d Dimensions) IsZero() bool {
	return d.WidthCm == 0 && d.HeightCm == 0
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

func usable(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Estimate scales box so its height maps to targetHeightCm and returns the
// resulting physical size. It returns false when box or target is unusable.
func Estimate(box BoundingBox, targetHeightCm float64) (Dimensions, bool) {
	if !usable(box.WidthPx) || !usable(box.HeightPx) || !usable(targetHeightCm) {
		return Dimensions{}, false
	}

	scale := targetHeightCm / (box.HeightPx * PxToCm)
	return Dimensions{
		WidthCm:  box.WidthPx * PxToCm * scale,
		HeightCm: targetHeightCm,
	}, true
}

// Measurer measures text rendered in a font at sizePx.
type Measurer interface {
	Measure(text, fontID string, sizePx float64) (BoundingBox, error)
}

// Estimator measures text and converts the box into physical dimensions.
type Estimator struct {
	measurer Measurer
}

// NewEstimator returns an Estimator backed by m.
func NewEstimator(m Measurer) *Estimator {
	return &Estimator{measurer: m}
}

// Measure returns the reference-size bounding box of text.
func (e *Estimator) Measure(text, fontID string) (BoundingBox, bool) {
	if strings.TrimSpace(text) == "" {
		return BoundingBox{}, false
	}
	box, err := e.measurer.Measure(text, fontID, ReferenceFontSize)
	if err != nil {
		return BoundingBox{}, false
	}
	return box, true
}

// Dimensions measures text in fontID and scales it to heightCm. A failed
// measurement yields zero dimensions and false; it is never an error.
func (e *Estimator) Dimensions(text, fontID string, heightCm float64) (Dimensions, bool) {
	box, ok := e.Measure(text, fontID)
	if !ok {
		return Dimensions{}, false
	}
	return Estimate(box, heightCm)
}
