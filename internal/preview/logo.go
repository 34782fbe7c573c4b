package preview

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/disintegration/imaging"

	"github.com/beletteringbestellen/plakletters/internal/pricing"
)

const logoThumbnailSize = 512

var ErrUnsupportedLogo = errors.New("logo must be a PNG or JPG image")

// Logo is a decoded upload.
type Logo struct {
	AspectRatio float64
	// DataURL is a PNG thumbnail of the upload, small enough to keep on a cart line.
	DataURL string
}

// DecodeLogo reads an uploaded image and prepares its thumbnail.
func DecodeLogo(r io.Reader) (Logo, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return Logo{}, fmt.Errorf("%w: %v", ErrUnsupportedLogo, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return Logo{}, ErrUnsupportedLogo
	}

	thumb := imaging.Fit(img, logoThumbnailSize, logoThumbnailSize, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.PNG); err != nil {
		return Logo{}, fmt.Errorf("encode logo thumbnail: %w", err)
	}

	return Logo{
		AspectRatio: float64(bounds.Dx()) / float64(bounds.Dy()),
		DataURL:     "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// LogoSizeFor returns the printed size of a logo widthCm wide. The shown height
// is rounded to a tenth; the billed area is not.
func LogoSizeFor(widthCm, aspectRatio float64) pricing.LogoSize {
	if !usable(widthCm) || !usable(aspectRatio) {
		return pricing.LogoSize{}
	}
	height := widthCm / aspectRatio
	return pricing.LogoSize{
		WidthCm:  widthCm,
		HeightCm: math.Round(height*10) / 10,
		AreaCm2:  widthCm * height,
	}
}
