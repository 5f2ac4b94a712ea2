package validation

import (
	"context"
	"strconv"
	"strings"
)

// ColorValidator checks that a value is a hex RGB color whose perceptual
// brightness stays inside [MinBrightness, MaxBrightness] on a 0-100 scale.
// The two bounds are independent policy constants; a color at either bound
// is accepted, one unit beyond is rejected.
type ColorValidator struct {
	MaxBrightness float64
	MinBrightness float64
}

func (v *ColorValidator) Validate(ctx context.Context, value any) ([]FieldError, error) {
	const title = "Color not valid"

	color, ok := value.(string)
	if !ok {
		return one(title, "Color has to be a string.", "color"), nil
	}
	r, g, b, ok := hexToRGB(color)
	if !ok {
		return one(title, "A non-valid hex color was provided.", "color"), nil
	}

	brightness := perceivedBrightness(r, g, b)
	if brightness > v.MaxBrightness {
		return one(title, "Color provided is too bright.", "color"), nil
	}
	if brightness < v.MinBrightness {
		return one(title, "Color provided is too dark.", "color"), nil
	}
	return nil, nil
}

// perceivedBrightness maps 0-255 RGB channels onto a 0-100 scale using the
// ITU-R 601 luma weights.
func perceivedBrightness(r, g, b int) float64 {
	return (float64(r)*299 + float64(g)*587 + float64(b)*114) / 2550
}

// hexToRGB decodes "#rgb", "rgb", "#rrggbb" or "rrggbb".
func hexToRGB(s string) (r, g, b int, ok bool) {
	hex := strings.TrimPrefix(s, "#")

	switch len(hex) {
	case 3:
		expanded := make([]byte, 6)
		for i := 0; i < 3; i++ {
			expanded[2*i] = hex[i]
			expanded[2*i+1] = hex[i]
		}
		hex = string(expanded)
	case 6:
	default:
		return 0, 0, 0, false
	}

	channels := [3]int{}
	for i := 0; i < 3; i++ {
		n, err := strconv.ParseUint(hex[2*i:2*i+2], 16, 8)
		if err != nil {
			return 0, 0, 0, false
		}
		channels[i] = int(n)
	}
	return channels[0], channels[1], channels[2], true
}
