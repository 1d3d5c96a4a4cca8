package postfx

import "github.com/chewxy/math32"

// CPU kernels shared by the effect passes. All operate on tightly packed
// RGBA byte planes (stride = width*4), the format PixelReader/PixelWriter
// exchange.

// luma returns the Rec. 601 luminance of an RGBA pixel, 0..1.
func luma(r, g, b uint8) float32 {
	return (0.299*float32(r) + 0.587*float32(g) + 0.114*float32(b)) / 255
}

// clampU8 converts an accumulator value back to a byte channel.
func clampU8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// gaussianKernel returns normalized weights for a 1D gaussian of the given
// half-width. sigma defaults to radius/2 when zero.
func gaussianKernel(radius int, sigma float32) []float32 {
	if radius < 1 {
		radius = 1
	}
	if sigma <= 0 {
		sigma = float32(radius) / 2
	}
	weights := make([]float32, radius+1)
	var sum float32
	for i := 0; i <= radius; i++ {
		w := math32.Exp(-float32(i*i) / (2 * sigma * sigma))
		weights[i] = w
		if i == 0 {
			sum += w
		} else {
			sum += 2 * w
		}
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights
}

// blurPlane applies a separable gaussian blur of the given radius to src
// and returns a new plane. src is left untouched.
func blurPlane(src []byte, width, height, radius int) []byte {
	weights := gaussianKernel(radius, 0)
	tmp := make([]byte, len(src))
	dst := make([]byte, len(src))

	// Horizontal.
	for y := 0; y < height; y++ {
		row := y * width * 4
		for x := 0; x < width; x++ {
			var r, g, b, a float32
			for k := -radius; k <= radius; k++ {
				sx := x + k
				if sx < 0 {
					sx = 0
				} else if sx >= width {
					sx = width - 1
				}
				w := weights[abs(k)]
				o := row + sx*4
				r += w * float32(src[o])
				g += w * float32(src[o+1])
				b += w * float32(src[o+2])
				a += w * float32(src[o+3])
			}
			o := row + x*4
			tmp[o] = clampU8(r)
			tmp[o+1] = clampU8(g)
			tmp[o+2] = clampU8(b)
			tmp[o+3] = clampU8(a)
		}
	}

	// Vertical.
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var r, g, b, a float32
			for k := -radius; k <= radius; k++ {
				sy := y + k
				if sy < 0 {
					sy = 0
				} else if sy >= height {
					sy = height - 1
				}
				w := weights[abs(k)]
				o := (sy*width + x) * 4
				r += w * float32(tmp[o])
				g += w * float32(tmp[o+1])
				b += w * float32(tmp[o+2])
				a += w * float32(tmp[o+3])
			}
			o := (y*width + x) * 4
			dst[o] = clampU8(r)
			dst[o+1] = clampU8(g)
			dst[o+2] = clampU8(b)
			dst[o+3] = clampU8(a)
		}
	}
	return dst
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// extractBright returns a plane holding only the pixels whose luminance
// exceeds threshold, faded in over the knee width for a soft cutoff.
func extractBright(src []byte, threshold, knee float32) []byte {
	dst := make([]byte, len(src))
	for o := 0; o < len(src); o += 4 {
		l := luma(src[o], src[o+1], src[o+2])
		var f float32
		switch {
		case knee <= 0:
			if l >= threshold {
				f = 1
			}
		default:
			f = math32.Min(math32.Max((l-threshold)/knee, 0), 1)
		}
		dst[o] = clampU8(f * float32(src[o]))
		dst[o+1] = clampU8(f * float32(src[o+1]))
		dst[o+2] = clampU8(f * float32(src[o+2]))
		dst[o+3] = src[o+3]
	}
	return dst
}

// addScaled accumulates add into dst channel-wise: dst += add * (factor*tint).
// Alpha is carried from dst unchanged.
func addScaled(dst, add []byte, factor float32, tint [3]float32) {
	for o := 0; o < len(dst); o += 4 {
		dst[o] = clampU8(float32(dst[o]) + factor*tint[0]*float32(add[o]))
		dst[o+1] = clampU8(float32(dst[o+1]) + factor*tint[1]*float32(add[o+1]))
		dst[o+2] = clampU8(float32(dst[o+2]) + factor*tint[2]*float32(add[o+2]))
	}
}
