package postfx

import (
	"math"
	"testing"
)

func TestLuma(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b uint8
		want    float32
	}{
		{"black", 0, 0, 0, 0},
		{"white", 255, 255, 255, 1},
		{"pure green", 0, 255, 0, 0.587},
		{"pure red", 255, 0, 0, 0.299},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := luma(tt.r, tt.g, tt.b)
			if math.Abs(float64(got-tt.want)) > 1e-5 {
				t.Errorf("luma(%d, %d, %d) = %v, want %v", tt.r, tt.g, tt.b, got, tt.want)
			}
		})
	}
}

func TestClampU8(t *testing.T) {
	tests := []struct {
		in   float32
		want uint8
	}{
		{-10, 0},
		{0, 0},
		{127.6, 128},
		{255, 255},
		{300, 255},
	}
	for _, tt := range tests {
		if got := clampU8(tt.in); got != tt.want {
			t.Errorf("clampU8(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestGaussianKernelNormalized(t *testing.T) {
	for _, radius := range []int{1, 3, 7, 11} {
		weights := gaussianKernel(radius, 0)
		if len(weights) != radius+1 {
			t.Fatalf("radius %d: len = %d, want %d", radius, len(weights), radius+1)
		}
		var sum float32
		for i, w := range weights {
			if i == 0 {
				sum += w
			} else {
				sum += 2 * w
			}
			if i > 0 && weights[i] > weights[i-1] {
				t.Errorf("radius %d: weight %d grows away from center", radius, i)
			}
		}
		if math.Abs(float64(sum-1)) > 1e-4 {
			t.Errorf("radius %d: weights sum to %v, want 1", radius, sum)
		}
	}
}

func TestBlurPlanePreservesFlatRegions(t *testing.T) {
	const w, h = 8, 8
	src := make([]byte, w*h*4)
	for o := 0; o < len(src); o += 4 {
		src[o], src[o+1], src[o+2], src[o+3] = 90, 90, 90, 255
	}
	dst := blurPlane(src, w, h, 3)
	for o := 0; o < len(dst); o += 4 {
		// Flat input stays flat within rounding.
		if d := int(dst[o]) - 90; d < -1 || d > 1 {
			t.Fatalf("pixel %d = %d, want ~90", o/4, dst[o])
		}
	}
}

func TestBlurPlaneSpreadsImpulse(t *testing.T) {
	const w, h = 9, 9
	src := make([]byte, w*h*4)
	center := (4*w + 4) * 4
	src[center], src[center+3] = 255, 255

	dst := blurPlane(src, w, h, 2)
	if dst[center] >= 255 {
		t.Error("center not attenuated by blur")
	}
	neighbor := (4*w + 5) * 4
	if dst[neighbor] == 0 {
		t.Error("impulse did not spread to neighbor")
	}
	if src[center] != 255 {
		t.Error("source plane was modified")
	}
}

func TestExtractBright(t *testing.T) {
	src := []byte{
		255, 255, 255, 255, // bright
		20, 20, 20, 255, // dark
	}
	dst := extractBright(src, 0.8, 0.01)
	if dst[0] != 255 {
		t.Errorf("bright pixel = %d, want 255", dst[0])
	}
	if dst[4] != 0 {
		t.Errorf("dark pixel = %d, want 0", dst[4])
	}
}

func TestAddScaled(t *testing.T) {
	dst := []byte{100, 100, 100, 255}
	add := []byte{50, 50, 50, 255}
	addScaled(dst, add, 0.5, [3]float32{1, 0.5, 0})
	if dst[0] != 125 {
		t.Errorf("red = %d, want 125", dst[0])
	}
	if dst[1] != 113 {
		t.Errorf("green = %d, want 113", dst[1])
	}
	if dst[2] != 100 {
		t.Errorf("blue = %d, want 100 (zero tint)", dst[2])
	}
	if dst[3] != 255 {
		t.Errorf("alpha = %d, want unchanged 255", dst[3])
	}
}
