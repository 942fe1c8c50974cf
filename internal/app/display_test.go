package app

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/inertial_pedometer/internal/engine"
)

func litPixels(img *image1bit.VerticalLSB) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.BitAt(x, y) == image1bit.On {
				n++
			}
		}
	}
	return n
}

func TestRenderSummary(t *testing.T) {
	waiting := renderSummary(engine.Summary{}, false)
	assert.Equal(t, image.Rect(0, 0, 128, 64), waiting.Bounds())
	assert.Positive(t, litPixels(waiting))

	few := renderSummary(engine.NewSummary("s", 12, 10000, "ring_buffer"), true)
	many := renderSummary(engine.NewSummary("s", 8812, 10000, "ring_buffer"), true)
	assert.Positive(t, litPixels(few))
	assert.NotEqual(t, few.Pix, many.Pix)
	assert.NotEqual(t, waiting.Pix, few.Pix)
}

func TestRenderSplash(t *testing.T) {
	assert.Positive(t, litPixels(renderSplash()))
}

func TestDisplayData(t *testing.T) {
	var d DisplayData
	_, have := d.get()
	assert.False(t, have)

	d.set(engine.NewSummary("s", 5, 100, "ring_buffer"))
	s, have := d.get()
	assert.True(t, have)
	assert.Equal(t, int64(5), s.Steps)
}
