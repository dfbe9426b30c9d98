package framebuffer

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDrawHUDPaintsNonTransparentPixels(t *testing.T) {
	f, err := DefaultHUDFont(12)
	require.NoError(t, err)

	img := image.NewRGBA(image.Rect(0, 0, 200, 80))
	DrawHUD(img, f, HUDStats{SPP: 64, TargetSPP: 256, ElapsedSeconds: 12.5, DroppedSamples: 3, ActiveWorkers: 8})

	var painted bool
	for y := 0; y < img.Bounds().Dy(); y++ {
		for x := 0; x < img.Bounds().Dx(); x++ {
			if c := img.At(x, y); (color.RGBAModel.Convert(c).(color.RGBA)) != (color.RGBA{}) {
				painted = true
			}
		}
	}
	require.True(t, painted, "HUD overlay should paint at least the translucent panel background")
}

func TestDrawHUDNilFontIsNoop(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	DrawHUD(img, nil, HUDStats{})
	for _, px := range img.Pix {
		require.Equal(t, uint8(0), px)
	}
}
