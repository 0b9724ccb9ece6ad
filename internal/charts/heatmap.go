package charts

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"datavista-backend/internal/profile"
)

const (
	heatCell    = 56
	heatMarginL = 96
	heatMarginT = 24
	heatMarginB = 40
	labelChars  = 12
)

// Diverging scale endpoints: r=-1 blue, r=0 white, r=+1 red.
var (
	heatNeg  = drawing.Color{R: 59, G: 76, B: 192, A: 255}
	heatZero = drawing.Color{R: 255, G: 255, B: 255, A: 255}
	heatPos  = drawing.Color{R: 180, G: 4, B: 38, A: 255}
)

// Heatmap renders a correlation matrix as a colored grid with the coefficient
// printed in each cell.
func Heatmap(corr *profile.Correlation) (Artifact, error) {
	n := len(corr.Columns)
	if n == 0 {
		return Artifact{}, fmt.Errorf("empty correlation matrix")
	}

	w := heatMarginL + n*heatCell
	h := heatMarginT + n*heatCell + heatMarginB
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			r := corr.Values[i][j]
			cell := image.Rect(
				heatMarginL+j*heatCell,
				heatMarginT+i*heatCell,
				heatMarginL+(j+1)*heatCell,
				heatMarginT+(i+1)*heatCell,
			)
			draw.Draw(img, cell, image.NewUniform(heatColor(r)), image.Point{}, draw.Src)

			text := fmt.Sprintf("%.2f", r)
			tx := cell.Min.X + (heatCell-textWidth(text))/2
			ty := cell.Min.Y + heatCell/2 + 4
			drawString(img, text, tx, ty, textColor(r))
		}
	}

	for i, name := range corr.Columns {
		label := truncate(name, labelChars)
		// Row labels on the left, column labels beneath the grid.
		drawString(img, label, 4, heatMarginT+i*heatCell+heatCell/2+4, color.Black)
		drawString(img, label, heatMarginL+i*heatCell+2, heatMarginT+n*heatCell+16, color.Black)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Artifact{}, err
	}
	return Artifact{
		Caption: fmt.Sprintf("Correlation heatmap (%d numeric columns)", n),
		PNG:     buf.Bytes(),
	}, nil
}

// heatColor interpolates the diverging scale for a coefficient in [-1, 1].
func heatColor(r float64) color.RGBA {
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	var c drawing.Color
	if r < 0 {
		c = lerp(heatZero, heatNeg, -r)
	} else {
		c = lerp(heatZero, heatPos, r)
	}
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

func lerp(a, b drawing.Color, t float64) drawing.Color {
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t)
	}
	return drawing.Color{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}

// textColor keeps cell labels legible on saturated backgrounds.
func textColor(r float64) color.Color {
	if r > 0.6 || r < -0.6 {
		return color.White
	}
	return color.Black
}

func drawString(img *image.RGBA, s string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func textWidth(s string) int {
	return len(s) * basicfont.Face7x13.Advance
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-2] + ".."
}
