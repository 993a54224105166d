package report

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

var barColors = []string{"#2E86AB", "#A23B72", "#F18F01", "#C73E1D", "#6B0F1A"}

const (
	chartWidth   = 900
	chartRowH    = 56
	chartMarginT = 70
	chartMarginB = 60
	chartLabelW  = 210
	chartRightW  = 90
)

// The parsed font is shared; faces rasterize into internal buffers and are
// created per chart.
var (
	fontOnce  sync.Once
	fontErr   error
	chartFont *truetype.Font
)

func loadFont() {
	chartFont, fontErr = truetype.Parse(goregular.TTF)
	if fontErr != nil {
		fontErr = fmt.Errorf("parse chart font: %w", fontErr)
	}
}

func newFace(size float64) font.Face {
	return truetype.NewFace(chartFont, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

// ErrEmptyChart is returned when there is nothing to plot.
var ErrEmptyChart = errors.New("chart has no entries")

// WriteChart draws a horizontal bar chart of the report entries and encodes it
// as PNG into w.
func (r Report) WriteChart(w io.Writer) error {
	if len(r.Entries) == 0 {
		return ErrEmptyChart
	}
	fontOnce.Do(loadFont)
	if fontErr != nil {
		return fontErr
	}
	titleFace, labelFace := newFace(18), newFace(14)
	defer titleFace.Close()
	defer labelFace.Close()
	l := labelsFor(r.Language)

	height := chartMarginT + chartMarginB + chartRowH*len(r.Entries)
	dc := gg.NewContext(chartWidth, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	dc.SetFontFace(titleFace)
	dc.SetRGB(0.1, 0.1, 0.1)
	dc.DrawStringAnchored(l.chartTitle, chartWidth/2, 35, 0.5, 0.5)

	plotW := float64(chartWidth - chartLabelW - chartRightW)
	dc.SetFontFace(labelFace)
	for i, e := range r.Entries {
		y := float64(chartMarginT + i*chartRowH)
		barH := float64(chartRowH) * 0.6
		barW := plotW * e.Probability

		dc.SetRGB(0.1, 0.1, 0.1)
		dc.DrawStringAnchored(e.Label, chartLabelW-12, y+barH/2, 1, 0.5)

		dc.SetHexColor(barColors[i%len(barColors)])
		dc.DrawRectangle(chartLabelW, y, barW, barH)
		dc.Fill()

		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(e.Percent, chartLabelW+barW+8, y+barH/2, 0, 0.5)
	}

	axisY := float64(height - chartMarginB + 10)
	dc.SetRGB(0.4, 0.4, 0.4)
	dc.SetLineWidth(1)
	dc.DrawLine(chartLabelW, axisY, chartLabelW+plotW, axisY)
	dc.Stroke()
	dc.DrawStringAnchored(l.chartAxis, chartLabelW+plotW/2, axisY+25, 0.5, 0.5)

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode chart: %w", err)
	}
	return nil
}
