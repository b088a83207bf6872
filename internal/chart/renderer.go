package chart

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sort"

	"github.com/joonhk-lab/kosis-agent/internal/domain"
)

const (
	chartWidth  = 640
	chartHeight = 400
	marginX     = 40
	marginY     = 30
)

var barPalette = []color.RGBA{
	{R: 0x4e, G: 0x79, B: 0xa7, A: 0xff},
	{R: 0xf2, G: 0x8e, B: 0x2b, A: 0xff},
	{R: 0xe1, G: 0x57, B: 0x59, A: 0xff},
	{R: 0x76, G: 0xb7, B: 0xb2, A: 0xff},
	{R: 0x59, G: 0xa1, B: 0x4f, A: 0xff},
	{R: 0xed, G: 0xc9, B: 0x48, A: 0xff},
	{R: 0xb0, G: 0x7a, B: 0xa1, A: 0xff},
}

// Render draws a bar chart of record counts per topic category and returns it
// PNG-encoded.
func Render(records []domain.NormalizedRecord) ([]byte, error) {
	if len(records) == 0 {
		return nil, errors.New("chart: no records to render")
	}

	counts := map[string]int{}
	for _, record := range records {
		counts[record.DataType]++
	}
	topics := make([]string, 0, len(counts))
	for topic := range counts {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	maxCount := 0
	for _, count := range counts {
		if count > maxCount {
			maxCount = count
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, chartWidth, chartHeight))
	fill(img, img.Bounds(), color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})

	plotWidth := chartWidth - 2*marginX
	plotHeight := chartHeight - 2*marginY
	slot := plotWidth / len(topics)
	barWidth := slot * 3 / 4
	if barWidth < 1 {
		barWidth = 1
	}

	for i, topic := range topics {
		barHeight := counts[topic] * plotHeight / maxCount
		if barHeight < 1 {
			barHeight = 1
		}
		x0 := marginX + i*slot + (slot-barWidth)/2
		y0 := chartHeight - marginY - barHeight
		fill(img, image.Rect(x0, y0, x0+barWidth, chartHeight-marginY), barPalette[i%len(barPalette)])
	}

	// Baseline.
	fill(img, image.Rect(marginX, chartHeight-marginY, chartWidth-marginX, chartHeight-marginY+2),
		color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func fill(img *image.RGBA, rect image.Rectangle, c color.RGBA) {
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}
