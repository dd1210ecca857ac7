package chart

import (
	"bytes"
	"fmt"
	"time"

	"github.com/pkg/errors"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ActivityHours is the number of hourly buckets shown on the activity chart.
const ActivityHours = 24

var flameColor = drawing.ColorFromHex("ff4500")

// Bucket is the number of generations in the hour starting at Start.
type Bucket struct {
	Start time.Time
	Count int
}

// HourlyActivity groups times into the last hours full hours ending with the
// hour that contains now. The oldest bucket comes first.
func HourlyActivity(times []time.Time, now time.Time, hours int) []Bucket {
	current := now.Truncate(time.Hour)
	first := current.Add(-time.Duration(hours-1) * time.Hour)

	buckets := make([]Bucket, hours)
	for i := range buckets {
		buckets[i].Start = first.Add(time.Duration(i) * time.Hour)
	}

	for _, t := range times {
		if t.Before(first) || t.After(now) {
			continue
		}
		idx := int(t.Sub(first) / time.Hour)
		if idx >= 0 && idx < hours {
			buckets[idx].Count++
		}
	}
	return buckets
}

// RenderActivity draws buckets as a PNG bar chart.
func RenderActivity(buckets []Bucket, loc *time.Location) ([]byte, error) {
	if len(buckets) == 0 {
		return nil, errors.New("no activity to render")
	}

	font, err := gochart.GetDefaultFont()
	if err != nil {
		return nil, errors.Wrap(err, "could not load chart font")
	}

	maxCount := 1
	bars := make([]gochart.Value, 0, len(buckets))
	for _, b := range buckets {
		if b.Count > maxCount {
			maxCount = b.Count
		}
		bars = append(bars, gochart.Value{
			Value: float64(b.Count),
			Label: b.Start.In(loc).Format("15h"),
			Style: gochart.Style{
				FillColor:   flameColor,
				StrokeColor: flameColor,
			},
		})
	}

	graph := gochart.BarChart{
		Title: fmt.Sprintf("Burning logos, last %d hours", len(buckets)),
		Font:  font,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40},
		},
		Width:      1200,
		Height:     500,
		BarWidth:   30,
		BarSpacing: 12,
		YAxis: gochart.YAxis{
			Range: &gochart.ContinuousRange{Min: 0, Max: float64(maxCount)},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Bars: bars,
	}

	buf := bytes.NewBuffer(nil)
	if err := graph.Render(gochart.PNG, buf); err != nil {
		return nil, errors.Wrap(err, "could not render activity chart")
	}
	return buf.Bytes(), nil
}
