package metrics

import (
	"os"

	"github.com/pkg/errors"
	"github.com/wcharczuk/go-chart/v2"
)

// RenderLossCurve draws the named series (typically the train and
// validation epoch losses) as a PNG line chart at path.
func RenderLossCurve(h *History, names []string, path string) error {
	var series []chart.Series
	for _, name := range names {
		points := h.Series(name)
		if len(points) < 2 {
			continue
		}
		xs := make([]float64, len(points))
		ys := make([]float64, len(points))
		for i, p := range points {
			xs[i] = float64(p.Step)
			ys[i] = p.Value
		}
		series = append(series, chart.ContinuousSeries{
			Name:    name,
			XValues: xs,
			YValues: ys,
		})
	}
	if len(series) == 0 {
		return errors.New("metrics: no series with enough points to chart")
	}

	graph := chart.Chart{
		XAxis:  chart.XAxis{Name: "epoch"},
		YAxis:  chart.YAxis{Name: "loss"},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create chart file")
	}
	defer file.Close()
	if err := graph.Render(chart.PNG, file); err != nil {
		return errors.Wrap(err, "render loss curve")
	}
	return nil
}
