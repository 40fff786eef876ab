package metrics

import (
	"sync"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
)

// History is a sink that keeps every logged series in memory, for
// end-of-run summaries and the loss-curve chart.
type History struct {
	mu     sync.Mutex
	series map[string][]Point
}

// Point is one logged value of a series.
type Point struct {
	Step  int
	Value float64
}

// Summary holds descriptive statistics of one series.
type Summary struct {
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	Median float64
	Last   float64
}

func NewHistory() *History {
	return &History{series: make(map[string][]Point)}
}

func (h *History) Log(name string, value float64, step int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.series[name] = append(h.series[name], Point{Step: step, Value: value})
}

// Series returns a copy of the named series in logging order.
func (h *History) Series(name string) []Point {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Point(nil), h.series[name]...)
}

// Names returns the logged series names, unordered.
func (h *History) Names() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, 0, len(h.series))
	for name := range h.series {
		names = append(names, name)
	}
	return names
}

// Summarize computes descriptive statistics for one series.
func (h *History) Summarize(name string) (Summary, error) {
	points := h.Series(name)
	if len(points) == 0 {
		return Summary{}, errors.Errorf("metrics: no series named %q", name)
	}
	values := make(stats.Float64Data, len(points))
	for i, p := range points {
		values[i] = p.Value
	}

	min, err := values.Min()
	if err != nil {
		return Summary{}, errors.Wrap(err, "metrics summary")
	}
	max, _ := values.Max()
	mean, _ := values.Mean()
	median, _ := values.Median()

	return Summary{
		Count:  len(points),
		Min:    min,
		Max:    max,
		Mean:   mean,
		Median: median,
		Last:   points[len(points)-1].Value,
	}, nil
}
