package api

import (
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/imu.report/internal/db"
	"github.com/banshee-data/imu.report/internal/imu"
)

// axisNames labels the three payload values per record type.
func axisNames(record imu.RecordID) [3]string {
	if record == imu.RecordEuler {
		return [3]string{"roll", "pitch", "yaw"}
	}
	return [3]string{"x", "y", "z"}
}

// chronological reverses the newest-first archive order for plotting.
func chronological(samples []db.StoredSample) []db.StoredSample {
	out := make([]db.StoredSample, len(samples))
	for i, s := range samples {
		out[len(samples)-1-i] = s
	}
	return out
}

// handleAttitudeChart renders a quick HTML line chart of recent samples
// using go-echarts. Debugging aid, not part of the JSON API.
func (s *Server) handleAttitudeChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.db == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "sample archive disabled")
		return
	}

	record := s.recordParam(r, imu.RecordEuler)
	samples, err := s.db.RecentSamples(record, s.limitParam(r, 500))
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(samples) == 0 {
		s.writeJSONError(w, http.StatusNotFound, "no samples recorded for this record type")
		return
	}
	samples = chronological(samples)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s samples", record),
			Subtitle: fmt.Sprintf("newest %d archived samples", len(samples)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	timestamps := make([]string, len(samples))
	for i, sample := range samples {
		timestamps[i] = sample.Captured.Format("15:04:05.000")
	}
	line.SetXAxis(timestamps)

	names := axisNames(record)
	for axis := 0; axis < 3; axis++ {
		data := make([]opts.LineData, len(samples))
		for i, sample := range samples {
			data[i] = opts.LineData{Value: sample.Values[axis]}
		}
		line.AddSeries(names[axis], data)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := line.Render(w); err != nil {
		http.Error(w, fmt.Sprintf("failed to render chart: %v", err), http.StatusInternalServerError)
	}
}

// handleTracePNG renders recent samples as a PNG via gonum/plot for
// embedding in reports.
func (s *Server) handleTracePNG(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.db == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "sample archive disabled")
		return
	}

	record := s.recordParam(r, imu.RecordEuler)
	samples, err := s.db.RecentSamples(record, s.limitParam(r, 500))
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(samples) == 0 {
		s.writeJSONError(w, http.StatusNotFound, "no samples recorded for this record type")
		return
	}
	samples = chronological(samples)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s trace", record)
	p.X.Label.Text = "sample"
	p.Y.Label.Text = "value"

	names := axisNames(record)
	var lines []interface{}
	for axis := 0; axis < 3; axis++ {
		pts := make(plotter.XYs, len(samples))
		for i, sample := range samples {
			pts[i].X = float64(i)
			pts[i].Y = sample.Values[axis]
		}
		lines = append(lines, names[axis], pts)
	}
	if err := plotutil.AddLines(p, lines...); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writer, err := p.WriterTo(8*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if _, err := writer.WriteTo(w); err != nil {
		// Headers already sent; nothing useful to return to the client.
		return
	}
}
