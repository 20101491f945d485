package sunlightmeter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/ztkent/tsl2561-meter/internal/tools"
)

// Lux levels drawn as reference lines on the graph.
var lightLevels = []struct {
	lux   int
	title string
	color string
}{
	{500, "Shade", "DarkGrey"},
	{1000, "Partial Shade", "WhiteSmoke"},
	{10000, "Partial Sun", "SkyBlue"},
	{25000, "Full Sun", "Yellow"},
}

// Serve the sqlite db for download
func (m *SLMeter) ServeResultsDB() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filepath.Base(m.Config.DBPath)))
		w.Header().Set("Content-Type", "application/octet-stream")
		http.ServeFile(w, r, m.Config.DBPath)
	}
}

// Serve the lux graph for ?start=&end=
func (m *SLMeter) ServeResultsGraph() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Get the date range for the graph from the request
		startDate, endDate := tools.ParseStartAndEndDate(r, m.Config.Location, time.Now())

		// Query the database for the lux and created_at values
		rows, err := m.ResultsDB.QueryContext(r.Context(), "SELECT lux, created_at FROM readings WHERE created_at BETWEEN ? AND ? ORDER BY created_at", startDate, endDate)
		if err != nil {
			m.Log.WithError(err).Error("failed to query readings")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer rows.Close()

		// Prepare the data for the chart
		var luxValues []opts.LineData
		var timeValues []string
		maxLux := 5000
		for rows.Next() {
			var lux int64
			var createdAt time.Time
			if err := rows.Scan(&lux, &createdAt); err != nil {
				m.Log.WithError(err).Error("failed to scan reading")
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			if int(lux) > maxLux {
				// Round up to the nearest 5000
				maxLux = int(math.Ceil(float64(lux)/5000) * 5000)
			}
			luxValues = append(luxValues, opts.LineData{Value: lux})
			timeValues = append(timeValues, createdAt.In(m.Config.Location).Format(tools.LayoutDB))
		}
		if err := rows.Err(); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		line := charts.NewLine()
		for _, level := range lightLevels {
			data := make([]opts.LineData, len(timeValues))
			for i := range data {
				data[i] = opts.LineData{Value: level.lux}
			}
			line.AddSeries(level.title, data, charts.WithLineChartOpts(opts.LineChart{
				Color: level.color,
			}))
		}

		line.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{
				PageTitle: "Sunlight Meter",
				Theme:     types.ThemeChalk,
			}),
			charts.WithXAxisOpts(opts.XAxis{
				Name: "Time",
			}),
			charts.WithYAxisOpts(opts.YAxis{
				Name: "Lux",
				Min:  "0",
				Max:  fmt.Sprintf("%d", maxLux),
			}),
			charts.WithTooltipOpts(opts.Tooltip{
				Show:      true,
				Trigger:   "axis",
				TriggerOn: "mousemove",
				// the lux series follows the reference lines
				Formatter: fmt.Sprintf("{a%[1]d}: {c%[1]d}<br> Time: {b0}", len(lightLevels)),
			}),
			charts.WithToolboxOpts(opts.Toolbox{
				Show: true,
				Feature: &opts.ToolBoxFeature{
					SaveAsImage: &opts.ToolBoxFeatureSaveAsImage{
						Show:  true,
						Title: "Save as Image",
						Name:  "sunlight-meter",
					},
				},
			}),
		)
		line.SetXAxis(timeValues).AddSeries("Lux", luxValues)

		page := components.NewPage()
		page.AddCharts(line)

		w.Header().Set("Content-Type", "text/html")
		if err := page.Render(w); err != nil {
			m.Log.WithError(err).Error("failed to render graph")
		}
	}
}

// Serve the summary of readings for ?start=&end=
func (m *SLMeter) ServeConditions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conditions, err := m.getCurrentConditions(r.Context())
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			ServeResponse(w, r, err.Error(), http.StatusInternalServerError)
			return
		}
		startDate, endDate := tools.ParseStartAndEndDate(r, m.Config.Location, time.Now())
		conditions, err = m.getHistoricalConditions(r.Context(), conditions, startDate, endDate)
		if err != nil {
			m.Log.WithError(err).Error("failed to read historical conditions")
			ServeResponse(w, r, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, conditions)
	}
}

// Summarize the readings recorded between startDate and endDate
func (m *SLMeter) getHistoricalConditions(ctx context.Context, conditions Conditions, startDate string, endDate string) (Conditions, error) {
	if m.ResultsDB == nil {
		return conditions, nil
	}
	conditions.DateRange = fmt.Sprintf("%s - %s UTC", startDate, endDate)

	// Get the average lux for the date range
	row := m.ResultsDB.QueryRowContext(ctx, `
    SELECT
        COALESCE(AVG(lux), 0),
        MIN(created_at),
        MAX(created_at)
    FROM readings
    WHERE created_at BETWEEN ? AND ?`, startDate, endDate)
	var oldest, mostRecent sql.NullString
	err := row.Scan(&conditions.AverageLuxInRange, &oldest, &mostRecent)
	if err != nil {
		return conditions, err
	}
	if !oldest.Valid || !mostRecent.Valid {
		conditions.LightConditionInRange = "No Data in Range"
		return conditions, nil
	}

	// Count the minutes where the average lux was above 10k
	var fullSunMinutes int
	err = m.ResultsDB.QueryRowContext(ctx, `
    SELECT COUNT(*)
    FROM (
        SELECT AVG(lux) AS avg_lux
        FROM readings
        WHERE created_at BETWEEN ? AND ?
        GROUP BY strftime('%Y-%m-%d %H:%M', created_at)
    )
    WHERE avg_lux > 10000`, startDate, endDate).Scan(&fullSunMinutes)
	if err != nil {
		return conditions, err
	}
	conditions.FullSunlightInRange = float64(fullSunMinutes) / 60

	first, last, err := tools.StartAndEndDateToTime(oldest.String, mostRecent.String)
	if err != nil {
		return conditions, err
	}
	conditions.RecordedHoursInRange = last.Sub(first).Hours()
	conditions.LightConditionInRange = lightCondition(conditions.FullSunlightInRange, conditions.RecordedHoursInRange)
	return conditions, nil
}

// lightCondition classifies a range by the share of it spent in full sun.
func lightCondition(fullSunHours, recordedHours float64) string {
	if recordedHours <= 0 {
		if fullSunHours > 0 {
			return "Full Sun"
		}
		return "Shade"
	}
	share := fullSunHours / recordedHours
	switch {
	case share > 0.5:
		return "Full Sun"
	case share > 0.25:
		return "Partial Sun"
	case share > 0.1:
		return "Partial Shade"
	default:
		return "Shade"
	}
}
