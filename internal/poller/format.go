package poller

import (
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/rileyhilliard/ddmatrix/internal/datadog"
	"github.com/rileyhilliard/ddmatrix/internal/display"
	"github.com/rileyhilliard/ddmatrix/internal/errors"
)

// PercentMarker in a query's text makes its value render as a percentage.
const PercentMarker = "percent_usage"

// IsPercentQuery reports whether query should be shown as a percentage.
func IsPercentQuery(query string) bool {
	return strings.Contains(query, PercentMarker)
}

// FormatLatest renders a single-value metric:
//   - percent queries: value*100 with no decimals and a trailing %
//   - places < 1: the integer part, truncated toward zero
//   - otherwise: exactly places decimals
func FormatLatest(query string, value float64, places int) string {
	if IsPercentQuery(query) {
		return strconv.FormatFloat(value*100, 'f', 0, 64) + "%"
	}
	if places < 1 {
		return formatTruncated(value)
	}
	return strconv.FormatFloat(value, 'f', places, 64)
}

// FormatTotal renders a summed metric with its fractional part dropped.
func FormatTotal(sum float64) string {
	return formatTruncated(sum)
}

// formatTruncated drops the fractional part without going through an
// integer type, so values beyond int64 keep their digits.
func formatTruncated(v float64) string {
	t := math.Trunc(v)
	if t == 0 {
		t = 0 // no "-0"
	}
	return strconv.FormatFloat(t, 'f', 0, 64)
}

// ValueColor picks the alert colour when value is strictly above threshold.
func ValueColor(value, threshold float64) color.RGBA {
	if value > threshold {
		return display.Alert
	}
	return display.Neutral
}

func noData(query string) error {
	return errors.New(errors.ErrNoData,
		"No data returned for "+query,
		"The metric may not have reported in the lookback window")
}

// LastPoint returns the value of the last point of the first series.
// A missing series, an empty point list, or a null last value is NODATA.
func LastPoint(resp *datadog.Response) (float64, error) {
	if resp == nil || len(resp.Series) == 0 || len(resp.Series[0].Pointlist) == 0 {
		return 0, noData(queryOf(resp))
	}
	points := resp.Series[0].Pointlist
	last := points[len(points)-1]
	if last.Null {
		return 0, noData(queryOf(resp))
	}
	return last.Value, nil
}

// SumPoints adds the non-null points of the first series. Grouped queries
// return one series per group; only the first is shown, as with LastPoint.
// A missing series or an empty point list is NODATA.
func SumPoints(resp *datadog.Response) (float64, error) {
	if resp == nil || len(resp.Series) == 0 || len(resp.Series[0].Pointlist) == 0 {
		return 0, noData(queryOf(resp))
	}
	var sum float64
	for _, p := range resp.Series[0].Pointlist {
		if !p.Null {
			sum += p.Value
		}
	}
	return sum, nil
}

func queryOf(resp *datadog.Response) string {
	if resp == nil || resp.Query == "" {
		return "query"
	}
	return resp.Query
}
