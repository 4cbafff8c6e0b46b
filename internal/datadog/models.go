package datadog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Response is a decoded /api/v1/query reply plus the rate-limit headers that
// came with it.
type Response struct {
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Query     string    `json:"query"`
	FromDate  int64     `json:"from_date"`
	ToDate    int64     `json:"to_date"`
	Series    []Series  `json:"series"`
	RateLimit RateLimit `json:"-"`
}

// Series is one time series in a query reply.
type Series struct {
	Metric    string  `json:"metric"`
	Scope     string  `json:"scope"`
	Expr      string  `json:"expression"`
	Length    int     `json:"length"`
	Pointlist []Point `json:"pointlist"`
}

// Point is a [timestamp_ms, value] pair. Null is set when the API sent null
// for the value.
type Point struct {
	Timestamp time.Time
	Value     float64
	Null      bool
}

var jsonNull = []byte("null")

// UnmarshalJSON decodes the two-element array form used by the API.
func (p *Point) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("point: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("point: want 2 elements, got %d", len(raw))
	}

	var ms float64
	if err := json.Unmarshal(raw[0], &ms); err != nil {
		return fmt.Errorf("point timestamp: %w", err)
	}
	p.Timestamp = time.UnixMilli(int64(ms))

	if bytes.Equal(bytes.TrimSpace(raw[1]), jsonNull) {
		p.Value = 0
		p.Null = true
		return nil
	}
	if err := json.Unmarshal(raw[1], &p.Value); err != nil {
		return fmt.Errorf("point value: %w", err)
	}
	p.Null = false
	return nil
}

// MarshalJSON encodes the point back into the API's array form.
func (p Point) MarshalJSON() ([]byte, error) {
	ts := p.Timestamp.UnixMilli()
	if p.Null {
		return []byte(fmt.Sprintf("[%d,null]", ts)), nil
	}
	return json.Marshal([]any{ts, p.Value})
}

// RateLimit mirrors the x-ratelimit-* response headers. Known is false when
// the remaining count was absent or unparseable.
type RateLimit struct {
	Remaining int
	Limit     int
	Period    int
	Reset     int
	Known     bool
}

// Header names sent by the API on every reply.
const (
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitPeriod    = "X-RateLimit-Period"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
)

// ParseRateLimit reads the rate-limit headers from h.
func ParseRateLimit(h http.Header) RateLimit {
	var rl RateLimit
	remaining, err := strconv.Atoi(h.Get(HeaderRateLimitRemaining))
	if err != nil {
		return rl
	}
	rl.Remaining = remaining
	rl.Known = true
	rl.Limit, _ = strconv.Atoi(h.Get(HeaderRateLimitLimit))
	rl.Period, _ = strconv.Atoi(h.Get(HeaderRateLimitPeriod))
	rl.Reset, _ = strconv.Atoi(h.Get(HeaderRateLimitReset))
	return rl
}

// Below reports whether the remaining quota is known and under floor.
func (r RateLimit) Below(floor int) bool {
	return r.Known && r.Remaining < floor
}
