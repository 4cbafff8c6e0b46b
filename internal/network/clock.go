package network

import (
	"context"
	"time"

	"github.com/beevik/ntp"
)

// TimeSource fetches wall-clock time from the network. ok is false when the
// source answered but the time is not usable yet; callers retry.
type TimeSource interface {
	Query(ctx context.Context) (t time.Time, ok bool, err error)
}

// NTPSource queries an NTP server.
type NTPSource struct {
	Server  string
	Timeout time.Duration
	query   func(host string, opt ntp.QueryOptions) (*ntp.Response, error)
}

var _ TimeSource = (*NTPSource)(nil)

func NewNTPSource(server string, timeout time.Duration) *NTPSource {
	return &NTPSource{Server: server, Timeout: timeout, query: ntp.QueryWithOptions}
}

func (s *NTPSource) Query(ctx context.Context) (time.Time, bool, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, false, err
	}
	resp, err := s.query(s.Server, ntp.QueryOptions{Timeout: s.Timeout})
	if err != nil {
		return time.Time{}, false, err
	}
	if err := resp.Validate(); err != nil {
		return time.Time{}, false, nil
	}
	return time.Now().Add(resp.ClockOffset), true, nil
}

// Clock is the host clock corrected by the offset measured at boot.
type Clock struct {
	Offset time.Duration
}

// Now returns the corrected current time.
func (c Clock) Now() time.Time {
	return time.Now().Add(c.Offset)
}
