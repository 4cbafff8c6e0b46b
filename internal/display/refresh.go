package display

import (
	"context"
	"image"
	"image/color"
	"time"

	"github.com/rileyhilliard/ddmatrix/internal/logger"
)

// Snapshot is one rendered frame plus the text that produced it.
type Snapshot struct {
	Image      *image.RGBA
	Title      string
	Value      string
	TitleColor color.RGBA
	ValueColor color.RGBA
	Version    uint64
}

// Snapshot captures the current frame.
func (p *Panel) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{
		Image:      p.frameLocked(),
		Title:      p.title,
		Value:      p.value,
		TitleColor: p.titleColor,
		ValueColor: p.valueColor,
		Version:    p.version,
	}
}

// Sink receives frames from AutoRefresh.
type Sink interface {
	Show(s Snapshot) error
}

// AutoRefresh pushes a frame to sink whenever the panel changed, checking
// fps times a second until ctx is done. It plays the role of the matrix
// driver's own refresh and never blocks the caller updating the panel.
func (p *Panel) AutoRefresh(ctx context.Context, sink Sink, fps int) error {
	if fps <= 0 {
		fps = 20
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	var last uint64
	first := true
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if v := p.Version(); first || v != last {
			snap := p.Snapshot()
			if err := sink.Show(snap); err != nil {
				p.log.Warn("refresh failed: %v", err)
				continue
			}
			last = snap.Version
			first = false
		}
	}
}

// LogSink logs text changes instead of drawing pixels, for headless runs.
type LogSink struct {
	log         logger.Logger
	title, val  string
	initialised bool
}

func NewLogSink(l logger.Logger) *LogSink {
	if l == nil {
		l = logger.Noop()
	}
	return &LogSink{log: l}
}

func (s *LogSink) Show(snap Snapshot) error {
	if s.initialised && snap.Title == s.title && snap.Value == s.val {
		return nil
	}
	s.initialised = true
	s.title, s.val = snap.Title, snap.Value
	s.log.Info("panel: %q %q (%s)", snap.Title, snap.Value, HexString(snap.ValueColor))
	return nil
}

type discard struct{}

func (discard) Show(Snapshot) error { return nil }

// Discard drops every frame.
var Discard Sink = discard{}
