package display

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/rileyhilliard/ddmatrix/internal/errors"
	"github.com/rileyhilliard/ddmatrix/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPanel(t *testing.T) *Panel {
	t.Helper()
	p, err := NewPanel(Options{Width: 64, Height: 32})
	require.NoError(t, err)
	return p
}

func TestHex(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 0xFF, A: 0xFF}, Hex(HexRed))
	assert.Equal(t, color.RGBA{B: 0xFF, A: 0xFF}, Hex(HexBlue))
	assert.Equal(t, color.RGBA{R: 0x00, G: 0x2F, B: 0xA7, A: 0xFF}, Cover)
	assert.Equal(t, "#ffffff", HexString(Neutral))
	assert.Equal(t, "#002fa7", HexString(Cover))
}

func TestNewPanel_InvalidSize(t *testing.T) {
	for _, size := range [][2]int{{0, 32}, {64, 0}, {-1, -1}} {
		_, err := NewPanel(Options{Width: size[0], Height: size[1]})
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrHardware))
	}
}

func TestNewPanel_Logo(t *testing.T) {
	dir := t.TempDir()

	logo := image.NewRGBA(image.Rect(0, 0, 64, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 64; x++ {
			logo.Set(x, y, color.RGBA{G: 0x80, A: 0xFF})
		}
	}
	path := filepath.Join(dir, "logo.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, logo))
	require.NoError(t, f.Close())

	p, err := NewPanel(Options{Width: 64, Height: 32, Logo: path})
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{G: 0x80, A: 0xFF}, p.Frame().RGBAAt(2, 30))

	t.Run("missing logo is skipped", func(t *testing.T) {
		log := logger.NewBufferLogger()
		p, err := NewPanel(Options{Width: 64, Height: 32, Logo: filepath.Join(dir, "nope.bmp"), Log: log})
		require.NoError(t, err)
		assert.Equal(t, Background, p.Frame().RGBAAt(2, 30))
		assert.True(t, log.HasLevel("warn"))
	})

	t.Run("undecodable logo is a hardware error", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.bmp")
		require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0644))
		_, err := NewPanel(Options{Width: 64, Height: 32, Logo: bad})
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrHardware))
	})
}

func TestPanel_Text(t *testing.T) {
	p := newTestPanel(t)
	v0 := p.Version()

	p.SetTitle("CPU", Neutral)
	p.SetValue("42%", Alert)

	assert.Equal(t, "CPU", p.Title())
	assert.Equal(t, "42%", p.Value())
	assert.Equal(t, Alert, p.ValueColor())
	assert.Equal(t, Neutral, p.TitleColor())
	assert.Greater(t, p.Version(), v0)

	v1 := p.Version()
	p.SetValue("42%", Alert)
	assert.Equal(t, v1, p.Version(), "unchanged text does not bump the version")
}

func hasColor(img *image.RGBA, r image.Rectangle, c color.RGBA) bool {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.RGBAAt(x, y) == c {
				return true
			}
		}
	}
	return false
}

func TestPanel_FrameDrawsTextInRegions(t *testing.T) {
	p := newTestPanel(t)
	p.SetTitle("Orders", Connecting)
	p.SetValue("12", Alert)

	img := p.Frame()
	assert.Equal(t, image.Rect(0, 0, 64, 32), img.Bounds())

	assert.True(t, hasColor(img, image.Rect(TitleX, 0, 64, TitleY+2), Connecting), "title drawn in its colour")
	assert.True(t, hasColor(img, image.Rect(ValueX, TitleY+2, 64, 32), Alert), "value drawn in its colour")
	assert.False(t, hasColor(img, image.Rect(0, 0, TitleX, 32), Alert), "nothing drawn left of the text anchors")
}

func TestPlayBootAnimation(t *testing.T) {
	p := newTestPanel(t)
	v0 := p.Version()

	require.NoError(t, p.PlayBootAnimation(context.Background()))

	y, on := p.CoverRow()
	assert.False(t, on, "cover removed after the reveal")
	assert.Equal(t, 32, y, "cover stops at the panel height")
	assert.Greater(t, p.Version(), v0+32, "every row step is a visible change")
	assert.Equal(t, Background, p.Frame().RGBAAt(0, 31))
}

func TestPlayBootAnimation_CoverDrawn(t *testing.T) {
	p, err := NewPanel(Options{Width: 64, Height: 32, BootStep: 20 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- p.PlayBootAnimation(ctx) }()

	require.Eventually(t, func() bool {
		y, on := p.CoverRow()
		return on && y >= 1
	}, time.Second, time.Millisecond)

	img := p.Frame()
	assert.Equal(t, Cover, img.RGBAAt(0, 31), "bottom row still covered")

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
	_, on := p.CoverRow()
	assert.False(t, on)
}

type recordingSink struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *recordingSink) Show(s Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
	return nil
}

func (r *recordingSink) values() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, s := range r.snaps {
		out = append(out, s.Value)
	}
	return out
}

func TestAutoRefresh_PushesOnChange(t *testing.T) {
	p := newTestPanel(t)
	sink := &recordingSink{}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- p.AutoRefresh(ctx, sink, 200) }()

	require.Eventually(t, func() bool { return len(sink.values()) == 1 }, time.Second, time.Millisecond)

	p.SetValue("1", Neutral)
	require.Eventually(t, func() bool {
		v := sink.values()
		return len(v) == 2 && v[1] == "1"
	}, time.Second, time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	assert.Len(t, sink.values(), 2, "no frames pushed while nothing changed")

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
}

func TestLogSink(t *testing.T) {
	log := logger.NewBufferLogger()
	sink := NewLogSink(log)

	require.NoError(t, sink.Show(Snapshot{Title: "CPU", Value: "12", ValueColor: Alert}))
	require.NoError(t, sink.Show(Snapshot{Title: "CPU", Value: "12", ValueColor: Alert}))
	require.NoError(t, sink.Show(Snapshot{Title: "CPU", Value: "13", ValueColor: Neutral}))

	require.Len(t, log.Messages, 2)
	assert.Contains(t, log.Messages[0].Message, `"CPU" "12" (#ff0000)`)
	assert.Contains(t, log.Messages[1].Message, `"13"`)

	assert.NoError(t, Discard.Show(Snapshot{}))
}

func TestRenderHalfBlocks(t *testing.T) {
	lipgloss.SetColorProfile(termenv.TrueColor)

	img := image.NewRGBA(image.Rect(0, 0, 2, 4))
	img.SetRGBA(0, 0, Alert)
	img.SetRGBA(0, 1, Connecting)

	out := RenderHalfBlocks(img)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2, "two pixel rows per terminal line")
	assert.Equal(t, 2, strings.Count(lines[0], upperHalf))
	assert.Contains(t, lines[0], "38;2;255;0;0", "top pixel is the foreground")
	assert.Contains(t, lines[0], "48;2;0;0;255", "bottom pixel is the background")
}

func TestTerminalModel(t *testing.T) {
	lipgloss.SetColorProfile(termenv.TrueColor)

	quit := false
	var m tea.Model = terminalModel{onQuit: func() { quit = true }}
	assert.Contains(t, m.View(), "waiting")

	p := newTestPanel(t)
	p.SetTitle("CPU", Neutral)
	m, _ = m.Update(frameMsg(p.Snapshot()))
	view := m.View()
	assert.Contains(t, view, upperHalf)
	assert.Contains(t, view, "q quit")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.True(t, quit)
	assert.Empty(t, m.View())
}
