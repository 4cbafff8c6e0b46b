// Package display models the 64x32 LED matrix as an in-memory framebuffer
// with a background logo, two text lines and a boot-time reveal cover.
// Frames are pushed to a Sink by AutoRefresh, independently of whoever is
// updating the text.
package display

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/png"
	"os"
	"sync"
	"time"

	"github.com/rileyhilliard/ddmatrix/internal/errors"
	"github.com/rileyhilliard/ddmatrix/internal/logger"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Surface is what the pollers and bootstrapper draw on.
type Surface interface {
	SetTitle(text string, c color.RGBA)
	SetValue(text string, c color.RGBA)
	PlayBootAnimation(ctx context.Context) error
	Title() string
	Value() string
}

// Text anchor positions. Y values are font baselines.
const (
	TitleX = 24
	TitleY = 11
	ValueX = 26
	ValueY = 25
)

// Options configures a Panel.
type Options struct {
	Width    int
	Height   int
	Logo     string        // optional BMP or PNG drawn as the background
	BootStep time.Duration // cover movement per row; 0 disables the delay
	Log      logger.Logger
}

// Panel is a software framebuffer standing in for the LED matrix.
type Panel struct {
	mu sync.Mutex

	width, height int
	background    *image.RGBA
	face          font.Face
	bootStep      time.Duration
	log           logger.Logger

	title, value           string
	titleColor, valueColor color.RGBA

	coverOn bool
	coverY  int

	version uint64
}

var _ Surface = (*Panel)(nil)

// NewPanel allocates the framebuffer. Invalid dimensions or an unreadable
// logo are HARDWARE errors. A logo path that does not exist is skipped.
func NewPanel(opts Options) (*Panel, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, errors.New(errors.ErrHardware,
			fmt.Sprintf("Cannot initialise a %dx%d panel", opts.Width, opts.Height),
			"Set display.width and display.height to the matrix size, e.g. 64x32")
	}
	if opts.Log == nil {
		opts.Log = logger.Noop()
	}

	p := &Panel{
		width:      opts.Width,
		height:     opts.Height,
		background: image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height)),
		face:       basicfont.Face7x13,
		bootStep:   opts.BootStep,
		log:        opts.Log,
		titleColor: Neutral,
		valueColor: Neutral,
	}
	draw.Draw(p.background, p.background.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)

	if opts.Logo != "" {
		if err := p.loadLogo(opts.Logo); err != nil {
			return nil, err
		}
	}

	return p, nil
}

func (p *Panel) loadLogo(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			p.log.Warn("logo %s not found, using a blank background", path)
			return nil
		}
		return errors.WrapWithCode(err, errors.ErrHardware,
			"Cannot open logo "+path, "Check file permissions")
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrHardware,
			"Cannot decode logo "+path,
			"The logo must be a BMP or PNG image")
	}
	draw.Draw(p.background, p.background.Bounds(), img, img.Bounds().Min, draw.Src)
	p.log.Debug("loaded %s logo %s (%dx%d)", format, path, img.Bounds().Dx(), img.Bounds().Dy())
	return nil
}

// Bounds returns the panel size.
func (p *Panel) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.width, p.height)
}

func (p *Panel) SetTitle(text string, c color.RGBA) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.title == text && p.titleColor == c {
		return
	}
	p.title, p.titleColor = text, c
	p.version++
}

func (p *Panel) SetValue(text string, c color.RGBA) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.value == text && p.valueColor == c {
		return
	}
	p.value, p.valueColor = text, c
	p.version++
}

func (p *Panel) Title() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.title
}

func (p *Panel) Value() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// TitleColor returns the current title colour.
func (p *Panel) TitleColor() color.RGBA {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.titleColor
}

// ValueColor returns the current value colour.
func (p *Panel) ValueColor() color.RGBA {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.valueColor
}

// Version increases every time the visible content changes.
func (p *Panel) Version() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.version
}

// CoverRow returns the cover's top row and whether it is shown.
func (p *Panel) CoverRow() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.coverY, p.coverOn
}

// PlayBootAnimation slides an opaque cover down off the panel one row per
// step, revealing the background, then removes the cover layer.
func (p *Panel) PlayBootAnimation(ctx context.Context) error {
	p.mu.Lock()
	p.coverOn, p.coverY = true, 0
	p.version++
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.coverOn = false
		p.version++
		p.mu.Unlock()
	}()

	var tick <-chan time.Time
	if p.bootStep > 0 {
		t := time.NewTicker(p.bootStep)
		defer t.Stop()
		tick = t.C
	}

	for {
		p.mu.Lock()
		if p.coverY >= p.height {
			p.mu.Unlock()
			return nil
		}
		p.coverY++
		p.version++
		p.mu.Unlock()

		if tick == nil {
			if err := ctx.Err(); err != nil {
				return err
			}
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
		}
	}
}

// Frame composes background, text and cover into a new image.
func (p *Panel) Frame() *image.RGBA {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frameLocked()
}

func (p *Panel) frameLocked() *image.RGBA {
	img := image.NewRGBA(p.background.Bounds())
	draw.Draw(img, img.Bounds(), p.background, image.Point{}, draw.Src)

	p.drawText(img, TitleX, TitleY, p.title, p.titleColor)
	p.drawText(img, ValueX, ValueY, p.value, p.valueColor)

	if p.coverOn && p.coverY < p.height {
		r := image.Rect(0, p.coverY, p.width, p.height)
		draw.Draw(img, r, image.NewUniform(Cover), image.Point{}, draw.Src)
	}
	return img
}

func (p *Panel) drawText(img *image.RGBA, x, y int, s string, c color.RGBA) {
	if s == "" {
		return
	}
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: p.face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
