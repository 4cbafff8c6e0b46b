package display

import (
	"context"
	"image"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// upperHalf draws the top pixel in the foreground colour and the bottom
// pixel in the background colour, so one cell shows two rows.
const upperHalf = "▀"

// RenderHalfBlocks draws img using one terminal cell per two pixel rows.
func RenderHalfBlocks(img *image.RGBA) string {
	b := img.Bounds()
	var sb strings.Builder
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		for x := b.Min.X; x < b.Max.X; x++ {
			style := lipgloss.NewStyle().Foreground(lipgloss.Color(HexString(img.RGBAAt(x, y))))
			if y+1 < b.Max.Y {
				style = style.Background(lipgloss.Color(HexString(img.RGBAAt(x, y+1))))
			}
			sb.WriteString(style.Render(upperHalf))
		}
		if y+2 < b.Max.Y {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

type terminalKeyMap struct {
	Quit key.Binding
}

var terminalKeys = terminalKeyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

var (
	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8"))
	captionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// frameMsg carries a new snapshot into the bubbletea loop.
type frameMsg Snapshot

// terminalModel is the Bubble Tea model for the LED emulator.
type terminalModel struct {
	snap     Snapshot
	hasFrame bool
	quitting bool
	onQuit   func()
}

func (m terminalModel) Init() tea.Cmd {
	return nil
}

func (m terminalModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, terminalKeys.Quit) {
			m.quitting = true
			if m.onQuit != nil {
				m.onQuit()
			}
			return m, tea.Quit
		}
	case frameMsg:
		m.snap = Snapshot(msg)
		m.hasFrame = true
	}
	return m, nil
}

func (m terminalModel) View() string {
	if m.quitting {
		return ""
	}
	if !m.hasFrame {
		return captionStyle.Render("waiting for panel...")
	}
	caption := captionStyle.Render(terminalKeys.Quit.Help().Key + " " + terminalKeys.Quit.Help().Desc)
	return frameStyle.Render(RenderHalfBlocks(m.snap.Image)) + "\n" + caption
}

// TerminalSink shows frames in the terminal as an LED emulator. Pressing q
// or ctrl+c calls onQuit, which the caller uses to cancel the run.
type TerminalSink struct {
	program *tea.Program
}

func NewTerminalSink(onQuit func(), opts ...tea.ProgramOption) *TerminalSink {
	m := terminalModel{onQuit: onQuit}
	return &TerminalSink{program: tea.NewProgram(m, opts...)}
}

// Run blocks until the program exits or ctx is done.
func (t *TerminalSink) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		t.program.Quit()
	}()
	_, err := t.program.Run()
	return err
}

func (t *TerminalSink) Show(s Snapshot) error {
	t.program.Send(frameMsg(s))
	return nil
}
