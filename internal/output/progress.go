package output

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Progress reports a run of steps, one per registry.
type Progress interface {
	Start(ctx context.Context) error
	// Begin marks name as the step in flight.
	Begin(name string)
	// Finish completes the step in flight.
	Finish(name string, err error)
	Stop() error
}

// NewProgress returns a spinner display for terminals and plain lines
// otherwise. verb labels the steps, e.g. "Updating".
func NewProgress(out io.Writer, verb string, total int) Progress {
	if f, ok := out.(*os.File); ok && IsTTY(out) && !DetectNoColor() {
		return newTUIProgress(f, verb, total)
	}
	return &PlainProgress{out: out, verb: verb, total: total}
}

// PlainProgress prints one line per step, for pipes and CI.
type PlainProgress struct {
	mu    sync.Mutex
	out   io.Writer
	verb  string
	total int
	index int
}

// Start implements Progress.
func (p *PlainProgress) Start(context.Context) error {
	return nil
}

// Begin implements Progress.
func (p *PlainProgress) Begin(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.index++
	_, _ = fmt.Fprintf(p.out, "[%d/%d] %s %s\n", p.index, p.total, p.verb, name)
}

// Finish implements Progress. Outcomes are reported by the caller.
func (p *PlainProgress) Finish(string, error) {}

// Stop implements Progress.
func (p *PlainProgress) Stop() error {
	return nil
}

type (
	beginMsg  string
	finishMsg struct{}
)

// TUIProgress renders a spinner and bar with bubbletea.
type TUIProgress struct {
	mu      sync.Mutex
	out     *os.File
	model   *progressModel
	program *tea.Program
	done    chan struct{}
}

func newTUIProgress(out *os.File, verb string, total int) *TUIProgress {
	return &TUIProgress{
		out:   out,
		model: newProgressModel(verb, total),
		done:  make(chan struct{}),
	}
}

// Start implements Progress.
func (t *TUIProgress) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.program != nil {
		return nil
	}
	t.program = tea.NewProgram(t.model,
		tea.WithContext(ctx),
		tea.WithOutput(t.out),
		tea.WithInput(nil),
	)
	go func() {
		defer close(t.done)
		_, _ = t.program.Run()
	}()
	return nil
}

// Begin implements Progress.
func (t *TUIProgress) Begin(name string) {
	t.send(beginMsg(name))
}

// Finish implements Progress.
func (t *TUIProgress) Finish(string, error) {
	t.send(finishMsg{})
}

func (t *TUIProgress) send(msg tea.Msg) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.program != nil {
		t.program.Send(msg)
	}
}

// Stop implements Progress. It waits briefly for the program to clear
// its line.
func (t *TUIProgress) Stop() error {
	t.mu.Lock()
	program := t.program
	t.mu.Unlock()
	if program == nil {
		return nil
	}
	program.Quit()
	select {
	case <-t.done:
	case <-time.After(2 * time.Second):
		program.Kill()
	}
	return nil
}

// progressModel is the bubbletea model behind TUIProgress.
type progressModel struct {
	verb     string
	current  string
	finished int
	total    int
	quitting bool
	spinner  spinner.Model
	bar      progress.Model
	styles   Styles
}

func newProgressModel(verb string, total int) *progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime))

	bar := progress.New(
		progress.WithSolidFill(ColorLime),
		progress.WithWidth(30),
		progress.WithoutPercentage(),
	)

	return &progressModel{
		verb:    verb,
		total:   total,
		spinner: s,
		bar:     bar,
		styles:  DefaultStyles(lipgloss.DefaultRenderer()),
	}
}

// Init implements tea.Model.
func (m *progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
	case beginMsg:
		m.current = string(msg)
	case finishMsg:
		if m.finished < m.total {
			m.finished++
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *progressModel) View() string {
	if m.quitting {
		return ""
	}
	var percent float64
	if m.total > 0 {
		percent = float64(m.finished) / float64(m.total)
	}
	label := m.verb
	if m.current != "" {
		label += " " + m.styles.Accent.Render(m.current)
	}
	return fmt.Sprintf("%s %s  %s %s\n",
		m.spinner.View(),
		label,
		m.bar.ViewAs(percent),
		m.styles.Dim.Render(fmt.Sprintf("%d/%d", m.finished, m.total)))
}
