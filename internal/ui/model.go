package ui

import (
	"path/filepath"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"udonsharp/internal/buildpipeline"
)

const defaultWidth = 80

// compileModel renders batch compile progress, one row per script, until
// the event channel is closed.
type compileModel struct {
	title   string
	events  <-chan buildpipeline.Event
	spinner spinner.Model
	bar     progress.Model
	rows    []scriptRow
	byPath  map[string]int
	failure string // pipeline-level error, not tied to a script
	width   int
	done    bool
}

type pipelineEvent buildpipeline.Event
type pipelineClosed struct{}

// NewProgressModel returns a Bubble Tea model for compiling files, fed by
// events.
func NewProgressModel(title string, files []string, events <-chan buildpipeline.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = accentStyle

	bar := progress.New(progress.WithSolidFill("6"), progress.WithoutPercentage())
	bar.Width = defaultWidth - 4

	m := &compileModel{
		title:   title,
		events:  events,
		spinner: sp,
		bar:     bar,
		rows:    make([]scriptRow, len(files)),
		byPath:  make(map[string]int, len(files)),
		width:   defaultWidth,
	}
	for i, file := range files {
		m.rows[i] = scriptRow{path: file, stage: buildpipeline.StageLoad}
		m.byPath[pathKey(file)] = i
	}
	return m
}

// pathKey matches driver paths against the listed ones; the driver cleans
// paths, the caller may not have.
func pathKey(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}

func (m *compileModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.next())
}

func (m *compileModel) next() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return pipelineClosed{}
		}
		return pipelineEvent(ev)
	}
}

func (m *compileModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case pipelineEvent:
		return m, tea.Batch(m.handle(buildpipeline.Event(msg)), m.next())
	case pipelineClosed:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.bar.Width = max(msg.Width-4, 10)
		}
	case spinner.TickMsg:
		if !m.done {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}
	return m, nil
}

// handle applies one pipeline event and animates the bar towards the new
// completion ratio.
func (m *compileModel) handle(ev buildpipeline.Event) tea.Cmd {
	if ev.File == "" {
		if ev.Status == buildpipeline.StatusError && ev.Err != nil {
			m.failure = ev.Err.Error()
		}
		return nil
	}
	idx, ok := m.byPath[pathKey(ev.File)]
	if !ok || !m.rows[idx].apply(ev) {
		return nil
	}
	return m.bar.SetPercent(m.completion())
}

func (m *compileModel) completion() float64 {
	if len(m.rows) == 0 {
		return 0
	}
	var sum float64
	for i := range m.rows {
		sum += m.rows[i].fraction()
	}
	return sum / float64(len(m.rows))
}
