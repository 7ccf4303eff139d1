// Package tui provides a Bubble Tea terminal user interface for vgm-downloader.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/handiism/vgm-downloader/internal/config"
	"github.com/handiism/vgm-downloader/internal/download"
	"github.com/handiism/vgm-downloader/internal/model"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)

	albumStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))
)

const maxLogLines = 10

var errCancelled = errors.New("cancelled by user")

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateInitializing
	StateDownloading
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// Toggles are the run options switched on the input screen.
type Toggles struct {
	Lossy        bool // l
	NoLossless   bool // n
	OnlyImages   bool // i
	LoadFromFile bool // f
	Verbose      bool // v
}

// Options converts the toggles into manager options for albumURL.
func (t Toggles) Options(albumURL string) download.Options {
	return download.Options{
		AlbumURL: albumURL,
		Intent: model.CodecIntent{
			WantLossy:        t.Lossy,
			SuppressLossless: t.NoLossless,
		},
		LoadFromFile: t.LoadFromFile,
		OnlyImages:   t.OnlyImages,
	}
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	settings  *config.Settings
	logs      []LogEntry
	album     string
	err       error

	// Download context
	ctx    context.Context
	cancel context.CancelFunc

	// events carries manager progress events into Update.
	events chan download.ProgressEvent

	manager *download.Manager
	stats   download.Stats

	toggles Toggles

	width  int
	height int
}

// NewModel creates a new TUI model using settings for every download.
func NewModel(settings *config.Settings) Model {
	ti := textinput.New()
	ti.Placeholder = "https://downloads.khinsider.com/game-soundtracks/album/name"
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:     StateInput,
		textInput: ti,
		spinner:   sp,
		progress:  prog,
		settings:  settings,
		logs:      make([]LogEntry, 0),
		ctx:       ctx,
		cancel:    cancel,
		events:    make(chan download.ProgressEvent, 64),
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, waitForEvent(m.events))
}

// Message types
type (
	// ProgressMsg is sent when the manager reports an event.
	ProgressMsg struct {
		Event download.ProgressEvent
	}

	// InitDoneMsg is sent when initialization completes.
	InitDoneMsg struct {
		Album   string
		Manager *download.Manager
		Err     error
	}

	// DownloadDoneMsg is sent when all downloads complete.
	DownloadDoneMsg struct {
		Stats download.Stats
		Err   error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				return m, tea.Quit
			}
			if m.state == StateDownloading || m.state == StateInitializing {
				m.cancel()
				m.state = StateError
				m.err = errCancelled
			}

		case "enter":
			if m.state == StateInput && strings.TrimSpace(m.textInput.Value()) != "" {
				m.state = StateInitializing
				return m, tea.Batch(m.initializeDownload(), m.spinner.Tick)
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				m = m.reset()
				return m, nil
			}
		}

		if m.state == StateInput && m.toggle(msg.String()) {
			return m, nil
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		cmds = append(cmds, waitForEvent(m.events))
		if msg.Event.Level == download.LevelVerbose && !m.toggles.Verbose {
			break
		}
		m.logs = append(m.logs, LogEntry{Message: msg.Event.Message, Level: msg.Event.Level})
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}

	case InitDoneMsg:
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
		} else {
			m.album = msg.Album
			m.manager = msg.Manager
			m.stats = msg.Manager.GetProgress()
			m.state = StateDownloading
			cmds = append(cmds, m.startDownload(), m.tickProgress())
		}

	case DownloadDoneMsg:
		m.stats = msg.Stats
		switch {
		case m.ctx.Err() != nil:
			m.state = StateError
			m.err = errCancelled
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		default:
			m.state = StateComplete
		}

	case TickMsg:
		if m.manager != nil && m.state == StateDownloading {
			m.stats = m.manager.GetProgress()
			cmds = append(cmds, m.progress.SetPercent(m.percent()), m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// toggle flips the option bound to key and reports whether key was an option.
// The URL field keeps every other key.
func (m *Model) toggle(key string) bool {
	switch key {
	case "ctrl+l":
		m.toggles.Lossy = !m.toggles.Lossy
	case "ctrl+n":
		m.toggles.NoLossless = !m.toggles.NoLossless
	case "ctrl+o":
		m.toggles.OnlyImages = !m.toggles.OnlyImages
	case "ctrl+f":
		m.toggles.LoadFromFile = !m.toggles.LoadFromFile
	case "ctrl+v":
		m.toggles.Verbose = !m.toggles.Verbose
	default:
		return false
	}
	return true
}

func (m Model) reset() Model {
	m.state = StateInput
	m.logs = nil
	m.album = ""
	m.err = nil
	m.stats = download.Stats{}
	m.manager = nil
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.textInput.SetValue("")
	m.textInput.Focus()
	return m
}

func (m Model) percent() float64 {
	if m.stats.Total == 0 {
		return 0
	}
	done := m.stats.Downloaded + m.stats.Skipped + m.stats.Failed
	return float64(done) / float64(m.stats.Total)
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// waitForEvent delivers the next manager event as a ProgressMsg.
func waitForEvent(events <-chan download.ProgressEvent) tea.Cmd {
	return func() tea.Msg {
		return ProgressMsg{Event: <-events}
	}
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("♪ VGM Downloader"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Download video game soundtracks from khinsider"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateInitializing:
		b.WriteString(m.viewInitializing())
	case StateDownloading:
		b.WriteString(m.viewDownloading())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func check(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Enter album URL:"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s Also download lossy MP3 (ctrl+l)\n", check(m.toggles.Lossy))
	fmt.Fprintf(&b, "  %s Skip lossless (ctrl+n)\n", check(m.toggles.NoLossless))
	fmt.Fprintf(&b, "  %s Only download images (ctrl+o)\n", check(m.toggles.OnlyImages))
	fmt.Fprintf(&b, "  %s Resume from link list (ctrl+f)\n", check(m.toggles.LoadFromFile))
	fmt.Fprintf(&b, "  %s Verbose output (ctrl+v)\n", check(m.toggles.Verbose))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Output path: %s", m.settings.OutputPath)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewInitializing() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Resolving song links..."))
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewDownloading() string {
	var b strings.Builder

	if m.album != "" {
		b.WriteString(albumStyle.Render(fmt.Sprintf("♪ %s", m.album)))
		b.WriteString("\n\n")
	}

	b.WriteString(m.progress.ViewAs(m.percent()))
	b.WriteString("\n")

	b.WriteString(infoStyle.Render(fmt.Sprintf(
		"Files: %d/%d | Skipped: %d | Failed: %d | Downloaded: %s",
		m.stats.Downloaded,
		m.stats.Total,
		m.stats.Skipped,
		m.stats.Failed,
		humanize.Bytes(uint64(m.stats.Bytes)),
	)))
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	return boxStyle.Render(fmt.Sprintf(
		"Download Complete!\n\n"+
			"Album: %s\n"+
			"Files: %d/%d\n"+
			"Skipped: %d\n"+
			"Failed: %d\n"+
			"Size: %s",
		m.album,
		m.stats.Downloaded,
		m.stats.Total,
		m.stats.Skipped,
		m.stats.Failed,
		humanize.Bytes(uint64(m.stats.Bytes)),
	))
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("✗ Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		fmt.Fprintf(&b, "  %s", m.err.Error())
	}
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case download.LevelError:
			style = errorStyle
			prefix = "✗"
		case download.LevelWarning:
			style = warningStyle
			prefix = "!"
		case download.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case download.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateInput:
		return "enter: start • ctrl+l/n/o/f/v: toggle options • esc: quit"
	case StateInitializing, StateDownloading:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: new download • q: quit"
	}
	return ""
}

// initializeDownload creates the manager and resolves the album.
func (m Model) initializeDownload() tea.Cmd {
	ctx, events := m.ctx, m.events
	settings := *m.settings
	opts := m.toggles.Options(strings.TrimSpace(m.textInput.Value()))

	return func() tea.Msg {
		manager, err := download.NewManager(&settings, opts, func(event download.ProgressEvent) {
			select {
			case events <- event:
			case <-ctx.Done():
			}
		})
		if err != nil {
			return InitDoneMsg{Err: err}
		}

		if err := manager.Initialize(ctx); err != nil {
			return InitDoneMsg{Err: err}
		}

		return InitDoneMsg{
			Album:   manager.Album().Name,
			Manager: manager,
		}
	}
}

// startDownload runs the downloads in the background.
func (m Model) startDownload() tea.Cmd {
	ctx, manager := m.ctx, m.manager
	return func() tea.Msg {
		if manager == nil {
			return DownloadDoneMsg{Err: download.ErrNotInitialized}
		}
		err := manager.StartDownloads(ctx)
		return DownloadDoneMsg{Stats: manager.GetProgress(), Err: err}
	}
}

// Run starts the TUI application.
func Run(settings *config.Settings) error {
	p := tea.NewProgram(NewModel(settings), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
