// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jeranaias/chatdesk/internal/config"
	"github.com/jeranaias/chatdesk/internal/export"
	"github.com/jeranaias/chatdesk/internal/model"
	"github.com/jeranaias/chatdesk/internal/session"
	"github.com/jeranaias/chatdesk/internal/storage"
	"github.com/jeranaias/chatdesk/internal/ui/styles"
)

// maxInputChars bounds a single prompt.
const maxInputChars = 4096

// =============================================================================
// MODEL
// =============================================================================

// Config holds the collaborators of the chat screen.
type Config struct {
	Shell *session.Shell
	State *session.State
	// Store persists the session after every turn. Optional.
	Store storage.Store
	UI    config.UIConfig
	Theme *styles.Theme
	// BackendURL is shown in the header. Empty shows "not configured".
	BackendURL string
	Export     *export.Options
	Logger     zerolog.Logger
}

// Model is the Bubble Tea model of the chat screen.
type Model struct {
	shell      *session.Shell
	sess       *session.State
	store      storage.Store
	ui         config.UIConfig
	theme      *styles.Theme
	backendURL string
	exportOpts *export.Options
	logger     zerolog.Logger

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	help     help.Model
	keyMap   KeyMap
	renderer *messageRenderer

	// Pointer so the mutex survives Bubble Tea's value copies.
	cancelMgr *cancelManager

	busy      bool
	busyLabel string
	status    string
	statusErr bool
	showHelp  bool
	// clearedAt hides entries before this index after /clear.
	clearedAt int
	// resumeCtx is set when a restored session awaits its reply.
	resumeCtx context.Context

	width  int
	height int
}

// New creates the chat model.
func New(cfg Config) Model {
	theme := cfg.Theme
	if theme == nil {
		theme = styles.NewTheme(cfg.UI.Theme)
	}
	st := cfg.State
	if st == nil {
		st = session.Init(cfg.UI.Greeting)
	}
	exportOpts := cfg.Export
	if exportOpts == nil {
		exportOpts = export.DefaultOptions()
		if cfg.UI.Title != "" {
			exportOpts.Title = cfg.UI.Title
		}
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.PromptStyle = theme.InputPrompt
	ti.Placeholder = cfg.UI.Placeholder
	ti.CharLimit = maxInputChars
	ti.Focus()

	sp := spinner.New(
		spinner.WithSpinner(spinner.Spinner{
			Frames: []string{"|", "/", "-", "\\"},
			FPS:    spinner.Line.FPS,
		}),
		spinner.WithStyle(theme.Spinner),
	)

	logger := cfg.Logger.With().Str("component", "tui").Logger()

	m := Model{
		shell:      cfg.Shell,
		sess:       st,
		store:      cfg.Store,
		ui:         cfg.UI,
		theme:      theme,
		backendURL: cfg.BackendURL,
		exportOpts: exportOpts,
		logger:     logger,
		viewport:   viewport.New(80, 20),
		input:      ti,
		spinner:    sp,
		help:       help.New(),
		keyMap:     DefaultKeyMap(),
		renderer:   newMessageRenderer(theme, logger),
		cancelMgr:  newCancelManager(),
	}
	m.renderer.setWidth(theme.ContentWidth())

	// A restored session may end with an unanswered question.
	if st.Pending() && cfg.Shell != nil {
		m.busy = true
		m.busyLabel = cfg.UI.BusyText
		m.input.Blur()
		m.resumeCtx = m.cancelMgr.start()
	}
	m.updateViewport()
	return m
}

// State returns the session shown by the model.
func (m Model) State() *session.State {
	return m.sess
}

// Busy reports whether a request is in flight.
func (m Model) Busy() bool {
	return m.busy
}

// Status returns the status line text and whether it reports an error.
func (m Model) Status() (string, bool) {
	return m.status, m.statusErr
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.resumeCtx != nil {
		cmds = append(cmds, m.spinner.Tick, m.respondCmd(m.resumeCtx))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TurnCompleteMsg:
		return m.handleTurnComplete(msg)

	case UploadCompleteMsg:
		return m.handleUploadComplete(msg)

	case ExportCompleteMsg:
		if msg.Err != nil {
			m.setStatus("Export failed: "+msg.Err.Error(), true)
		} else {
			m.setStatus("Transcript written to "+msg.Path, false)
		}
		return m, nil

	case SavedMsg:
		if msg.Err != nil {
			m.logger.Error().Err(msg.Err).Str("session", m.sess.ID()).Msg("failed to save session")
			m.setStatus("Could not save the session: "+msg.Err.Error(), true)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	default:
		var cmds []tea.Cmd
		if !m.busy {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)
	}
}

// =============================================================================
// HANDLERS
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	// Header (3 with border) + input (2) + status bar (1).
	const reserved = 6
	vh := m.height - reserved
	if vh < 1 {
		vh = 1
	}
	m.viewport.Width = m.width
	m.viewport.Height = vh

	iw := m.width - 4
	if iw < 10 {
		iw = 10
	}
	m.input.Width = iw
	m.help.Width = m.width

	m.renderer.setWidth(m.theme.ContentWidth())
	m.updateViewport()
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		m.cancelMgr.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Cancel):
		if m.busy {
			if m.cancelMgr.cancel() {
				m.setStatus("Canceling...", false)
			}
			return m, nil
		}
		m.showHelp = false
		return m, nil

	case key.Matches(msg, m.keyMap.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keyMap.Clear):
		return m.runCommand("/clear")

	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keyMap.Top):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keyMap.Bottom):
		m.viewport.GotoBottom()
		return m, nil

	case key.Matches(msg, m.keyMap.Submit):
		if m.busy {
			return m, nil
		}
		return m.submit()
	}

	if m.busy {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit handles Enter: commands run directly, prompts start a turn.
func (m Model) submit() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())
	if value == "" {
		return m, nil
	}
	m.input.Reset()

	if strings.HasPrefix(value, "/") {
		return m.runCommand(value)
	}
	return m.startTurn(value)
}

// startTurn appends the user entry now and requests the reply off the UI
// goroutine.
func (m Model) startTurn(prompt string) (tea.Model, tea.Cmd) {
	prompt = session.NormalizeInput(prompt)
	if m.shell == nil {
		m.setStatus("No chat backend available.", true)
		return m, nil
	}

	m.sess.Append(model.NewUserMessage(prompt))
	m.busy = true
	m.busyLabel = m.ui.BusyText
	m.status = ""
	m.input.Blur()
	m.updateViewport()

	ctx := m.cancelMgr.start()
	return m, tea.Batch(m.spinner.Tick, m.respondCmd(ctx))
}

func (m Model) respondCmd(ctx context.Context) tea.Cmd {
	shell, st := m.shell, m.sess
	return func() tea.Msg {
		msg, err := shell.Respond(ctx, st)
		return TurnCompleteMsg{Message: msg, Err: err}
	}
}

func (m Model) handleTurnComplete(msg TurnCompleteMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	m.resumeCtx = nil
	m.cancelMgr.cancel()
	m.input.Focus()

	if msg.Err != nil {
		m.setStatus(session.DescribeError(msg.Err), true)
	} else {
		m.status = ""
	}
	m.updateViewport()

	cmds := []tea.Cmd{textinput.Blink}
	if m.store != nil {
		cmds = append(cmds, saveCmd(m.store, m.sess))
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleUploadComplete(msg UploadCompleteMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	m.cancelMgr.cancel()
	m.input.Focus()

	if msg.Err != nil {
		if errors.Is(msg.Err, context.Canceled) {
			m.setStatus("Upload canceled.", true)
		} else {
			m.setStatus("Upload failed: "+session.DescribeError(msg.Err), true)
		}
		return m, textinput.Blink
	}

	text := fmt.Sprintf("Uploaded %s", strings.Join(msg.Files, ", "))
	if reply := strings.TrimSpace(msg.Reply); reply != "" {
		text += ": " + reply
	}
	m.setStatus(text, false)
	m.logger.Info().Strs("files", msg.Files).Msg("documents uploaded")

	cmds := []tea.Cmd{textinput.Blink}
	if m.store != nil {
		cmds = append(cmds, saveCmd(m.store, m.sess))
	}
	return m, tea.Batch(cmds...)
}

func saveCmd(store storage.Store, st *session.State) tea.Cmd {
	snap := st.Snapshot()
	return func() tea.Msg {
		return SavedMsg{Err: store.Save(context.Background(), snap)}
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

// updateViewport re-renders the visible transcript and scrolls to the end.
func (m *Model) updateViewport() {
	msgs := m.sess.Messages()
	if m.clearedAt > len(msgs) {
		m.clearedAt = len(msgs)
	}
	m.viewport.SetContent(m.renderer.transcript(msgs[m.clearedAt:]))
	m.viewport.GotoBottom()
}
