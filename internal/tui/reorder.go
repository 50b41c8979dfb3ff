package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/twcadmin/internal/errors"
	"github.com/felixgeelhaar/twcadmin/internal/reorder"
)

// Editor is the part of reorder.Editor the view drives.
type Editor[T reorder.Item] interface {
	Name() string
	Items() []T
	Move(ctx context.Context, from, to int) error
	Load(ctx context.Context) error
}

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Grab   key.Binding
	Cancel key.Binding
	Reload key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Grab, k.Cancel, k.Reload, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

func defaultKeys() keyMap {
	return keyMap{
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Grab:   key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "grab/drop")),
		Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// commitDoneMsg reports the end of a move or reload.
type commitDoneMsg struct {
	moved bool
	err   error
}

// ReorderModel lists a collection and lets the user move one item at a time.
// A drop commits through the editor; keys are ignored until it finishes.
type ReorderModel[T reorder.Item] struct {
	ctx     context.Context
	editor  Editor[T]
	label   func(T) string
	styles  Styles
	keys    keyMap
	help    help.Model
	spinner spinner.Model

	items    []T
	cursor   int
	grabbed  bool
	grabFrom int
	busy     bool
	status   string
	err      error
}

// NewReorderModel creates a view over editor, which must already be loaded.
func NewReorderModel[T reorder.Item](ctx context.Context, editor Editor[T], label func(T) string, styles Styles) ReorderModel[T] {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Status
	return ReorderModel[T]{
		ctx:     ctx,
		editor:  editor,
		label:   label,
		styles:  styles,
		keys:    defaultKeys(),
		help:    help.New(),
		spinner: s,
		items:   editor.Items(),
	}
}

// Init implements tea.Model.
func (m ReorderModel[T]) Init() tea.Cmd {
	return nil
}

// Err returns the error of the last commit, if any.
func (m ReorderModel[T]) Err() error {
	return m.err
}

// Update implements tea.Model.
func (m ReorderModel[T]) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case commitDoneMsg:
		m.busy = false
		m.items = m.editor.Items()
		m.err = msg.err
		switch {
		case msg.err != nil && errors.HasCode(msg.err, errors.ErrCodeReorderConflict):
			m.status = "Order not saved; showing the server's order."
		case msg.err != nil:
			m.status = errors.UserMessage(msg.err, "Something went wrong.")
		case msg.moved:
			m.status = "Order saved."
		default:
			m.status = "Reloaded."
		}
		m.cursor = clamp(m.cursor, len(m.items))
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m ReorderModel[T]) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	if m.busy {
		m.status = "Still saving the previous change…"
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			if m.grabbed {
				m.items[m.cursor], m.items[m.cursor-1] = m.items[m.cursor-1], m.items[m.cursor]
			}
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.items)-1 {
			if m.grabbed {
				m.items[m.cursor], m.items[m.cursor+1] = m.items[m.cursor+1], m.items[m.cursor]
			}
			m.cursor++
		}

	case key.Matches(msg, m.keys.Grab):
		if len(m.items) == 0 {
			return m, nil
		}
		if !m.grabbed {
			m.grabbed = true
			m.grabFrom = m.cursor
			m.status = ""
			return m, nil
		}
		m.grabbed = false
		if m.cursor == m.grabFrom {
			return m, nil
		}
		return m.commit(true, m.grabFrom, m.cursor)

	case key.Matches(msg, m.keys.Cancel):
		if m.grabbed {
			m.grabbed = false
			m.items = m.editor.Items()
			m.cursor = m.grabFrom
		}

	case key.Matches(msg, m.keys.Reload):
		return m.commit(false, 0, 0)
	}
	return m, nil
}

func (m ReorderModel[T]) commit(move bool, from, to int) (tea.Model, tea.Cmd) {
	m.busy = true
	m.err = nil
	m.status = ""
	ctx, editor := m.ctx, m.editor
	run := func() tea.Msg {
		if move {
			return commitDoneMsg{moved: true, err: editor.Move(ctx, from, to)}
		}
		return commitDoneMsg{err: editor.Load(ctx)}
	}
	return m, tea.Batch(m.spinner.Tick, run)
}

func clamp(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// View implements tea.Model.
func (m ReorderModel[T]) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render(fmt.Sprintf("Reorder %ss", m.editor.Name())))
	b.WriteString("\n")

	if len(m.items) == 0 {
		b.WriteString(m.styles.Muted.Render("Nothing to reorder."))
		b.WriteString("\n")
	}

	for i, item := range m.items {
		line := fmt.Sprintf("%3d. %s", i+1, m.label(item))
		switch {
		case i == m.cursor && m.grabbed:
			b.WriteString(m.styles.Grabbed.Render("≡ " + line))
		case i == m.cursor:
			b.WriteString(m.styles.Cursor.Render("› " + line))
		default:
			b.WriteString(m.styles.Item.Render("  " + line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.busy:
		b.WriteString(m.spinner.View() + " " + m.styles.Status.Render("Saving order…"))
	case m.err != nil:
		b.WriteString(m.styles.Error.Render(m.status))
	case m.status != "":
		b.WriteString(m.styles.Success.Render(m.status))
	}
	b.WriteString("\n")

	b.WriteString(m.styles.Help.Render(m.help.View(m.keys)))
	return b.String()
}

// RunReorder runs the reorder view until the user quits. It returns the error
// of the last commit, so a failed final move is still reported.
func RunReorder[T reorder.Item](ctx context.Context, editor Editor[T], label func(T) string, styles Styles, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	final, err := tea.NewProgram(NewReorderModel(ctx, editor, label, styles), opts...).Run()
	if err != nil {
		return err
	}
	if m, ok := final.(ReorderModel[T]); ok {
		return m.Err()
	}
	return nil
}
