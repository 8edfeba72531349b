// Package dashboard is an interactive terminal editor for site content.
// It works directly against the local store, section by section.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/blumotif/folio/internal/admin"
	"github.com/blumotif/folio/internal/kvstore"
	"github.com/blumotif/folio/internal/site"
)

var (
	accentColor = lipgloss.Color("205")
	dimColor    = lipgloss.Color("241")

	activeTabStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true).
			Underline(true)
	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(dimColor)
	selectedStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)
	fieldNameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))
	dimStyle    = lipgloss.NewStyle().Foreground(dimColor)
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

type view int

const (
	viewSections view = iota
	viewMessages
)

type app struct {
	ctx    context.Context
	kv     *kvstore.Store
	editor *admin.Editor

	view view

	// Section state.
	section int // index into site.Sections
	doc     map[string]json.RawMessage
	fields  []string
	cursor  int

	// Field editing.
	editing bool
	input   textinput.Model

	// Messages tab.
	messages []site.Message

	status string
	err    error
}

// Run starts the dashboard and blocks until the user quits.
func Run(ctx context.Context, kv *kvstore.Store, editor *admin.Editor) error {
	input := textinput.New()
	input.CharLimit = 0

	a := &app{
		ctx:    ctx,
		kv:     kv,
		editor: editor,
		input:  input,
	}

	p := tea.NewProgram(a, tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Messages

type sectionLoadedMsg struct {
	doc map[string]json.RawMessage
}
type savedMsg struct{ err error }
type messagesLoadedMsg struct{ messages []site.Message }
type errMsg struct{ err error }

func (a *app) loadSection() tea.Cmd {
	ctx := a.ctx
	kv := a.kv
	name := site.Sections[a.section]
	return func() tea.Msg {
		raw, err := kv.Get(ctx, site.SectionPath(name))
		if err != nil {
			return errMsg{err: err}
		}
		doc := make(map[string]json.RawMessage)
		if raw != nil {
			if err := json.Unmarshal(raw, &doc); err != nil {
				return errMsg{err: fmt.Errorf("decode %s: %w", name, err)}
			}
		}
		return sectionLoadedMsg{doc: doc}
	}
}

func (a *app) loadMessages() tea.Cmd {
	ctx := a.ctx
	kv := a.kv
	return func() tea.Msg {
		msgs, err := site.Messages(ctx, kv)
		if err != nil {
			return errMsg{err: err}
		}
		return messagesLoadedMsg{messages: msgs}
	}
}

func (a *app) save() tea.Cmd {
	ctx := a.ctx
	editor := a.editor
	return func() tea.Msg {
		return savedMsg{err: editor.Save(ctx, "")}
	}
}

func (a *app) Init() tea.Cmd {
	return a.loadSection()
}

func (a *app) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case sectionLoadedMsg:
		a.doc = msg.doc
		a.fields = sortedKeys(msg.doc)
		if a.cursor >= len(a.fields) {
			a.cursor = 0
		}
		a.err = nil
		return a, nil

	case messagesLoadedMsg:
		a.messages = msg.messages
		a.err = nil
		return a, nil

	case savedMsg:
		if msg.err != nil {
			a.err = msg.err
			return a, nil
		}
		a.status = "saved"
		a.err = nil
		return a, a.loadSection()

	case errMsg:
		a.err = msg.err
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	if a.editing {
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *app) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.editing {
		switch msg.String() {
		case "enter":
			return a, a.commitField()
		case "esc":
			a.editing = false
			return a, nil
		default:
			var cmd tea.Cmd
			a.input, cmd = a.input.Update(msg)
			return a, cmd
		}
	}

	a.status = ""

	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit

	case "m":
		if a.view == viewSections {
			a.view = viewMessages
			return a, a.loadMessages()
		}
		a.view = viewSections
		return a, nil

	case "esc":
		if a.view == viewMessages {
			a.view = viewSections
		}
		return a, nil

	case "tab", "right":
		if a.view == viewSections {
			a.section = (a.section + 1) % len(site.Sections)
			a.cursor = 0
			return a, a.loadSection()
		}

	case "shift+tab", "left":
		if a.view == viewSections {
			a.section = (a.section - 1 + len(site.Sections)) % len(site.Sections)
			a.cursor = 0
			return a, a.loadSection()
		}

	case "up", "k":
		if a.view == viewSections && a.cursor > 0 {
			a.cursor--
		}

	case "down", "j":
		if a.view == viewSections && a.cursor < len(a.fields)-1 {
			a.cursor++
		}

	case "enter":
		if a.view == viewSections && len(a.fields) > 0 {
			a.startEdit()
			return a, textinput.Blink
		}

	case "ctrl+s":
		if a.editor.Dirty() {
			return a, a.save()
		}
		a.status = "nothing to save"
	}
	return a, nil
}

// startEdit opens the input on the selected field. String values are
// edited bare; everything else is edited as raw JSON.
func (a *app) startEdit() {
	field := a.fields[a.cursor]
	raw := a.doc[field]

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		s = string(raw)
	}

	a.input.SetValue(s)
	a.input.CursorEnd()
	a.input.Focus()
	a.editing = true
}

func (a *app) commitField() tea.Cmd {
	field := a.fields[a.cursor]
	text := a.input.Value()

	var value json.RawMessage
	if json.Valid([]byte(text)) && !looksLikeBareString(text) {
		value = json.RawMessage(text)
	} else {
		quoted, err := json.Marshal(text)
		if err != nil {
			a.err = err
			return nil
		}
		value = quoted
	}

	a.doc[field] = value
	a.editing = false
	a.input.Blur()

	name := site.Sections[a.section]
	if err := a.editor.SetField(a.ctx, "", name, field, value); err != nil {
		a.err = err
		return nil
	}
	a.status = "edited (ctrl+s to save)"
	return nil
}

// looksLikeBareString reports whether the text should be treated as a
// plain string even though it parses as JSON (e.g. "true", "42").
func looksLikeBareString(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return true
	}
	switch t[0] {
	case '{', '[', '"':
		return false
	}
	switch t {
	case "true", "false", "null":
		return false
	}
	if _, err := json.Number(t).Float64(); err == nil {
		return false
	}
	return true
}

func (a *app) View() string {
	var b strings.Builder

	if a.view == viewMessages {
		a.viewMessages(&b)
	} else {
		a.viewSection(&b)
	}

	if a.err != nil {
		b.WriteString("\n" + errorStyle.Render("error: "+a.err.Error()) + "\n")
	} else if a.status != "" {
		b.WriteString("\n" + statusStyle.Render(a.status) + "\n")
	}

	b.WriteString("\n" + dimStyle.Render(a.helpLine()) + "\n")
	return b.String()
}

func (a *app) viewSection(b *strings.Builder) {
	b.WriteString("\n" + a.renderTabBar() + "\n")

	if len(a.fields) == 0 {
		b.WriteString(dimStyle.Render("  (empty section)") + "\n")
		return
	}

	for i, field := range a.fields {
		value := summarize(a.doc[field], 60)
		line := fmt.Sprintf("  %s: %s", fieldNameStyle.Render(field), value)
		if i == a.cursor {
			if a.editing {
				line = fmt.Sprintf("  %s: %s", fieldNameStyle.Render(field), a.input.View())
			} else {
				line = selectedStyle.Render("> ") + strings.TrimPrefix(line, "  ")
			}
		}
		b.WriteString(line + "\n")
	}
}

func (a *app) viewMessages(b *strings.Builder) {
	b.WriteString("\n  " + activeTabStyle.Render("messages") + "\n\n")

	if len(a.messages) == 0 {
		b.WriteString(dimStyle.Render("  (no messages)") + "\n")
		return
	}
	for _, m := range a.messages {
		b.WriteString(fmt.Sprintf("  %s %s\n",
			selectedStyle.Render(m.Name),
			dimStyle.Render("<"+m.Email+">")))
		b.WriteString("  " + m.Body + "\n\n")
	}
}

func (a *app) renderTabBar() string {
	var parts []string
	for i, name := range site.Sections {
		if i == a.section {
			parts = append(parts, activeTabStyle.Render(name))
		} else {
			parts = append(parts, inactiveTabStyle.Render(name))
		}
	}
	return "  " + strings.Join(parts, "  ")
}

func (a *app) helpLine() string {
	if a.editing {
		return "  enter save field · esc cancel"
	}
	if a.view == viewMessages {
		return "  m/esc back · q quit"
	}
	return "  tab section · ↑/↓ field · enter edit · ctrl+s save · m messages · q quit"
}

func summarize(raw json.RawMessage, max int) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		s = string(raw)
	}
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > max {
		s = s[:max-1] + "…"
	}
	return s
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
