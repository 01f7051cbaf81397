package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/ia-bridge/bridge"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	eventStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0E68C"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// maxEventLines bounds the event log shown under the member list.
const maxEventLines = 8

type entry struct {
	kind bridge.MemberKind
	name string
	meta string
}

type frame struct {
	obj      *bridge.RemoteObject
	label    string
	entries  []entry
	selected int
}

type modelState int

const (
	stateBrowse modelState = iota
	stateInputArgs
)

type interactiveModel struct {
	ctx    context.Context
	sess   *session
	stack  []*frame
	state  modelState
	input  textinput.Model
	status string
	err    error
	events []string
	subs   map[string]bridge.Unsubscribe
	fired  chan string
}

type callResultMsg struct {
	value any
	err   error
	open  bool
	label string
}

type eventMsg string

func newInteractiveModel(ctx context.Context, s *session) *interactiveModel {
	m := &interactiveModel{
		ctx:   ctx,
		sess:  s,
		subs:  make(map[string]bridge.Unsubscribe),
		fired: make(chan string, 64),
	}
	m.push(s.client.RemoteObject, "client")
	return m
}

func newFrame(obj *bridge.RemoteObject, label string) *frame {
	f := &frame{obj: obj, label: label}
	methods, properties, events := obj.Members()
	desc := obj.Descriptors()
	for _, name := range properties {
		typ, writable := propertyMeta(desc.Properties[name])
		if !writable {
			typ += ", read-only"
		}
		f.entries = append(f.entries, entry{kind: bridge.MemberProperty, name: name, meta: typ})
	}
	for _, name := range methods {
		f.entries = append(f.entries, entry{kind: bridge.MemberMethod, name: name})
	}
	for _, name := range events {
		f.entries = append(f.entries, entry{kind: bridge.MemberEvent, name: name})
	}
	return f
}

func (m *interactiveModel) push(obj *bridge.RemoteObject, label string) {
	m.stack = append(m.stack, newFrame(obj, label))
}

func (m *interactiveModel) top() *frame {
	return m.stack[len(m.stack)-1]
}

func (m *interactiveModel) waitEvent() tea.Msg {
	return eventMsg(<-m.fired)
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.waitEvent
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.state == stateInputArgs {
			return m.updateInput(msg)
		}
		return m.updateBrowse(msg)

	case callResultMsg:
		m.err = msg.err
		m.status = ""
		if msg.err == nil {
			if obj, ok := msg.value.(*bridge.RemoteObject); ok && msg.open {
				m.push(obj, msg.label)
			} else {
				m.status = msg.label + " = " + formatValue(msg.value)
			}
		}

	case eventMsg:
		m.events = append(m.events, string(msg))
		if len(m.events) > maxEventLines {
			m.events = m.events[len(m.events)-maxEventLines:]
		}
		return m, m.waitEvent
	}
	return m, nil
}

func (m *interactiveModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := m.top()
	switch msg.String() {
	case "ctrl+c", "q":
		m.unsubscribeAll()
		return m, tea.Quit

	case "up", "k":
		if f.selected > 0 {
			f.selected--
		}

	case "down", "j":
		if f.selected < len(f.entries)-1 {
			f.selected++
		}

	case "esc", "backspace":
		if len(m.stack) > 1 {
			m.stack = m.stack[:len(m.stack)-1]
			m.status, m.err = "", nil
		}

	case "enter":
		if len(f.entries) == 0 {
			return m, nil
		}
		e := f.entries[f.selected]
		switch e.kind {
		case bridge.MemberProperty:
			return m, m.readProperty(f.obj, e.name)
		case bridge.MemberMethod:
			m.input = textinput.New()
			m.input.Placeholder = `"text", 1, true`
			m.input.Prompt = e.name + "("
			m.input.Width = 40
			m.input.Focus()
			m.state = stateInputArgs
		case bridge.MemberEvent:
			m.toggleSubscription(f, e.name)
		}
	}
	return m, nil
}

func (m *interactiveModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.unsubscribeAll()
		return m, tea.Quit
	case "esc":
		m.state = stateBrowse
		return m, nil
	case "enter":
		m.state = stateBrowse
		f := m.top()
		return m, m.invoke(f.obj, f.entries[f.selected].name, m.input.Value())
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *interactiveModel) readProperty(obj *bridge.RemoteObject, name string) tea.Cmd {
	return func() tea.Msg {
		v, err := obj.GetProperty(m.ctx, name)
		return callResultMsg{value: v, err: err, open: true, label: name}
	}
}

// invoke calls a method with a comma-separated list of JSON values.
func (m *interactiveModel) invoke(obj *bridge.RemoteObject, name, raw string) tea.Cmd {
	return func() tea.Msg {
		var args []any
		if strings.TrimSpace(raw) != "" {
			if err := json.Unmarshal([]byte("["+raw+"]"), &args); err != nil {
				return callResultMsg{err: fmt.Errorf("arguments: %w", err), label: name}
			}
		}
		v, err := obj.Invoke(m.ctx, name, args...)
		return callResultMsg{value: v, err: err, open: true, label: name + "()"}
	}
}

func (m *interactiveModel) subscriptionKey(f *frame, event string) string {
	return f.obj.ID() + "." + event
}

func (m *interactiveModel) toggleSubscription(f *frame, event string) {
	key := m.subscriptionKey(f, event)
	if unsub, ok := m.subs[key]; ok {
		unsub()
		delete(m.subs, key)
		m.status = "unsubscribed from " + event
		return
	}
	unsub, err := f.obj.Subscribe(m.ctx, event, func(args ...any) {
		line := fmt.Sprintf("%s %s(%s)", f.label, event, formatArgs(args))
		select {
		case m.fired <- line:
		default:
		}
	})
	if err != nil {
		m.err = err
		return
	}
	m.subs[key] = unsub
	m.status = "subscribed to " + event
}

func (m *interactiveModel) unsubscribeAll() {
	for key, unsub := range m.subs {
		unsub()
		delete(m.subs, key)
	}
}

func (m *interactiveModel) View() string {
	var b strings.Builder
	f := m.top()

	b.WriteString(titleStyle.Render("IA Bridge"))
	b.WriteString(" ")
	b.WriteString(m.sess.target)
	b.WriteString("\n")

	labels := make([]string, len(m.stack))
	for i, fr := range m.stack {
		labels[i] = fr.label
	}
	b.WriteString(helpStyle.Render(strings.Join(labels, " › ") + "  " + f.obj.ID()))
	b.WriteString("\n\n")

	for i, e := range f.entries {
		line := fmt.Sprintf("%-9s %s", e.kind, e.name)
		if e.meta != "" {
			line += " " + kindStyle.Render("("+e.meta+")")
		}
		if e.kind == bridge.MemberEvent {
			if _, ok := m.subs[m.subscriptionKey(f, e.name)]; ok {
				line += " " + eventStyle.Render("●")
			}
		}
		if i == f.selected {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.state == stateInputArgs {
		b.WriteString(m.input.View())
		b.WriteString(")\n\n")
		b.WriteString(helpStyle.Render("enter call • esc back"))
		return b.String()
	}

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	} else if m.status != "" {
		b.WriteString(resultStyle.Render(m.status))
		b.WriteString("\n")
	}

	if len(m.events) > 0 {
		b.WriteString("\nEvents:\n")
		for _, line := range m.events {
			b.WriteString(eventStyle.Render("  " + line))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ select • enter read/call/subscribe • esc up • q quit"))
	return b.String()
}

func runInteractive(ctx context.Context, s *session) error {
	p := tea.NewProgram(newInteractiveModel(ctx, s), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
