package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wippyai/wasm-resolver/errors"
	"github.com/wippyai/wasm-resolver/metadata"
	"github.com/wippyai/wasm-resolver/resolver"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#DDA0DD")).
			Width(12)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

func newBrowseCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "browse <library>",
		Short: "Browse library types and call their methods interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return errors.Unsupported(errors.PhaseConfig, "browse without a terminal")
			}
			ctx := cmd.Context()
			location, _, err := flags.library(args, 0)
			if err != nil {
				return err
			}
			r, err := flags.newResolver(ctx, location, nil)
			if err != nil {
				return err
			}
			defer flags.closeResolver(ctx, r)

			p := tea.NewProgram(newBrowseModel(ctx, r), tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	}
}

type browseState int

const (
	stateSelectType browseState = iota
	stateSelectMethod
	stateInputArgs
	stateShowResult
)

type browseModel struct {
	ctx       context.Context
	err       error
	r         *resolver.Resolver
	target    *metadata.Method
	result    string
	types     []*metadata.Type
	methods   []*metadata.Method
	inputs    []textinput.Model
	typeIdx   int
	methodIdx int
	focusIdx  int
	state     browseState
	loaded    bool
}

func newBrowseModel(ctx context.Context, r *resolver.Resolver) *browseModel {
	return &browseModel{ctx: ctx, r: r, state: stateSelectType}
}

type typesMsg struct {
	err   error
	types []*metadata.Type
}

type typeLoadedMsg struct {
	err error
}

type callResultMsg struct {
	err    error
	result string
}

func (m *browseModel) Init() tea.Cmd {
	return m.listTypes
}

func (m *browseModel) listTypes() tea.Msg {
	types, err := m.r.LibraryTypes(m.ctx)
	return typesMsg{types: types, err: err}
}

func (m *browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state != stateInputArgs {
				return m, tea.Quit
			}

		case "up", "k":
			switch m.state {
			case stateSelectType:
				if m.typeIdx > 0 {
					m.typeIdx--
				}
			case stateSelectMethod:
				if m.methodIdx > 0 {
					m.methodIdx--
				}
			}

		case "down", "j":
			switch m.state {
			case stateSelectType:
				if m.typeIdx < len(m.types)-1 {
					m.typeIdx++
				}
			case stateSelectMethod:
				if m.methodIdx < len(m.methods)-1 {
					m.methodIdx++
				}
			}

		case "enter":
			return m, m.enter()

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.inputs = nil
				m.state = m.listState()
				if m.target != nil && m.target.Kind == metadata.MethodConstructor {
					m.state = stateSelectType
				}
			case stateShowResult:
				m.clearResult()
			case stateSelectMethod:
				m.state = stateSelectType
			}
		}

	case typesMsg:
		m.types = msg.types
		m.err = msg.err

	case typeLoadedMsg:
		m.loaded = msg.err == nil
		if msg.err != nil {
			m.err = msg.err
			m.state = stateShowResult
			return m, nil
		}
		m.methods = m.r.Methods()
		m.methodIdx = 0
		m.state = stateSelectMethod

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

// enter advances the current state and returns the command to run, if any.
func (m *browseModel) enter() tea.Cmd {
	switch m.state {
	case stateSelectType:
		if len(m.types) == 0 {
			return nil
		}
		typ := m.types[m.typeIdx]
		m.loaded = false
		if typ.StaticOnly() {
			m.target = nil
			return m.loadType(typ, nil)
		}
		m.target = typ.Constructor
		if m.prepareInputs(); len(m.inputs) == 0 {
			return m.loadType(typ, nil)
		}
		m.state = stateInputArgs

	case stateSelectMethod:
		if len(m.methods) == 0 {
			return nil
		}
		m.target = m.methods[m.methodIdx]
		if m.prepareInputs(); len(m.inputs) == 0 {
			return m.call(m.target, nil)
		}
		m.state = stateInputArgs

	case stateInputArgs:
		texts := make([]string, len(m.inputs))
		for i, input := range m.inputs {
			texts[i] = input.Value()
		}
		values, err := parseArgs(m.target, texts)
		if err != nil {
			return func() tea.Msg { return callResultMsg{err: err} }
		}
		if m.target.Kind == metadata.MethodConstructor {
			return m.loadType(m.types[m.typeIdx], values)
		}
		return m.call(m.target, values)

	case stateShowResult:
		m.clearResult()
	}
	return nil
}

func (m *browseModel) listState() browseState {
	if m.loaded {
		return stateSelectMethod
	}
	return stateSelectType
}

func (m *browseModel) clearResult() {
	m.state = m.listState()
	m.result = ""
	m.err = nil
}

func (m *browseModel) prepareInputs() {
	m.inputs = make([]textinput.Model, len(m.target.Params))
	for i, p := range m.target.Params {
		ti := textinput.New()
		ti.Placeholder = p.TypeName()
		ti.Prompt = p.Name + ": "
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *browseModel) loadType(typ *metadata.Type, values []any) tea.Cmd {
	ctx, r := m.ctx, m.r
	return func() tea.Msg {
		if typ.StaticOnly() {
			return typeLoadedMsg{err: r.LoadStaticType(ctx, typ.Name)}
		}
		return typeLoadedMsg{err: r.LoadInstantiableType(ctx, typ.Name, values...)}
	}
}

func (m *browseModel) call(method *metadata.Method, values []any) tea.Cmd {
	ctx, r := m.ctx, m.r
	return func() tea.Msg {
		var (
			result any
			err    error
		)
		if method.Kind == metadata.MethodInstance {
			result, err = r.InvokeMethodValue(ctx, method.Name, values...)
		} else {
			result, err = r.InvokeStaticValue(ctx, method.Name, values...)
		}
		if err != nil {
			return callResultMsg{err: err}
		}
		if method.Result == nil {
			return callResultMsg{result: "(no result)"}
		}
		return callResultMsg{result: formatValue(method.Result.Type, result)}
	}
}

func (m *browseModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.types == nil {
		return "Loading library..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("WASM Resolver"))
	b.WriteString(" ")
	b.WriteString(m.r.Path())
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectType:
		b.WriteString("Select a type:\n\n")
		for i, t := range m.types {
			line := kindStyle.Render(t.Kind.String()) + typeStyle.Render(t.Name)
			if i == m.typeIdx {
				b.WriteString(selectedStyle.Render("> ") + line)
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter load • q quit"))

	case stateSelectMethod:
		typ := m.r.Type()
		b.WriteString(fmt.Sprintf("%s %s\n", kindStyle.Render(typ.Kind.String()), typeStyle.Render(typ.Name)))
		if obj := m.r.Instance(); obj != nil {
			b.WriteString(helpStyle.Render(fmt.Sprintf("instance handle %d", obj.Handle)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		if len(m.methods) == 0 {
			b.WriteString(helpStyle.Render("no methods"))
			b.WriteString("\n")
		}
		for i, method := range m.methods {
			line := m.formatMethod(method)
			if i == m.methodIdx {
				b.WriteString(selectedStyle.Render("> ") + line)
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • esc types • q quit"))

	case stateInputArgs:
		verb := "Calling"
		if m.target.Kind == metadata.MethodConstructor {
			verb = "Constructing " + m.types[m.typeIdx].Name + " with"
		}
		b.WriteString(fmt.Sprintf("%s %s\n\n", verb, funcStyle.Render(m.target.Name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(m.target.Params[i].TypeName()))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter run • esc back"))

	case stateShowResult:
		if m.target != nil {
			b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(m.target.Name)))
		}
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *browseModel) formatMethod(method *metadata.Method) string {
	var params []string
	for _, p := range method.Params {
		params = append(params, p.Name+": "+typeStyle.Render(p.TypeName()))
	}
	result := ""
	if method.Result != nil {
		result = " -> " + typeStyle.Render(method.Result.TypeName())
	}
	prefix := ""
	if method.Kind == metadata.MethodStatic {
		prefix = helpStyle.Render("static ")
	}
	return prefix + funcStyle.Render(method.Name) + "(" + strings.Join(params, ", ") + ")" + result
}
