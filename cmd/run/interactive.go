package main

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"
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

const memoryRows = 16

type modelState int

const (
	stateSelectFunc modelState = iota
	stateInputArgs
	stateShowResult
	stateMemory
	stateJump
)

type funcInfo struct {
	name       string
	resultType string
	params     []paramInfo
}

type paramInfo struct {
	name    string
	typeStr string
}

type interactiveModel struct {
	err      error
	session  *session
	output   *bytes.Buffer
	opts     options
	result   string
	guestOut string
	status   string
	funcs    []funcInfo
	inputs   []textinput.Model
	jump     textinput.Model
	offset   uint32
	selected int
	focusIdx int
	state    modelState
}

func newInteractiveModel(o options) *interactiveModel {
	out := &bytes.Buffer{}
	o.stdout, o.stderr = out, out
	return &interactiveModel{
		opts:   o,
		output: out,
		state:  stateSelectFunc,
	}
}

type loadedMsg struct {
	err     error
	session *session
	funcs   []funcInfo
}

type callResultMsg struct {
	err    error
	result string
	output string
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadModule
}

func (m *interactiveModel) loadModule() tea.Msg {
	s, err := load(context.Background(), m.opts)
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{session: s, funcs: describeFuncs(s)}
}

// describeFuncs lists exports with WIT types where signatures cover them.
func describeFuncs(s *session) []funcInfo {
	funcs := make([]funcInfo, 0, len(s.exports))
	for _, e := range s.exports {
		fi := funcInfo{name: e.name}
		if params, results, err := s.mod.FunctionTypes(e.name); s.typed && err == nil {
			for i, p := range params {
				fi.params = append(fi.params, paramInfo{name: fmt.Sprintf("arg%d", i), typeStr: witTypeStr(p)})
			}
			if len(results) > 0 {
				fi.resultType = witTypeStr(results[0])
			}
		} else {
			for i, p := range e.params {
				fi.params = append(fi.params, paramInfo{name: fmt.Sprintf("arg%d", i), typeStr: api.ValueTypeName(p)})
			}
			if len(e.results) > 0 {
				fi.resultType = api.ValueTypeName(e.results[0])
			}
		}
		funcs = append(funcs, fi)
	}
	return funcs
}

func (m *interactiveModel) quit() (tea.Model, tea.Cmd) {
	if m.session != nil {
		m.session.close(context.Background())
	}
	return m, tea.Quit
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		switch m.state {
		case stateInputArgs:
			return m.updateInputs(msg)
		case stateJump:
			return m.updateJump(msg)
		}

		switch msg.String() {
		case "q":
			return m.quit()

		case "up", "k":
			switch m.state {
			case stateSelectFunc:
				if m.selected > 0 {
					m.selected--
				}
			case stateMemory:
				m.scroll(-bytesPerRow)
			}

		case "down", "j":
			switch m.state {
			case stateSelectFunc:
				if m.selected < len(m.funcs)-1 {
					m.selected++
				}
			case stateMemory:
				m.scroll(bytesPerRow)
			}

		case "pgup":
			if m.state == stateMemory {
				m.scroll(-bytesPerRow * memoryRows)
			}

		case "pgdown":
			if m.state == stateMemory {
				m.scroll(bytesPerRow * memoryRows)
			}

		case "m":
			if m.state == stateSelectFunc && m.session != nil {
				m.state = stateMemory
				m.status = ""
			}

		case "g":
			if m.state == stateMemory {
				m.grow()
			}

		case "/":
			if m.state == stateMemory {
				m.jump = textinput.New()
				m.jump.Prompt = "offset: "
				m.jump.Placeholder = "0x0"
				m.jump.Width = 20
				m.jump.Focus()
				m.state = stateJump
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				if len(m.funcs) == 0 {
					break
				}
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callFunction
				}
				m.state = stateInputArgs
			case stateShowResult:
				m.state = stateSelectFunc
				m.result, m.guestOut, m.err = "", "", nil
			}

		case "esc":
			switch m.state {
			case stateShowResult, stateMemory:
				m.state = stateSelectFunc
				m.result, m.guestOut, m.err = "", "", nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.session = msg.session
		m.funcs = msg.funcs

	case callResultMsg:
		m.result = msg.result
		m.guestOut = msg.output
		m.err = msg.err
		m.state = stateShowResult
	}

	return m, nil
}

func (m *interactiveModel) updateInputs(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		return m, m.callFunction
	case "esc":
		m.state = stateSelectFunc
		m.inputs = nil
		return m, nil
	case "tab":
		if len(m.inputs) > 1 {
			m.inputs[m.focusIdx].Blur()
			m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
			m.inputs[m.focusIdx].Focus()
		}
		return m, nil
	}

	cmds := make([]tea.Cmd, len(m.inputs))
	for i := range m.inputs {
		m.inputs[i], cmds[i] = m.inputs[i].Update(msg)
	}
	return m, tea.Batch(cmds...)
}

func (m *interactiveModel) updateJump(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		v, err := strconv.ParseUint(strings.TrimSpace(m.jump.Value()), 0, 32)
		switch {
		case err != nil:
			m.status = fmt.Sprintf("bad offset %q", m.jump.Value())
		case uint32(v) >= m.session.mem.Size():
			m.status = fmt.Sprintf("offset %#x is past the end (%#x)", v, m.session.mem.Size())
		default:
			m.offset = uint32(v) &^ (bytesPerRow - 1)
			m.status = ""
		}
		m.state = stateMemory
		return m, nil
	case "esc":
		m.state = stateMemory
		return m, nil
	}

	var cmd tea.Cmd
	m.jump, cmd = m.jump.Update(msg)
	return m, cmd
}

func (m *interactiveModel) scroll(delta int64) {
	size := int64(m.session.mem.Size())
	last := size - bytesPerRow*memoryRows
	if last < 0 {
		last = 0
	}
	next := int64(m.offset) + delta
	if next < 0 {
		next = 0
	}
	if next > last {
		next = last
	}
	m.offset = uint32(next)
}

func (m *interactiveModel) grow() {
	before := m.session.mem.Pages()
	if m.session.mod.Resize(uint64(m.session.mem.Size()) + 1) {
		m.status = fmt.Sprintf("grown %d -> %d pages", before, m.session.mem.Pages())
	} else {
		m.status = fmt.Sprintf("growth refused at %d pages", before)
	}
}

func (m *interactiveModel) prepareInputs() {
	f := m.funcs[m.selected]
	m.inputs = make([]textinput.Model, len(f.params))
	for i, p := range f.params {
		ti := textinput.New()
		ti.Placeholder = p.typeStr
		ti.Prompt = p.name + ": "
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) callFunction() tea.Msg {
	if m.session == nil {
		return callResultMsg{err: fmt.Errorf("module not loaded")}
	}

	f := m.funcs[m.selected]
	args := make([]string, len(m.inputs))
	for i, input := range m.inputs {
		args[i] = input.Value()
	}

	result, err := m.session.call(context.Background(), f.name, args)
	out := m.output.String()
	m.output.Reset()
	return callResultMsg{result: result, output: out, err: err}
}

// convertArg parses value as the Go scalar matching a primitive WIT type.
func convertArg(value string, t wit.Type) (any, error) {
	value = strings.TrimSpace(value)
	switch t.(type) {
	case wit.Bool:
		return strconv.ParseBool(value)
	case wit.U8:
		v, err := strconv.ParseUint(value, 0, 8)
		return uint8(v), argErr(value, t, err)
	case wit.U16:
		v, err := strconv.ParseUint(value, 0, 16)
		return uint16(v), argErr(value, t, err)
	case wit.U32:
		v, err := strconv.ParseUint(value, 0, 32)
		return uint32(v), argErr(value, t, err)
	case wit.U64:
		v, err := strconv.ParseUint(value, 0, 64)
		return v, argErr(value, t, err)
	case wit.S8:
		v, err := strconv.ParseInt(value, 0, 8)
		return int8(v), argErr(value, t, err)
	case wit.S16:
		v, err := strconv.ParseInt(value, 0, 16)
		return int16(v), argErr(value, t, err)
	case wit.S32:
		v, err := strconv.ParseInt(value, 0, 32)
		return int32(v), argErr(value, t, err)
	case wit.S64:
		v, err := strconv.ParseInt(value, 0, 64)
		return v, argErr(value, t, err)
	case wit.F32:
		v, err := strconv.ParseFloat(value, 32)
		return float32(v), argErr(value, t, err)
	case wit.F64:
		v, err := strconv.ParseFloat(value, 64)
		return v, argErr(value, t, err)
	case wit.Char:
		if utf8.RuneCountInString(value) != 1 {
			return nil, fmt.Errorf("char argument %q must be a single character", value)
		}
		r, _ := utf8.DecodeRuneInString(value)
		return r, nil
	}
	return nil, fmt.Errorf("%s arguments are not supported", witTypeStr(t))
}

func argErr(value string, t wit.Type, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("parse %s %q: %w", witTypeStr(t), value, err)
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.session == nil {
		return "Loading module..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("WASM Runner"))
	b.WriteString(" ")
	b.WriteString(m.opts.wasmFile)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		if len(m.funcs) == 0 {
			b.WriteString("No exported functions.\n")
		} else {
			b.WriteString("Select a function to call:\n\n")
		}
		for i, f := range m.funcs {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + m.formatFunc(f)))
			} else {
				b.WriteString("  " + m.formatFunc(f))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • m memory • q quit"))

	case stateInputArgs:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(f.name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(f.params[i].typeStr))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(f.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		if m.guestOut != "" {
			b.WriteString("\n\nOutput:\n")
			b.WriteString(m.guestOut)
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))

	case stateMemory, stateJump:
		m.viewMemory(&b)
	}

	return b.String()
}

func (m *interactiveModel) viewMemory(b *strings.Builder) {
	mem := m.session.mem
	fmt.Fprintf(b, "Memory %s: %s pages, %s bytes\n\n",
		funcStyle.Render(mem.Name()),
		typeStyle.Render(strconv.FormatUint(uint64(mem.Pages()), 10)),
		typeStyle.Render(strconv.FormatUint(uint64(mem.Size()), 10)))

	data, err := mem.Read(m.offset, m.windowLen())
	if err != nil {
		b.WriteString(errorStyle.Render(err.Error()))
	} else {
		b.WriteString(hexdump(data, m.offset))
	}
	b.WriteString("\n")

	if m.state == stateJump {
		b.WriteString(m.jump.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter jump • esc cancel"))
		return
	}
	if m.status != "" {
		b.WriteString(resultStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("↑/↓ scroll • pgup/pgdn page • g grow • / jump • esc back • q quit"))
}

func (m *interactiveModel) windowLen() uint32 {
	n := uint32(bytesPerRow * memoryRows)
	if rest := m.session.mem.Size() - m.offset; rest < n {
		n = rest
	}
	return n
}

func (m *interactiveModel) formatFunc(f funcInfo) string {
	var params []string
	for _, p := range f.params {
		params = append(params, p.name+": "+typeStyle.Render(p.typeStr))
	}
	result := ""
	if f.resultType != "" {
		result = " -> " + typeStyle.Render(f.resultType)
	}
	return funcStyle.Render(f.name) + "(" + strings.Join(params, ", ") + ")" + result
}

func witTypeStr(t wit.Type) string {
	switch v := t.(type) {
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.S8:
		return "s8"
	case wit.U16:
		return "u16"
	case wit.S16:
		return "s16"
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case wit.Char:
		return "char"
	case wit.String:
		return "string"
	case *wit.TypeDef:
		if v.Name != nil {
			return *v.Name
		}
		return "typedef"
	default:
		return fmt.Sprintf("%T", t)
	}
}

func runInteractive(o options) error {
	p := tea.NewProgram(newInteractiveModel(o), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
