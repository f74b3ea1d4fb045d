// Package repl implements the interactive read-eval-print loop for
// MathVM programs.
//
// Unlike a tree-walking REPL, MathVM has no incremental-compile
// primitive: a Context/Generator pair always compiles a whole program
// from scratch. So the REPL's session state is not a persistent
// vm.Code or environment — it is the concatenated source text of every
// block the user has successfully submitted so far. Each new
// submission is appended to that text and the *whole* thing is
// re-translated and re-executed. The output shown is everything that
// run printed, so output from earlier blocks is printed again; it is
// not narrowed to the new block's output. A block that fails to
// translate or run is never folded into the session, so the user can
// correct it and resubmit.
//
// It reuses the Bubble Tea/Bubbles/Lipgloss model-update-view shape and
// styled result/error panes of the teacher REPL, adapted to MathVM's
// translate-then-run pipeline; its token-level syntax highlighter is
// not carried over; see DESIGN.md.
package repl

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dr8co/mathvm/compiler"
	"github.com/dr8co/mathvm/parser"
	"github.com/dr8co/mathvm/vm"
)

const (
	// Prompt is the default prompt for the REPL.
	Prompt = ">> "

	// ContPrompt is the continuation prompt used while a multiline
	// block's brackets are still unbalanced.
	ContPrompt = ".. "
)

// Options configures a new REPL session.
type Options struct {
	NoColor bool // Disable styled output.
}

// Start initializes and runs the REPL. If the underlying Bubble Tea
// program fails, the error is printed to the console.
func Start(options Options) {
	p := tea.NewProgram(initialModel(options))
	if _, err := p.Run(); err != nil {
		fmt.Println("Error running program:", err)
	}
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87"))

	translationErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FF5F87")).
				Bold(true)

	runtimeErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FF8700")).
				Bold(true)

	errorTipStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAF00"))

	historyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676"))
)

// ErrorType distinguishes the two ways a submitted block can fail, so
// it can be rendered with the matching style.
type ErrorType int

const (
	ErrNone ErrorType = iota
	ErrTranslation
	ErrRuntime
)

// evalResultMsg is delivered once a background evalCmd finishes.
type evalResultMsg struct {
	session   string // new committed session text, only meaningful if !isError
	output    string
	isError   bool
	errorType ErrorType
	elapsed   time.Duration
}

type historyEntry struct {
	input          string
	output         string
	isError        bool
	errorType      ErrorType
	evaluationTime time.Duration
}

type model struct {
	textInput       textinput.Model
	history         []historyEntry
	session         string // committed source text of the running program
	evaluating      bool
	currentInput    string
	multilineBuffer string
	isMultiline     bool
	spinner         spinner.Model
	options         Options
}

func (m model) applyStyle(style lipgloss.Style, text string) string {
	if m.options.NoColor {
		return text
	}
	return style.Render(text)
}

func initialModel(options Options) model {
	ti := textinput.New()
	ti.Placeholder = "Enter a MathVM statement"
	ti.Focus()
	ti.Width = 80
	ti.Prompt = promptStyle.Render(Prompt)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6"))

	return model{
		textInput: ti,
		spinner:   s,
		options:   options,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// isBalanced reports whether every '(' and '{' in input has a matching
// close, so the REPL knows whether to keep collecting lines before
// submitting a block for translation.
func isBalanced(input string) bool {
	var stack []rune
	for _, r := range input {
		switch r {
		case '(', '{':
			stack = append(stack, r)
		case ')':
			if len(stack) == 0 || stack[len(stack)-1] != '(' {
				return false
			}
			stack = stack[:len(stack)-1]
		case '}':
			if len(stack) == 0 || stack[len(stack)-1] != '{' {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) == 0
}

// evalCmd translates and runs the full candidate session text (prior
// committed source plus the newly submitted block) and reports all the
// output this run produced. On success it hands the candidate
// text back so Update can commit it as the new session baseline.
func evalCmd(candidate string) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()

		program, err := parser.Parse(candidate)
		if err != nil {
			return evalResultMsg{
				output:    formatTranslationError(err),
				isError:   true,
				errorType: ErrTranslation,
				elapsed:   time.Since(start),
			}
		}

		code, err := compiler.Generate(program)
		if err != nil {
			return evalResultMsg{
				output:    formatTranslationError(err),
				isError:   true,
				errorType: ErrTranslation,
				elapsed:   time.Since(start),
			}
		}

		var out bytes.Buffer
		interp := vm.NewInterpreter(code, vm.Options{Output: &out})
		if err := interp.Run(); err != nil {
			return evalResultMsg{
				output:    formatRuntimeError(err),
				isError:   true,
				errorType: ErrRuntime,
				elapsed:   time.Since(start),
			}
		}

		output := out.String()
		if output == "" {
			output = "(no output)"
		}
		return evalResultMsg{
			session: candidate,
			output:  output,
			elapsed: time.Since(start),
		}
	}
}

func (m model) formatError(style lipgloss.Style, entry *historyEntry, s *strings.Builder) {
	parts := strings.Split(entry.output, "\nTips:")
	if len(parts) > 1 {
		if m.options.NoColor {
			s.WriteString(parts[0])
			s.WriteString("\n")
			s.WriteString("Tips:" + parts[1])
		} else {
			s.WriteString(style.Render(parts[0]))
			s.WriteString("\n")
			s.WriteString(errorTipStyle.Render("Tips:" + parts[1]))
		}
		return
	}
	if m.options.NoColor {
		s.WriteString(entry.output)
	} else {
		s.WriteString(style.Render(entry.output))
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.evaluating {
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case evalResultMsg:
		m.evaluating = false
		m.history = append(m.history, historyEntry{
			input:          m.currentInput,
			output:         msg.output,
			isError:        msg.isError,
			errorType:      msg.errorType,
			evaluationTime: msg.elapsed,
		})
		if !msg.isError {
			m.session = msg.session
		}
		m.currentInput = ""
		return m, nil

	case tea.KeyMsg:
		if m.evaluating && msg.Type != tea.KeyCtrlC {
			return m, m.spinner.Tick
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyEnter:
			input := m.textInput.Value()
			if input == "" {
				if m.isMultiline {
					if m.multilineBuffer == "" {
						m.isMultiline = false
						return m, nil
					}
					return m.submit(m.multilineBuffer)
				}
				return m, nil
			}

			if m.isMultiline {
				m.multilineBuffer += "\n" + input
				m.textInput.SetValue("")
				if isBalanced(m.multilineBuffer) {
					return m.submit(m.multilineBuffer)
				}
				return m, nil
			}

			if !isBalanced(input) {
				m.isMultiline = true
				m.multilineBuffer = input
				m.textInput.SetValue("")
				return m, nil
			}

			return m.submit(input)
		}
	}

	if !m.evaluating {
		m.textInput, cmd = m.textInput.Update(msg)
	}
	if m.evaluating {
		return m, m.spinner.Tick
	}
	return m, cmd
}

// submit starts evaluating block against the current session, clearing
// the input/multiline state. It returns the model and the tea.Cmd that
// performs the translate-and-run.
func (m model) submit(block string) (tea.Model, tea.Cmd) {
	m.evaluating = true
	m.currentInput = block
	m.textInput.SetValue("")
	m.isMultiline = false
	m.multilineBuffer = ""

	candidate := block
	if m.session != "" {
		candidate = m.session + "\n" + block
	}
	return m, evalCmd(candidate)
}

func (m model) View() string {
	var s strings.Builder

	s.WriteString(m.applyStyle(titleStyle, " MathVM REPL "))
	s.WriteString("\n\n")

	for _, entry := range m.history {
		lines := strings.Split(entry.input, "\n")
		for i, line := range lines {
			if i == 0 {
				s.WriteString(m.applyStyle(promptStyle, Prompt))
			} else {
				s.WriteString(m.applyStyle(promptStyle, ContPrompt))
			}
			s.WriteString(line)
			s.WriteString("\n")
		}

		if entry.isError {
			switch entry.errorType {
			case ErrTranslation:
				m.formatError(translationErrorStyle, &entry, &s)
			case ErrRuntime:
				m.formatError(runtimeErrorStyle, &entry, &s)
			default:
				if m.options.NoColor {
					s.WriteString(entry.output)
				} else {
					s.WriteString(errorStyle.Render(entry.output))
				}
			}
		} else {
			if m.options.NoColor {
				s.WriteString(entry.output)
			} else {
				s.WriteString(resultStyle.Render(entry.output))
			}
		}

		if entry.evaluationTime > 10*time.Millisecond {
			timeStr := fmt.Sprintf(" (%.2fs)", entry.evaluationTime.Seconds())
			s.WriteString(m.applyStyle(historyStyle, timeStr))
		}
		s.WriteString("\n\n")
	}

	if m.evaluating {
		s.WriteString(m.applyStyle(promptStyle, Prompt))
		s.WriteString(m.currentInput)
		s.WriteString("\n")
		s.WriteString(m.spinner.View())
		s.WriteString(" Evaluating...\n\n")
	}

	if m.isMultiline && !m.evaluating {
		s.WriteString(m.applyStyle(historyStyle, "Current block:\n"))
		s.WriteString(m.multilineBuffer)
		s.WriteString("\n")
	}

	if !m.evaluating {
		if m.isMultiline {
			m.textInput.Prompt = m.applyStyle(promptStyle, ContPrompt)
		} else {
			m.textInput.Prompt = m.applyStyle(promptStyle, Prompt)
		}
		s.WriteString(m.textInput.View())
		s.WriteString("\n")
	}

	helpText := "\nPress Esc or Ctrl+C/D to exit"
	if m.isMultiline {
		helpText += " | Enter an empty line to submit the block"
	} else {
		helpText += " | Unbalanced brackets continue onto the next line"
	}
	s.WriteString(m.applyStyle(historyStyle, helpText))

	return s.String()
}

func formatTranslationError(err error) string {
	var s strings.Builder
	s.WriteString("Translation error:\n")
	s.WriteString("  " + err.Error() + "\n")
	s.WriteString("\nTips:\n")
	s.WriteString("  • Check for missing parentheses, braces, or semicolons\n")
	s.WriteString("  • Every variable and function must be declared in the current or an enclosing block\n")
	s.WriteString("  • Binary and unary operators require int or double operands\n")
	return s.String()
}

func formatRuntimeError(err error) string {
	var s strings.Builder
	s.WriteString("Runtime error:\n")
	s.WriteString("  " + err.Error() + "\n")
	return s.String()
}
