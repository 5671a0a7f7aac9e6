package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/cruxrec/cruxrec/pkg/config"
)

// wizardStep is a stage of the interactive setup flow.
type wizardStep int

const (
	stepWelcome wizardStep = iota
	stepLanguage
	stepGeminiKey
	stepOpenAIKey
	stepProxy
	stepProxyAddr
	stepCache
	stepDone
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00D4AA")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginBottom(1)

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00D4AA"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00D4AA")).
			Bold(true)
)

// wizardModel is the bubbletea model for the setup wizard.
type wizardModel struct {
	step      wizardStep
	cfg       *config.Config
	textInput textinput.Model
	cursor    int
	err       error
	written   string
}

func newWizardModel() wizardModel {
	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 50

	return wizardModel{
		step:      stepWelcome,
		cfg:       config.DefaultConfig(),
		textInput: ti,
	}
}

func (m wizardModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m wizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if m.step == stepWelcome || m.step == stepDone {
				return m, tea.Quit
			}
		case "enter":
			return m.handleEnter()
		case "up", "k":
			if m.isMenuStep() && m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.isMenuStep() && m.cursor < 1 {
				m.cursor++
			}
		}
	}

	if m.isInputStep() {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m wizardModel) isMenuStep() bool {
	return m.step == stepProxy || m.step == stepCache
}

func (m wizardModel) isInputStep() bool {
	switch m.step {
	case stepLanguage, stepGeminiKey, stepOpenAIKey, stepProxyAddr:
		return true
	}
	return false
}

func (m wizardModel) handleEnter() (tea.Model, tea.Cmd) {
	switch m.step {
	case stepWelcome:
		m.step = stepLanguage
		m.setupInput(m.cfg.Subtitles.Language, "ru")

	case stepLanguage:
		if v := strings.TrimSpace(m.textInput.Value()); v != "" {
			m.cfg.Subtitles.Language = v
		}
		m.step = stepGeminiKey
		m.setupInput("", "leave empty to use GEMINI_KEY")

	case stepGeminiKey:
		m.cfg.Summarizer.APIKey = strings.TrimSpace(m.textInput.Value())
		m.step = stepOpenAIKey
		m.setupInput("", "leave empty to use OPENAI_API_KEY")

	case stepOpenAIKey:
		m.cfg.Transcriber.APIKey = strings.TrimSpace(m.textInput.Value())
		m.step = stepProxy
		m.cursor = 1 // default: disabled

	case stepProxy:
		m.cfg.Proxy.Disabled = m.cursor == 1
		if m.cfg.Proxy.Disabled {
			m.step = stepCache
			m.cursor = 0
		} else {
			m.step = stepProxyAddr
			m.setupInput(m.cfg.Proxy.Address, "127.0.0.1:9050")
		}

	case stepProxyAddr:
		if v := strings.TrimSpace(m.textInput.Value()); v != "" {
			m.cfg.Proxy.Address = v
		}
		m.step = stepCache
		m.cursor = 0

	case stepCache:
		m.cfg.Cache.Enabled = m.cursor == 0
		if err := m.writeConfig(); err != nil {
			m.err = err
			return m, tea.Quit
		}
		m.step = stepDone

	case stepDone:
		return m, tea.Quit
	}
	return m, nil
}

func (m *wizardModel) setupInput(value, placeholder string) {
	m.textInput.SetValue(value)
	m.textInput.Placeholder = placeholder
	m.textInput.CursorEnd()
	m.textInput.Focus()
}

func (m *wizardModel) writeConfig() error {
	dir, err := config.EnsureConfigDir()
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(m.cfg)
	if err != nil {
		return fmt.Errorf("render config: %w", err)
	}
	path := filepath.Join(dir, "cruxrec.yaml")
	if err := os.WriteFile(path, out, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	m.written = path
	return nil
}

func (m wizardModel) View() string {
	header := titleStyle.Render("cruxrec") + "\n" +
		subtitleStyle.Render("Setup Wizard") + "\n\n"

	var body string
	switch m.step {
	case stepWelcome:
		body = "This wizard creates a configuration file for cruxrec.\n\n" +
			helpStyle.Render("enter: continue • q: quit")

	case stepLanguage:
		body = "Default subtitle language code:\n\n" + m.textInput.View()

	case stepGeminiKey:
		body = "Gemini API key (summarization):\n\n" + m.textInput.View()

	case stepOpenAIKey:
		body = "OpenAI API key (transcription fallback):\n\n" + m.textInput.View()

	case stepProxy:
		body = "Route traffic through a SOCKS5 proxy?\n\n" +
			m.renderMenu("Yes, use a proxy", "No")

	case stepProxyAddr:
		body = "SOCKS5 proxy address:\n\n" + m.textInput.View()

	case stepCache:
		body = "Cache transcripts and summaries locally?\n\n" +
			m.renderMenu("Yes, enable the cache", "No")

	case stepDone:
		body = successStyle.Render("Configuration written to "+m.written) + "\n\n" +
			helpStyle.Render("enter: finish")
	}

	if m.err != nil {
		body += "\n\n" + errorStyle.Render(m.err.Error())
	}
	if m.step > stepWelcome && m.step < stepDone {
		body += "\n" + helpStyle.Render("enter: next • ctrl+c: abort")
	}
	return header + body + "\n"
}

func (m wizardModel) renderMenu(options ...string) string {
	var sb strings.Builder
	for i, opt := range options {
		cursor := "  "
		if m.cursor == i {
			cursor = cursorStyle.Render("> ")
		}
		sb.WriteString(cursor + opt + "\n")
	}
	return sb.String()
}

// HandleInitCommand runs the interactive setup wizard.
func HandleInitCommand() {
	final, err := tea.NewProgram(newWizardModel()).Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Wizard failed: %v\n", err)
		os.Exit(1)
	}
	if m, ok := final.(wizardModel); ok && m.err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write configuration: %v\n", m.err)
		os.Exit(1)
	}
}
