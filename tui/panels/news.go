package panels

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/marketsim/internal/sim"
	"github.com/zappabad/marketsim/tui/styles"
)

// Events with magnitude at or above this render highlighted.
const majorNewsMagnitude = 0.05

// NewsPanel shows the generated headline feed, newest last.
type NewsPanel struct {
	events        []sim.NewsEvent
	selectedIndex int
	scrollOffset  int
	focused       bool
	width         int
	height        int
}

func NewNewsPanel() *NewsPanel {
	return &NewsPanel{}
}

func (p *NewsPanel) Init() tea.Cmd {
	return nil
}

func (p *NewsPanel) Update(msg tea.Msg) (*NewsPanel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !p.focused {
			return p, nil
		}
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
			if p.selectedIndex > 0 {
				p.selectedIndex--
				if p.selectedIndex < p.scrollOffset {
					p.scrollOffset = p.selectedIndex
				}
			}
		case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
			if p.selectedIndex < len(p.events)-1 {
				p.selectedIndex++
				visible := p.visibleRows()
				if p.selectedIndex >= p.scrollOffset+visible {
					p.scrollOffset = p.selectedIndex - visible + 1
				}
			}
		}
	}
	return p, nil
}

func (p *NewsPanel) visibleRows() int {
	rows := p.height - 4
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (p *NewsPanel) View() string {
	var content strings.Builder

	if len(p.events) == 0 {
		content.WriteString(styles.MutedStyle.Render("No news yet"))
	} else {
		visible := p.visibleRows()
		start := p.scrollOffset
		end := start + visible
		if end > len(p.events) {
			end = len(p.events)
		}

		for i := start; i < end; i++ {
			ev := p.events[i]

			tag := ev.Category.String()
			if ev.Symbol != "" {
				tag = ev.Symbol
			} else if ev.Industry != "" {
				tag = ev.Industry
			}

			headline := ev.Headline
			maxLen := p.width - len(tag) - 16
			if maxLen > 3 && len(headline) > maxLen {
				headline = headline[:maxLen-3] + "..."
			}

			headlineStyle := styles.NewsNormalStyle
			if ev.Magnitude >= majorNewsMagnitude {
				headlineStyle = styles.NewsMajorStyle
			}

			line := fmt.Sprintf("%s %s %s",
				styles.TimeStyle.Render(sim.FormatDate(ev.Timestamp)),
				styles.HeaderStyle.Render(fmt.Sprintf("[%s]", tag)),
				headlineStyle.Render(headline))

			if i == p.selectedIndex && p.focused {
				line = styles.SelectedRowStyle.Render(line)
			}
			content.WriteString(line)
			if i < end-1 {
				content.WriteString("\n")
			}
		}

		if len(p.events) > visible {
			content.WriteString("\n")
			content.WriteString(styles.MutedStyle.Render(
				fmt.Sprintf(" (%d/%d)", p.selectedIndex+1, len(p.events))))
		}
	}

	panelStyle := styles.PanelStyle
	if p.focused {
		panelStyle = styles.FocusedPanelStyle
	}

	title := styles.RenderTitle("News", p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, content.String())

	return panelStyle.Width(p.width - 2).Height(p.height - 2).Render(panel)
}

func (p *NewsPanel) SetFocus(focused bool) {
	p.focused = focused
}

func (p *NewsPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetNews replaces the feed, oldest first.
func (p *NewsPanel) SetNews(events []sim.NewsEvent) {
	p.events = events
	if p.selectedIndex >= len(events) {
		p.selectedIndex = len(events) - 1
	}
	if p.selectedIndex < 0 {
		p.selectedIndex = 0
	}
}
