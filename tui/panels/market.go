package panels

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/marketsim/internal/controller"
	"github.com/zappabad/marketsim/tui/styles"
)

// MarketPanel lists every instrument with its price, move from the day open
// and daily volume.
type MarketPanel struct {
	assets        []controller.AssetInfo
	selectedIndex int
	focused       bool
	width         int
	height        int
}

func NewMarketPanel() *MarketPanel {
	return &MarketPanel{}
}

func (p *MarketPanel) Init() tea.Cmd {
	return nil
}

func (p *MarketPanel) Update(msg tea.Msg) (*MarketPanel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !p.focused {
			return p, nil
		}
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
			if p.selectedIndex > 0 {
				p.selectedIndex--
			}
		case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
			if p.selectedIndex < len(p.assets)-1 {
				p.selectedIndex++
			}
		}
	}
	return p, nil
}

func (p *MarketPanel) View() string {
	var content strings.Builder

	header := fmt.Sprintf("%-6s %10s %9s %10s %8s",
		"Symbol", "Price", "Change", "Volume", "Industry")
	content.WriteString(styles.HeaderStyle.Render(header))
	content.WriteString("\n")

	for i, a := range p.assets {
		change := 0.0
		if a.DayOpen > 0 {
			change = (a.Price - a.DayOpen) / a.DayOpen
		}
		row := fmt.Sprintf("%-6s %10s %9s %10d %8s",
			a.Symbol,
			styles.FormatPrice(a.Price),
			styles.FormatChange(change),
			a.DailyVolume,
			a.Industry)
		if a.CircuitBroken {
			row += " " + styles.NewsMajorStyle.Render("HALT")
		}

		style := styles.RowStyle
		if i == p.selectedIndex && p.focused {
			style = styles.SelectedRowStyle
		}
		content.WriteString(style.Render(row))
		if i < len(p.assets)-1 {
			content.WriteString("\n")
		}
	}

	panelStyle := styles.PanelStyle
	if p.focused {
		panelStyle = styles.FocusedPanelStyle
	}

	title := styles.RenderTitle("Market", p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, content.String())

	return panelStyle.Width(p.width - 2).Height(p.height - 2).Render(panel)
}

func (p *MarketPanel) SetFocus(focused bool) {
	p.focused = focused
}

func (p *MarketPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetAssets replaces the instrument rows. Selection is clamped when the
// universe shrinks.
func (p *MarketPanel) SetAssets(assets []controller.AssetInfo) {
	p.assets = assets
	if p.selectedIndex >= len(assets) {
		p.selectedIndex = len(assets) - 1
	}
	if p.selectedIndex < 0 {
		p.selectedIndex = 0
	}
}

// SelectedSymbol returns the highlighted instrument, or "" when empty.
func (p *MarketPanel) SelectedSymbol() string {
	if p.selectedIndex >= 0 && p.selectedIndex < len(p.assets) {
		return p.assets[p.selectedIndex].Symbol
	}
	return ""
}
