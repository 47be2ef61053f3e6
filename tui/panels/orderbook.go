package panels

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/marketsim/internal/sim"
	"github.com/zappabad/marketsim/tui/styles"
)

// BookPanel shows the depth ladder and the latest trade prints for the
// selected instrument.
type BookPanel struct {
	snapshot sim.BookSnapshot
	trades   []sim.Trade
	focused  bool
	width    int
	height   int
}

func NewBookPanel() *BookPanel {
	return &BookPanel{}
}

func (p *BookPanel) Init() tea.Cmd {
	return nil
}

func (p *BookPanel) Update(msg tea.Msg) (*BookPanel, tea.Cmd) {
	return p, nil
}

func (p *BookPanel) View() string {
	var content strings.Builder

	header := fmt.Sprintf("%8s %9s │ %-9s %-8s", "BidQty", "Bid", "Ask", "AskQty")
	content.WriteString(styles.HeaderStyle.Render(header))
	content.WriteString("\n")

	levels := (p.height - 10) / 2
	if levels < 3 {
		levels = 3
	}
	bids := p.snapshot.Bids
	if len(bids) > levels {
		bids = bids[:levels]
	}
	asks := p.snapshot.Asks
	if len(asks) > levels {
		asks = asks[:levels]
	}

	rows := len(bids)
	if len(asks) > rows {
		rows = len(asks)
	}
	for i := 0; i < rows; i++ {
		bidPart := fmt.Sprintf("%8s %9s", "", "")
		askPart := fmt.Sprintf("%-9s %-8s", "", "")
		if i < len(bids) {
			bidPart = fmt.Sprintf("%8d %9s", bids[i].TotalQuantity, styles.FormatPrice(bids[i].Price))
		}
		if i < len(asks) {
			askPart = fmt.Sprintf("%-9s %-8d", styles.FormatPrice(asks[i].Price), asks[i].TotalQuantity)
		}
		content.WriteString(styles.BuyStyle.Render(bidPart))
		content.WriteString(" │ ")
		content.WriteString(styles.SellStyle.Render(askPart))
		content.WriteString("\n")
	}

	if p.snapshot.BestBid > 0 && p.snapshot.BestAsk > 0 {
		content.WriteString(styles.MutedStyle.Render(
			fmt.Sprintf("mid %s  spread %.2f", styles.FormatPrice(p.snapshot.MidPrice), p.snapshot.Spread)))
		content.WriteString("\n")
	}

	if len(p.trades) > 0 {
		content.WriteString("\n")
		content.WriteString(styles.HeaderStyle.Render("Recent trades"))
		content.WriteString("\n")
		shown := p.trades
		if len(shown) > 5 {
			shown = shown[len(shown)-5:]
		}
		// Newest first.
		for i := len(shown) - 1; i >= 0; i-- {
			t := shown[i]
			line := fmt.Sprintf("%s x%-6d %s→%s",
				styles.FormatPrice(t.Price), t.Quantity, t.SellerType, t.BuyerType)
			content.WriteString(styles.RowStyle.Render(line))
			if i > 0 {
				content.WriteString("\n")
			}
		}
	}

	panelStyle := styles.PanelStyle
	if p.focused {
		panelStyle = styles.FocusedPanelStyle
	}

	name := p.snapshot.Symbol
	if name == "" {
		name = "Book"
	}
	title := styles.RenderTitle(name, p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, content.String())

	return panelStyle.Width(p.width - 2).Height(p.height - 2).Render(panel)
}

func (p *BookPanel) SetFocus(focused bool) {
	p.focused = focused
}

func (p *BookPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetSnapshot replaces the depth view.
func (p *BookPanel) SetSnapshot(snap sim.BookSnapshot) {
	p.snapshot = snap
}

// SetTrades replaces the recent trade prints, oldest first.
func (p *BookPanel) SetTrades(trades []sim.Trade) {
	p.trades = trades
}
