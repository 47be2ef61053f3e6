// Package tui is the interactive terminal front end. It drives an in-process
// simulation controller: market overview, depth ladder, news feed and a
// manual order entry form.
package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/marketsim/internal/controller"
	"github.com/zappabad/marketsim/internal/sim"
	"github.com/zappabad/marketsim/tui/panels"
	"github.com/zappabad/marketsim/tui/styles"
)

// PanelFocus identifies the focused panel.
type PanelFocus int

const (
	FocusMarket PanelFocus = 0
	FocusBook   PanelFocus = 1
	FocusNews   PanelFocus = 2
	FocusOrder  PanelFocus = 3
)

const panelCount = 4

// Model is the main TUI application model.
type Model struct {
	ctrl *controller.Controller

	marketPanel *panels.MarketPanel
	bookPanel   *panels.BookPanel
	newsPanel   *panels.NewsPanel
	orderPanel  *panels.OrderPanel

	focusedPanel PanelFocus

	subID  int
	subCh  <-chan controller.TickUpdate
	symbol string

	width  int
	height int

	statusMsg string
	ready     bool
}

// NewModel builds the TUI around a controller.
func NewModel(ctrl *controller.Controller) *Model {
	symbols := make([]string, 0)
	for _, a := range ctrl.Assets() {
		symbols = append(symbols, a.Symbol)
	}

	subID, subCh := ctrl.Subscribe(64)

	m := &Model{
		ctrl:         ctrl,
		marketPanel:  panels.NewMarketPanel(),
		bookPanel:    panels.NewBookPanel(),
		newsPanel:    panels.NewNewsPanel(),
		orderPanel:   panels.NewOrderPanel(symbols),
		focusedPanel: FocusMarket,
		subID:        subID,
		subCh:        subCh,
	}
	if len(symbols) > 0 {
		m.symbol = symbols[0]
	}
	m.refreshData()
	return m
}

// Close releases the controller subscription.
func (m *Model) Close() {
	m.ctrl.Unsubscribe(m.subID)
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.orderPanel.Init(),
		m.listenTicks(),
		m.tickRefresh(),
	)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "tab":
			m.focusedPanel = (m.focusedPanel + 1) % panelCount

		case "shift+tab":
			m.focusedPanel--
			if m.focusedPanel < 0 {
				m.focusedPanel = panelCount - 1
			}

		case "f1":
			m.focusedPanel = FocusMarket
		case "f2":
			m.focusedPanel = FocusBook
		case "f3":
			m.focusedPanel = FocusNews
		case "f4":
			m.focusedPanel = FocusOrder

		case " ", "space":
			// Space toggles the live loop unless the order form has focus.
			if m.focusedPanel != FocusOrder {
				cmds = append(cmds, m.toggleRun())
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case tickUpdateMsg:
		m.refreshData()
		cmds = append(cmds, m.listenTicks())

	case refreshMsg:
		m.refreshData()
		cmds = append(cmds, m.tickRefresh())

	case panels.OrderSubmitMsg:
		cmds = append(cmds, m.submitOrder(msg))

	case orderResultMsg:
		m.statusMsg = msg.message
	}

	m.updateFocusedPanel(msg, &cmds)

	// Track selection changes in the market panel.
	if selected := m.marketPanel.SelectedSymbol(); selected != "" && selected != m.symbol {
		m.symbol = selected
		m.orderPanel.SetSymbol(selected)
		m.refreshData()
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) updateFocusedPanel(msg tea.Msg, cmds *[]tea.Cmd) {
	var cmd tea.Cmd
	switch m.focusedPanel {
	case FocusMarket:
		m.marketPanel, cmd = m.marketPanel.Update(msg)
	case FocusBook:
		m.bookPanel, cmd = m.bookPanel.Update(msg)
	case FocusNews:
		m.newsPanel, cmd = m.newsPanel.Update(msg)
	case FocusOrder:
		m.orderPanel, cmd = m.orderPanel.Update(msg)
	}
	if cmd != nil {
		*cmds = append(*cmds, cmd)
	}
}

func (m *Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	m.marketPanel.SetFocus(m.focusedPanel == FocusMarket)
	m.bookPanel.SetFocus(m.focusedPanel == FocusBook)
	m.newsPanel.SetFocus(m.focusedPanel == FocusNews)
	m.orderPanel.SetFocus(m.focusedPanel == FocusOrder)

	leftWidth := m.width / 2
	rightWidth := m.width - leftWidth
	topHeight := (m.height - 3) * 3 / 5
	bottomHeight := m.height - topHeight - 3

	m.marketPanel.SetSize(leftWidth, topHeight)
	m.bookPanel.SetSize(rightWidth, topHeight)
	m.newsPanel.SetSize(leftWidth, bottomHeight)
	m.orderPanel.SetSize(rightWidth, bottomHeight)

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, m.marketPanel.View(), m.bookPanel.View())
	bottomRow := lipgloss.JoinHorizontal(lipgloss.Top, m.newsPanel.View(), m.orderPanel.View())

	return lipgloss.JoinVertical(lipgloss.Left, topRow, bottomRow, m.renderStatusBar())
}

func (m *Model) renderStatusBar() string {
	status := m.ctrl.Status()
	state := m.ctrl.MarketState()

	info := fmt.Sprintf("%s  %s  ticks %d  trades %d  sentiment %s",
		status.State,
		status.Date,
		status.TotalTicks,
		status.TotalTrades,
		styles.FormatSentiment(state.GlobalSentiment))

	help := styles.StatusBarKeyStyle.Render("F1-F4") + styles.StatusBarDescStyle.Render(" panels") +
		" │ " + styles.StatusBarKeyStyle.Render("Space") + styles.StatusBarDescStyle.Render(" run/pause") +
		" │ " + styles.StatusBarKeyStyle.Render("q") + styles.StatusBarDescStyle.Render(" quit")

	bar := info + "  │  " + help
	if m.statusMsg != "" {
		bar += "  │  " + m.statusMsg
	}
	return styles.StatusBarStyle.Width(m.width).Render(bar)
}

func (m *Model) refreshData() {
	m.marketPanel.SetAssets(m.ctrl.Assets())
	m.newsPanel.SetNews(m.ctrl.RecentNews(50))

	if m.symbol == "" {
		return
	}
	if snap, err := m.ctrl.BookSnapshot(m.symbol, 10); err == nil {
		m.bookPanel.SetSnapshot(snap)
	}

	var symbolTrades []sim.Trade
	for _, t := range m.ctrl.RecentTrades(100) {
		if t.Symbol == m.symbol {
			symbolTrades = append(symbolTrades, t)
		}
	}
	m.bookPanel.SetTrades(symbolTrades)
}

func (m *Model) toggleRun() tea.Cmd {
	return func() tea.Msg {
		var err error
		var verb string
		if m.ctrl.State() == controller.StateRunning {
			err, verb = m.ctrl.Pause(), "paused"
		} else {
			err, verb = m.ctrl.Start(), "running"
		}
		if err != nil {
			return orderResultMsg{message: err.Error()}
		}
		return orderResultMsg{message: verb}
	}
}

func (m *Model) submitOrder(order panels.OrderSubmitMsg) tea.Cmd {
	return func() tea.Msg {
		_, filled, avgPrice, err := m.ctrl.SubmitOrder(sim.Order{
			Symbol:   order.Symbol,
			Side:     order.Side,
			Type:     order.Type,
			Price:    order.Price,
			Quantity: order.Quantity,
		})
		if err != nil {
			return orderResultMsg{message: "order failed: " + err.Error()}
		}
		if filled > 0 {
			return orderResultMsg{message: fmt.Sprintf("filled %d @ %.2f", filled, avgPrice)}
		}
		return orderResultMsg{message: "order resting"}
	}
}

func (m *Model) listenTicks() tea.Cmd {
	return func() tea.Msg {
		update, ok := <-m.subCh
		if !ok {
			return nil
		}
		return tickUpdateMsg{update: update}
	}
}

// tickUpdateMsg carries a live tick from the controller subscription.
type tickUpdateMsg struct {
	update controller.TickUpdate
}

// refreshMsg drives the periodic poll so paused sessions still render
// current data.
type refreshMsg struct{}

func (m *Model) tickRefresh() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(time.Time) tea.Msg {
		return refreshMsg{}
	})
}

// orderResultMsg reports the outcome of an async controller call.
type orderResultMsg struct {
	message string
}
