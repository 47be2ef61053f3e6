package panels

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/marketsim/internal/sim"
	"github.com/zappabad/marketsim/tui/styles"
)

// OrderField is the currently focused input field.
type OrderField int

const (
	FieldSymbol OrderField = iota
	FieldSide
	FieldType
	FieldPrice
	FieldQuantity
	FieldSubmit
)

// OrderSubmitMsg is emitted when the form is submitted.
type OrderSubmitMsg struct {
	Symbol   string
	Side     sim.Side
	Type     sim.OrderType
	Price    sim.Price
	Quantity sim.Volume
}

// OrderPanel is the manual order entry form. Symbol, side and type cycle
// with left/right; price and quantity are free text.
type OrderPanel struct {
	symbols     []string
	symbolIndex int

	sideOptions []string
	sideIndex   int
	typeOptions []string
	typeIndex   int

	priceInput    textinput.Model
	quantityInput textinput.Model

	currentField OrderField

	focused bool
	width   int
	height  int
}

func NewOrderPanel(symbols []string) *OrderPanel {
	priceInput := textinput.New()
	priceInput.Placeholder = "Price"
	priceInput.Width = 10
	priceInput.CharLimit = 12

	quantityInput := textinput.New()
	quantityInput.Placeholder = "Quantity"
	quantityInput.Width = 10
	quantityInput.CharLimit = 9

	return &OrderPanel{
		symbols:       symbols,
		sideOptions:   []string{"BUY", "SELL"},
		typeOptions:   []string{"LIMIT", "MARKET"},
		priceInput:    priceInput,
		quantityInput: quantityInput,
		currentField:  FieldSymbol,
	}
}

func (p *OrderPanel) Init() tea.Cmd {
	return textinput.Blink
}

func (p *OrderPanel) Update(msg tea.Msg) (*OrderPanel, tea.Cmd) {
	if !p.focused {
		return p, nil
	}

	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("down"))):
			p.nextField()
			return p, nil

		case key.Matches(msg, key.NewBinding(key.WithKeys("up"))):
			p.prevField()
			return p, nil

		case key.Matches(msg, key.NewBinding(key.WithKeys("enter"))):
			if p.currentField == FieldSubmit {
				return p, p.submit()
			}
			p.nextField()
			return p, nil

		case key.Matches(msg, key.NewBinding(key.WithKeys("left"))):
			if p.cycle(-1) {
				return p, nil
			}

		case key.Matches(msg, key.NewBinding(key.WithKeys("right"))):
			if p.cycle(1) {
				return p, nil
			}
		}
	}

	switch p.currentField {
	case FieldPrice:
		p.priceInput, cmd = p.priceInput.Update(msg)
	case FieldQuantity:
		p.quantityInput, cmd = p.quantityInput.Update(msg)
	}

	return p, cmd
}

// cycle moves the option selection on the current field. Returns false when
// the field is free text so arrow keys reach the input.
func (p *OrderPanel) cycle(dir int) bool {
	switch p.currentField {
	case FieldSymbol:
		if len(p.symbols) > 0 {
			p.symbolIndex = (p.symbolIndex + dir + len(p.symbols)) % len(p.symbols)
		}
		return true
	case FieldSide:
		p.sideIndex = (p.sideIndex + dir + len(p.sideOptions)) % len(p.sideOptions)
		return true
	case FieldType:
		p.typeIndex = (p.typeIndex + dir + len(p.typeOptions)) % len(p.typeOptions)
		return true
	}
	return false
}

func (p *OrderPanel) View() string {
	var content strings.Builder

	content.WriteString(p.renderField("Symbol", FieldSymbol, p.renderOptions(p.symbols, p.symbolIndex, FieldSymbol)))
	content.WriteString("\n")
	content.WriteString(p.renderField("Side", FieldSide, p.renderSide()))
	content.WriteString("\n")
	content.WriteString(p.renderField("Type", FieldType, p.renderOptions(p.typeOptions, p.typeIndex, FieldType)))
	content.WriteString("\n")

	if p.typeIndex == 0 { // LIMIT
		content.WriteString(p.renderField("Price", FieldPrice, p.priceInput.View()))
		content.WriteString("\n")
	}
	content.WriteString(p.renderField("Qty", FieldQuantity, p.quantityInput.View()))
	content.WriteString("\n\n")

	submitStyle := styles.InputStyle
	if p.currentField == FieldSubmit && p.focused {
		submitStyle = styles.FocusedInputStyle.Bold(true).Foreground(styles.PrimaryColor)
	}
	content.WriteString(submitStyle.Render("  [Submit]  "))
	content.WriteString("\n\n")
	content.WriteString(p.renderSummary())

	panelStyle := styles.PanelStyle
	if p.focused {
		panelStyle = styles.FocusedPanelStyle
	}

	title := styles.RenderTitle("Order Entry", p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, content.String())

	return panelStyle.Width(p.width - 2).Height(p.height - 2).Render(panel)
}

func (p *OrderPanel) renderField(label string, field OrderField, view string) string {
	labelStyle := styles.LabelStyle
	if p.currentField == field && p.focused {
		labelStyle = labelStyle.Foreground(styles.PrimaryColor)
	}
	return labelStyle.Render(fmt.Sprintf("%-8s", label)) + view
}

func (p *OrderPanel) renderOptions(options []string, selected int, field OrderField) string {
	items := make([]string, 0, len(options))
	for i, opt := range options {
		style := styles.OptionStyle
		if i == selected {
			if p.currentField == field && p.focused {
				style = styles.OptionSelectedStyle
			} else {
				style = styles.OptionStyle.Bold(true)
			}
		}
		items = append(items, style.Render(opt))
	}
	return strings.Join(items, "│")
}

func (p *OrderPanel) renderSide() string {
	items := make([]string, 0, len(p.sideOptions))
	for i, opt := range p.sideOptions {
		style := styles.OptionStyle
		if i == p.sideIndex {
			if opt == "BUY" {
				style = style.Foreground(styles.UpColor).Bold(true)
			} else {
				style = style.Foreground(styles.DownColor).Bold(true)
			}
			if p.currentField == FieldSide && p.focused {
				style = style.Background(lipgloss.Color("#374151"))
			}
		}
		items = append(items, style.Render(opt))
	}
	return strings.Join(items, "│")
}

func (p *OrderPanel) renderSummary() string {
	symbol := "---"
	if len(p.symbols) > 0 {
		symbol = p.symbols[p.symbolIndex]
	}

	side := p.sideOptions[p.sideIndex]
	sideStyle := styles.BuyStyle
	if side == "SELL" {
		sideStyle = styles.SellStyle
	}

	parts := []string{symbol, sideStyle.Render(side), p.typeOptions[p.typeIndex]}
	if p.typeIndex == 0 {
		price := p.priceInput.Value()
		if price == "" {
			price = "0"
		}
		parts = append(parts, "@"+price)
	}
	qty := p.quantityInput.Value()
	if qty == "" {
		qty = "0"
	}
	parts = append(parts, "x"+qty)

	return styles.HeaderStyle.Render("Order: ") + strings.Join(parts, " ")
}

func (p *OrderPanel) nextField() {
	switch p.currentField {
	case FieldSymbol:
		p.currentField = FieldSide
	case FieldSide:
		p.currentField = FieldType
	case FieldType:
		if p.typeIndex == 0 {
			p.currentField = FieldPrice
			p.priceInput.Focus()
		} else {
			p.currentField = FieldQuantity
			p.quantityInput.Focus()
		}
	case FieldPrice:
		p.currentField = FieldQuantity
		p.priceInput.Blur()
		p.quantityInput.Focus()
	case FieldQuantity:
		p.currentField = FieldSubmit
		p.quantityInput.Blur()
	case FieldSubmit:
		p.currentField = FieldSymbol
	}
}

func (p *OrderPanel) prevField() {
	switch p.currentField {
	case FieldSymbol:
		p.currentField = FieldSubmit
	case FieldSide:
		p.currentField = FieldSymbol
	case FieldType:
		p.currentField = FieldSide
	case FieldPrice:
		p.currentField = FieldType
		p.priceInput.Blur()
	case FieldQuantity:
		if p.typeIndex == 0 {
			p.currentField = FieldPrice
			p.priceInput.Focus()
		} else {
			p.currentField = FieldType
		}
		p.quantityInput.Blur()
	case FieldSubmit:
		p.currentField = FieldQuantity
		p.quantityInput.Focus()
	}
}

func (p *OrderPanel) submit() tea.Cmd {
	if len(p.symbols) == 0 {
		return nil
	}
	symbol := p.symbols[p.symbolIndex]

	qty, err := strconv.ParseInt(p.quantityInput.Value(), 10, 64)
	if err != nil || qty <= 0 {
		return nil
	}

	side := sim.SideBuy
	if p.sideIndex == 1 {
		side = sim.SideSell
	}

	typ := sim.OrderLimit
	var price float64
	if p.typeIndex == 1 {
		typ = sim.OrderMarket
	} else {
		price, err = strconv.ParseFloat(p.priceInput.Value(), 64)
		if err != nil || price <= 0 {
			return nil
		}
	}

	return func() tea.Msg {
		return OrderSubmitMsg{
			Symbol:   symbol,
			Side:     side,
			Type:     typ,
			Price:    sim.Price(price),
			Quantity: sim.Volume(qty),
		}
	}
}

func (p *OrderPanel) SetFocus(focused bool) {
	p.focused = focused
	if !focused {
		p.priceInput.Blur()
		p.quantityInput.Blur()
		return
	}
	switch p.currentField {
	case FieldPrice:
		p.priceInput.Focus()
	case FieldQuantity:
		p.quantityInput.Focus()
	}
}

func (p *OrderPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetSymbol points the form at a symbol picked elsewhere in the UI.
func (p *OrderPanel) SetSymbol(symbol string) {
	for i, s := range p.symbols {
		if s == symbol {
			p.symbolIndex = i
			return
		}
	}
}
