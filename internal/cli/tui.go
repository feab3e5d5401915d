package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/mandel/pkg/mandel"
)

var listDimStyle = lipgloss.NewStyle().Foreground(colorDim)

// =============================================================================
// RegionListModel - Interactive region selection
// =============================================================================

// RegionListModel is the bubbletea model for picking a region to render.
type RegionListModel struct {
	Regions  []mandel.Region
	Cursor   int
	Selected *mandel.Region
	Height   int
	Offset   int
}

// NewRegionListModel creates a new region list model.
func NewRegionListModel(regions []mandel.Region) RegionListModel {
	return RegionListModel{
		Regions: regions,
		Height:  10,
	}
}

func (m RegionListModel) Init() tea.Cmd {
	return nil
}

func (m RegionListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Regions)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Regions) == 0 {
				return m, nil
			}
			r := m.Regions[m.Cursor]
			m.Selected = &r
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 8
		if m.Height < 3 {
			m.Height = 3
		}
	}
	return m, nil
}

func (m RegionListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Region"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ render  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Regions))
	rows := make([][]string, 0, end-m.Offset)
	for i := m.Offset; i < end; i++ {
		r := m.Regions[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{cursor, r.Name, formatCenter(r.Bounds), formatSpan(r.Bounds), r.Description})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Region", "Center", "Span", "Description").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if m.Offset+row == m.Cursor {
				return lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
			}
			if col == 2 || col == 3 {
				return lipgloss.NewStyle().Foreground(colorDim)
			}
			return lipgloss.NewStyle()
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Regions))))

	return b.String()
}

// pickRegion runs the interactive picker and returns the chosen region name.
// ok is false when the user quit without choosing.
func pickRegion() (name string, ok bool, err error) {
	final, err := tea.NewProgram(NewRegionListModel(mandel.Regions())).Run()
	if err != nil {
		return "", false, fmt.Errorf("region picker: %w", err)
	}
	m, _ := final.(RegionListModel)
	if m.Selected == nil {
		return "", false, nil
	}
	return m.Selected.Name, true, nil
}

// =============================================================================
// Helpers
// =============================================================================

// formatCenter prints the midpoint of b as a complex number.
func formatCenter(b mandel.Bounds) string {
	c := b.Center()
	return fmt.Sprintf("%.6g%+.6gi", real(c), imag(c))
}

// formatSpan prints the width of b along the real axis.
func formatSpan(b mandel.Bounds) string {
	return fmt.Sprintf("%.3g", b.Width())
}
