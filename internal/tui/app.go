package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/lu-zhengda/flowtag/internal/flowlog"
	"github.com/lu-zhengda/flowtag/internal/tagger"
)

// viewState tracks which screen the TUI is currently showing.
type viewState int

const (
	viewTable viewState = iota
	viewDetail
	viewFilter
)

// tab selects which counter is displayed.
type tab int

const (
	tabTags tab = iota
	tabCombos
)

// sortField defines what column to sort by.
type sortField int

const (
	sortByCount sortField = iota
	sortByName
	sortByFirstSeen
)

// row is one displayed counter entry. For the tags tab only tag is set;
// combo rows carry the tag their port/protocol resolves to.
type row struct {
	tag      string
	port     string
	protocol string
	count    int
	order    int
}

func (r row) name() string {
	if r.port == "" && r.protocol == "" {
		return r.tag
	}
	return r.port + "/" + r.protocol
}

// Messages for async operations.
type countDoneMsg struct {
	counts *flowlog.Counts
	err    error
}

// Model is the Bubbletea model for browsing the counts of one flow log.
type Model struct {
	tagger  *tagger.Tagger
	flowLog string
	version string

	counts *flowlog.Counts
	err    error

	tab      tab
	rows     []row
	filtered []int // indices into rows for currently displayed items

	cursor       int
	scrollOffset int
	sortBy       sortField
	searching    bool
	searchQuery  string

	detail *row

	scanning bool
	spinner  spinner.Model

	width  int
	height int

	currentView viewState
}

// New creates a viewer that counts flowLog with tg.
func New(tg *tagger.Tagger, flowLog, version string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorCyan)

	return Model{
		tagger:      tg,
		flowLog:     flowLog,
		version:     version,
		scanning:    true,
		spinner:     sp,
		currentView: viewTable,
	}
}

// Init starts the spinner and kicks off the initial count.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.doCount())
}

func (m Model) doCount() tea.Cmd {
	tg := m.tagger
	path := m.flowLog
	return func() tea.Msg {
		counts, err := tg.Count(path)
		return countDoneMsg{counts: counts, err: err}
	}
}

// Update handles all messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.adjustScroll()
		return m, nil

	case spinner.TickMsg:
		if m.scanning {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case countDoneMsg:
		m.scanning = false
		m.err = msg.err
		if msg.err == nil {
			m.counts = msg.counts
			m.buildRows()
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		switch m.currentView {
		case viewTable:
			return m.updateTable(msg)
		case viewDetail:
			return m.updateDetail(msg)
		case viewFilter:
			return m.updateFilter(msg)
		}
	}

	return m, nil
}

func (m Model) updateTable(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "j", "down":
		if len(m.filtered) > 0 && m.cursor < len(m.filtered)-1 {
			m.cursor++
			m.ensureCursorVisible()
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
			m.ensureCursorVisible()
		}
	case "tab":
		m.tab = (m.tab + 1) % 2
		m.cursor = 0
		m.scrollOffset = 0
		m.buildRows()
	case "i", "enter":
		if r := m.selectedRow(); r != nil {
			m.detail = r
			m.currentView = viewDetail
		}
	case "r":
		m.scanning = true
		return m, tea.Batch(m.doCount(), m.spinner.Tick)
	case "s":
		m.sortBy = (m.sortBy + 1) % 3
		m.sortRows()
		m.rebuildFiltered()
	case "/":
		m.currentView = viewFilter
		m.searchQuery = ""
		m.searching = true
	case "esc":
		if m.searchQuery != "" {
			m.searchQuery = ""
			m.searching = false
			m.rebuildFiltered()
		}
	}
	return m, nil
}

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "esc", "backspace", "enter":
		m.currentView = viewTable
		m.detail = nil
	}
	return m, nil
}

func (m Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.currentView = viewTable
		m.searching = false
		m.rebuildFiltered()
	case "esc":
		m.currentView = viewTable
		m.searching = false
		m.searchQuery = ""
		m.rebuildFiltered()
	case "backspace":
		if len(m.searchQuery) > 0 {
			m.searchQuery = m.searchQuery[:len(m.searchQuery)-1]
			m.rebuildFiltered()
		}
	default:
		key := msg.String()
		if len(key) == 1 {
			m.searchQuery += key
			m.rebuildFiltered()
		}
	}
	return m, nil
}

// buildRows converts the counter of the current tab into rows.
func (m *Model) buildRows() {
	m.rows = m.rows[:0]
	if m.counts == nil {
		m.rebuildFiltered()
		return
	}

	switch m.tab {
	case tabCombos:
		table := m.tagger.Lookup()
		for i, k := range m.counts.Combos.Keys() {
			m.rows = append(m.rows, row{
				tag:      table.Resolve(k.Port, k.Protocol),
				port:     k.Port,
				protocol: k.Protocol,
				count:    m.counts.Combos.Get(k),
				order:    i,
			})
		}
	default:
		for i, tag := range m.counts.Tags.Keys() {
			m.rows = append(m.rows, row{tag: tag, count: m.counts.Tags.Get(tag), order: i})
		}
	}

	m.sortRows()
	m.rebuildFiltered()
}

func (m *Model) selectedRow() *row {
	if len(m.filtered) == 0 || m.cursor < 0 || m.cursor >= len(m.filtered) {
		return nil
	}
	idx := m.filtered[m.cursor]
	if idx >= len(m.rows) {
		return nil
	}
	r := m.rows[idx]
	return &r
}

func (m *Model) sortRows() {
	sort.SliceStable(m.rows, func(i, j int) bool {
		switch m.sortBy {
		case sortByName:
			return strings.ToLower(m.rows[i].name()) < strings.ToLower(m.rows[j].name())
		case sortByFirstSeen:
			return m.rows[i].order < m.rows[j].order
		default:
			if m.rows[i].count != m.rows[j].count {
				return m.rows[i].count > m.rows[j].count
			}
			return m.rows[i].order < m.rows[j].order
		}
	})
}

func (m *Model) rebuildFiltered() {
	m.filtered = m.filtered[:0]
	query := strings.ToLower(m.searchQuery)
	for i, r := range m.rows {
		if query != "" {
			match := strings.Contains(strings.ToLower(r.tag), query) ||
				strings.Contains(r.port, query) ||
				strings.Contains(r.protocol, query)
			if !match {
				continue
			}
		}
		m.filtered = append(m.filtered, i)
	}
	if m.cursor >= len(m.filtered) {
		m.cursor = max(0, len(m.filtered)-1)
	}
	m.adjustScroll()
}

func (m *Model) ensureCursorVisible() {
	visible := m.visibleRows()
	if m.cursor < m.scrollOffset {
		m.scrollOffset = m.cursor
	}
	if m.cursor >= m.scrollOffset+visible {
		m.scrollOffset = m.cursor - visible + 1
	}
}

func (m *Model) adjustScroll() {
	m.ensureCursorVisible()
	maxOffset := max(0, len(m.filtered)-m.visibleRows())
	if m.scrollOffset > maxOffset {
		m.scrollOffset = maxOffset
	}
	if m.scrollOffset < 0 {
		m.scrollOffset = 0
	}
}

func (m Model) visibleRows() int {
	// Reserve lines for: header (2), tabs (2), column headers (1), status (2), help (1) = 8.
	const reserved = 8
	return max(1, m.height-reserved)
}

func (m Model) total() int {
	if m.counts == nil {
		return 0
	}
	return m.counts.Records()
}

// View renders the TUI.
func (m Model) View() string {
	switch m.currentView {
	case viewDetail:
		return m.viewDetail()
	case viewFilter:
		return m.viewFilter()
	default:
		return m.viewTable()
	}
}

func (m Model) viewTable() string {
	var b strings.Builder

	title := titleStyle.Render(fmt.Sprintf("flowtag %s", m.version))
	stats := ""
	if m.counts != nil {
		stats = dimStyle.Render(fmt.Sprintf("%s  Records: %s  Skipped: %s",
			m.flowLog,
			humanize.Comma(int64(m.counts.Records())),
			humanize.Comma(int64(m.counts.Skipped))))
	}
	b.WriteString(title + "  " + stats + "\n")

	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n")
		b.WriteString(helpStyle.Render("r:retry  q:quit") + "\n")
		return b.String()
	}

	if m.scanning && m.counts == nil {
		b.WriteString("\n" + m.spinner.View() + " Counting flow log...\n")
		return b.String()
	}

	tabs := []string{"Tags", "Port/Protocol"}
	for i, name := range tabs {
		style := inactiveTabStyle
		if tab(i) == m.tab {
			style = activeTabStyle
		}
		tabs[i] = style.Render(name)
	}
	b.WriteString("\n" + lipgloss.JoinHorizontal(lipgloss.Top, tabs...) + "\n")

	sortIndicator := func(field sortField) string {
		if m.sortBy == field {
			return " ^"
		}
		return ""
	}
	if m.tab == tabCombos {
		b.WriteString(headerStyle.Render(fmt.Sprintf("  %-9s %-12s %-24s %s",
			"PORT"+sortIndicator(sortByName), "PROTOCOL", "TAG", "COUNT"+sortIndicator(sortByCount))) + "\n")
	} else {
		b.WriteString(headerStyle.Render(fmt.Sprintf("  %-36s %s",
			"TAG"+sortIndicator(sortByName), "COUNT"+sortIndicator(sortByCount))) + "\n")
	}

	if len(m.filtered) == 0 {
		if m.searchQuery != "" {
			b.WriteString("\n  No results matching: " + m.searchQuery + "\n")
		} else {
			b.WriteString("\n  No records counted.\n")
		}
	} else {
		viewportRows := m.visibleRows()
		end := min(m.scrollOffset+viewportRows, len(m.filtered))

		for i := m.scrollOffset; i < end; i++ {
			r := m.rows[m.filtered[i]]

			cursor := "  "
			if i == m.cursor {
				cursor = cursorStyle.Render("> ")
			}

			var line string
			if m.tab == tabCombos {
				line = fmt.Sprintf("%-9s %-12s %-24s %s",
					truncate(r.port, 9), truncate(r.protocol, 12), truncate(r.tag, 24), humanize.Comma(int64(r.count)))
			} else {
				line = fmt.Sprintf("%-36s %s", truncate(r.tag, 36), humanize.Comma(int64(r.count)))
			}
			b.WriteString(cursor + rowStyle(r).Render(line) + "\n")
		}

		if len(m.filtered) > viewportRows {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  [%d-%d of %d]",
				m.scrollOffset+1, end, len(m.filtered))) + "\n")
		}
	}

	if m.searchQuery != "" {
		b.WriteString("\n" + dimStyle.Render(fmt.Sprintf("  filter: %s", m.searchQuery)))
	}

	b.WriteString(helpStyle.Render("j/k:navigate  tab:switch  i:detail  r:recount  s:sort  /:search  q:quit") + "\n")

	return b.String()
}

func (m Model) viewDetail() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("flowtag -- Detail") + "\n\n")

	if m.detail == nil {
		b.WriteString("  Nothing selected.\n")
		b.WriteString(helpStyle.Render("\nesc back | q quit") + "\n")
		return b.String()
	}

	r := m.detail
	b.WriteString(labelStyle.Render("Tag:") + valueStyle.Render(r.tag) + "\n")
	if r.port != "" || r.protocol != "" {
		b.WriteString(labelStyle.Render("Port:") + valueStyle.Render(r.port) + "\n")
		b.WriteString(labelStyle.Render("Protocol:") + valueStyle.Render(r.protocol) + "\n")
	}
	b.WriteString(labelStyle.Render("Count:") + valueStyle.Render(humanize.Comma(int64(r.count))) + "\n")
	if total := m.total(); total > 0 {
		b.WriteString(labelStyle.Render("Share:") + valueStyle.Render(
			fmt.Sprintf("%.1f%% of %s records", 100*float64(r.count)/float64(total), humanize.Comma(int64(total))),
		) + "\n")
	}
	b.WriteString(labelStyle.Render("First seen:") + valueStyle.Render(humanize.Ordinal(r.order+1)) + "\n")

	b.WriteString(helpStyle.Render("\nesc:back  q:quit") + "\n")
	return b.String()
}

func (m Model) viewFilter() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("flowtag -- Search") + "\n\n")
	b.WriteString("  Type to filter: " + m.searchQuery + "_\n")
	b.WriteString(helpStyle.Render("\nenter:apply  esc:cancel") + "\n")

	return b.String()
}

// truncate truncates a string to max length, appending "..." if truncated.
func truncate(s string, maxLen int) string {
	if maxLen < 4 {
		maxLen = 4
	}
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
