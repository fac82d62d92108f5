package main

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/kylesnowschwartz/claude-history/history"
)

// annotator is the subset of sessioninfo.Store the browser writes through.
type annotator interface {
	SetPinned(ctx context.Context, sessionID string, pinned bool) error
	SetArchived(ctx context.Context, sessionID string, archived bool) error
}

// conversationLister is the subset of history.Reader the browser reads.
type conversationLister interface {
	ListConversations(ctx context.Context, q *history.ListQuery) (history.ListResult, error)
	ClearCache()
}

// conversationsMsg delivers a fresh listing.
type conversationsMsg struct {
	convs []history.ConversationSummary
	err   error
}

// logsChangedMsg is sent when the projects watcher reports activity.
type logsChangedMsg struct{}

// annotatedMsg reports the outcome of a pin/archive toggle.
type annotatedMsg struct{ err error }

// --- Flattened virtual list ---

// browseItemType discriminates between conversation rows and date headers.
type browseItemType int

const (
	browseItemConversation browseItemType = iota
	browseItemHeader
)

// browseItem is an entry in the flattened browser list.
type browseItem struct {
	typ      browseItemType
	conv     *history.ConversationSummary // nil for headers
	category history.DateCategory         // set for headers
}

// rebuildBrowseItems flattens conversations into headers + rows.
func rebuildBrowseItems(convs []history.ConversationSummary, now time.Time) []browseItem {
	var items []browseItem
	for _, g := range history.GroupByDateAt(convs, now) {
		items = append(items, browseItem{typ: browseItemHeader, category: g.Category})
		for i := range g.Conversations {
			items = append(items, browseItem{typ: browseItemConversation, conv: &g.Conversations[i]})
		}
	}
	return items
}

// browseModel is the bubbletea model behind `claude-history browse`.
type browseModel struct {
	ctx      context.Context
	lister   conversationLister
	notes    annotator // nil when the annotations database is unavailable
	changes  <-chan struct{}
	now      func() time.Time
	archived bool // show archived conversations too

	convs  []history.ConversationSummary
	items  []browseItem
	cursor int
	scroll int
	width  int
	height int

	status   string
	selected string // session chosen with enter
	loaded   bool
	err      error
}

func newBrowseModel(ctx context.Context, lister conversationLister, notes annotator, changes <-chan struct{}) browseModel {
	return browseModel{
		ctx:     ctx,
		lister:  lister,
		notes:   notes,
		changes: changes,
		now:     time.Now,
		width:   80,
		height:  24,
	}
}

// query lists newest first, hiding archived conversations unless asked.
func (m browseModel) query() *history.ListQuery {
	q := &history.ListQuery{
		SortBy: history.SortUpdated,
		Order:  history.OrderDesc,
		Limit:  math.MaxInt32,
	}
	if !m.archived {
		q.Archived = new(bool)
	}
	return q
}

func (m browseModel) loadCmd() tea.Cmd {
	q := m.query()
	return func() tea.Msg {
		res, err := m.lister.ListConversations(m.ctx, q)
		return conversationsMsg{convs: res.Conversations, err: err}
	}
}

// waitForChange returns a Cmd that waits for the next watcher signal.
func waitForChange(changes <-chan struct{}) tea.Cmd {
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return logsChangedMsg{}
	}
}

func (m browseModel) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(), waitForChange(m.changes))
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ensureVisible()
		return m, nil

	case conversationsMsg:
		m.loaded = true
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.setConversations(msg.convs)
		return m, nil

	case logsChangedMsg:
		return m, tea.Batch(m.loadCmd(), waitForChange(m.changes))

	case annotatedMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
			return m, nil
		}
		return m, m.loadCmd()

	case tea.KeyPressMsg:
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m browseModel) updateKeys(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit
	case "j", "down":
		m.cursorDown()
	case "k", "up":
		m.cursorUp()
	case "G", "end":
		m.cursorLast()
	case "g", "home":
		m.cursorFirst()
	case "enter":
		if c := m.selectedConversation(); c != nil {
			m.selected = c.SessionID
			return m, tea.Quit
		}
	case "p":
		if c := m.selectedConversation(); c != nil {
			cmd := m.annotate(func(ctx context.Context, a annotator) error {
				return a.SetPinned(ctx, c.SessionID, !c.SessionInfo.Pinned)
			})
			return m, cmd
		}
	case "a":
		if c := m.selectedConversation(); c != nil {
			cmd := m.annotate(func(ctx context.Context, a annotator) error {
				return a.SetArchived(ctx, c.SessionID, !c.SessionInfo.Archived)
			})
			return m, cmd
		}
	case "A":
		m.archived = !m.archived
		return m, m.loadCmd()
	case "r":
		m.lister.ClearCache()
		return m, m.loadCmd()
	}
	m.ensureVisible()
	return m, nil
}

func (m *browseModel) annotate(fn func(context.Context, annotator) error) tea.Cmd {
	if m.notes == nil {
		m.status = "annotations unavailable (no database)"
		return nil
	}
	notes, ctx := m.notes, m.ctx
	return func() tea.Msg {
		return annotatedMsg{err: fn(ctx, notes)}
	}
}

// setConversations replaces the listing, keeping the cursor on the same
// conversation when it is still present.
func (m *browseModel) setConversations(convs []history.ConversationSummary) {
	prev := ""
	if c := m.selectedConversation(); c != nil {
		prev = c.SessionID
	}
	m.convs = convs
	m.items = rebuildBrowseItems(convs, m.now())
	m.cursor = 0
	m.cursorFirst()
	if prev != "" {
		for i, it := range m.items {
			if it.typ == browseItemConversation && it.conv.SessionID == prev {
				m.cursor = i
				break
			}
		}
	}
	m.ensureVisible()
}

// selectedConversation returns the conversation at the cursor, or nil.
func (m browseModel) selectedConversation() *history.ConversationSummary {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return nil
	}
	it := m.items[m.cursor]
	if it.typ != browseItemConversation {
		return nil
	}
	return it.conv
}

// cursorDown moves to the next conversation, skipping headers.
func (m *browseModel) cursorDown() {
	for i := m.cursor + 1; i < len(m.items); i++ {
		if m.items[i].typ == browseItemConversation {
			m.cursor = i
			return
		}
	}
}

// cursorUp moves to the previous conversation, skipping headers.
func (m *browseModel) cursorUp() {
	for i := m.cursor - 1; i >= 0; i-- {
		if m.items[i].typ == browseItemConversation {
			m.cursor = i
			return
		}
	}
}

func (m *browseModel) cursorLast() {
	for i := len(m.items) - 1; i >= 0; i-- {
		if m.items[i].typ == browseItemConversation {
			m.cursor = i
			return
		}
	}
}

func (m *browseModel) cursorFirst() {
	m.scroll = 0
	for i := range m.items {
		if m.items[i].typ == browseItemConversation {
			m.cursor = i
			return
		}
	}
}

// itemHeight is the rendered height of an item: headers take a blank line
// plus the label (except the first), conversations take two lines.
func (m browseModel) itemHeight(i int) int {
	if m.items[i].typ == browseItemHeader {
		if i == 0 {
			return 1
		}
		return 2
	}
	return 2
}

// viewHeight is the number of list lines between the title and status bar.
func (m browseModel) viewHeight() int {
	return max(m.height-4, 1)
}

// ensureVisible adjusts scroll so the cursor row is on screen.
func (m *browseModel) ensureVisible() {
	if len(m.items) == 0 {
		m.scroll = 0
		return
	}
	start := 0
	for i := 0; i < m.cursor && i < len(m.items); i++ {
		start += m.itemHeight(i)
	}
	end := start + m.itemHeight(m.cursor) - 1
	if start < m.scroll {
		m.scroll = start
	}
	if end >= m.scroll+m.viewHeight() {
		m.scroll = end - m.viewHeight() + 1
	}
}

func (m browseModel) View() tea.View {
	v := tea.NewView(m.render())
	v.AltScreen = true
	return v
}

func (m browseModel) render() string {
	width := min(m.width, maxContentWidth)

	title := StyleAccentBold.Render("Conversations") + " " +
		StyleDim.Render(fmt.Sprintf("(%d)", len(m.convs)))
	if m.archived {
		title += " " + lipgloss.NewStyle().Foreground(ColorArchived).Render("incl. archived")
	}

	var body string
	switch {
	case m.err != nil:
		body = StyleErrorBold.Render("Error: ") + m.err.Error()
	case !m.loaded:
		body = StyleDim.Render("  Loading…")
	case len(m.items) == 0:
		body = StyleDim.Render("  No conversations found.")
	default:
		var lines []string
		now := m.now()
		for i, it := range m.items {
			switch it.typ {
			case browseItemHeader:
				if i > 0 {
					lines = append(lines, "")
				}
				lines = append(lines, renderDateHeader(it.category, width))
			case browseItemConversation:
				lines = append(lines, renderConversationRow(it.conv, i == m.cursor, now, width)...)
			}
		}
		start := min(m.scroll, len(lines))
		end := min(start+m.viewHeight(), len(lines))
		body = strings.Join(lines[start:end], "\n")
	}

	content := title + "\n\n" + body
	if n := strings.Count(content, "\n") + 1; n < m.height-1 {
		content += strings.Repeat("\n", m.height-1-n)
	}
	return content + "\n" + m.renderStatusBar()
}

func (m browseModel) renderStatusBar() string {
	if m.status != "" {
		return StyleErrorBold.Render(m.status)
	}
	pairs := [][2]string{
		{"j/k", "nav"}, {"enter", "open"}, {"p", "pin"}, {"a", "archive"},
		{"A", "show archived"}, {"r", "reload"}, {"q", "quit"},
	}
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = StyleSecondaryBold.Render(p[0]) + " " + StyleMuted.Render(p[1])
	}
	return strings.Join(parts, "  ")
}
