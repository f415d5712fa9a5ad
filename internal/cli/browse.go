package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/andreyvit/todostore"
)

type browseKeys struct {
	Up     key.Binding
	Down   key.Binding
	Next   key.Binding
	Prev   key.Binding
	Toggle key.Binding
	Add    key.Binding
	Delete key.Binding
	Quit   key.Binding
}

func (k browseKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Add, k.Delete, k.Next, k.Prev, k.Quit}
}

func (k browseKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Next, k.Prev},
		{k.Toggle, k.Add, k.Delete, k.Quit},
	}
}

var defaultBrowseKeys = browseKeys{
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Next:   key.NewBinding(key.WithKeys("n", "right", "pgdown"), key.WithHelp("n/→", "next page")),
	Prev:   key.NewBinding(key.WithKeys("p", "left", "pgup"), key.WithHelp("p/←", "prev page")),
	Toggle: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
	Add:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
	Delete: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Quit:   key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

// browseModel pages through the store one page at a time; every action goes
// straight to the service and the current page is reloaded afterwards.
type browseModel struct {
	svc      *todostore.Service
	pageNum  int
	pageSize int

	todos []*todostore.Todo
	total int
	index int

	adding bool
	ti     textinput.Model

	keys   browseKeys
	help   help.Model
	status string
	err    error
}

func newBrowseModel(svc *todostore.Service, pageSize int) browseModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "New todo title..."
	ti.CharLimit = 200

	m := browseModel{
		svc:      svc,
		pageNum:  1,
		pageSize: pageSize,
		ti:       ti,
		keys:     defaultBrowseKeys,
		help:     help.New(),
	}
	m.reload()
	return m
}

func (r *runner) doBrowse(a []string) int {
	if len(a) != 0 {
		r.fail("usage: todo browse")
		return 2
	}
	m := newBrowseModel(r.svc, r.opt.PageSize)
	if m.err != nil {
		return r.failErr("browse", m.err)
	}
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithOutput(r.stdout))
	final, err := p.Run()
	if err != nil {
		r.fail("browse: " + err.Error())
		return 1
	}
	if fm, ok := final.(browseModel); ok && fm.err != nil {
		return r.failErr("browse", fm.err)
	}
	return 0
}

func (m *browseModel) pageCount() int {
	return todostore.PageCount(m.total, m.pageSize)
}

func (m *browseModel) reload() {
	todos, total, err := m.svc.Page(m.pageNum, m.pageSize)
	if err != nil {
		m.err = err
		return
	}
	m.total = total
	// Step back if the current page emptied out, e.g. after deleting its last todo.
	if pc := m.pageCount(); m.pageNum > pc && pc > 0 {
		m.pageNum = pc
		todos, m.total, err = m.svc.Page(m.pageNum, m.pageSize)
		if err != nil {
			m.err = err
			return
		}
	} else if m.pageNum > 1 && pc == 0 {
		m.pageNum = 1
	}
	m.todos = todos
	if m.index >= len(m.todos) {
		m.index = max(len(m.todos)-1, 0)
	}
}

func (m *browseModel) selected() *todostore.Todo {
	if m.index < 0 || m.index >= len(m.todos) {
		return nil
	}
	return m.todos[m.index]
}

func (m browseModel) Init() tea.Cmd { return nil }

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.adding {
		return m.updateAdding(msg)
	}

	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(km, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(km, m.keys.Up):
		if m.index > 0 {
			m.index--
		}
	case key.Matches(km, m.keys.Down):
		if m.index < len(m.todos)-1 {
			m.index++
		}
	case key.Matches(km, m.keys.Next):
		if m.pageNum < m.pageCount() {
			m.pageNum++
			m.index = 0
			m.reload()
		}
	case key.Matches(km, m.keys.Prev):
		if m.pageNum > 1 {
			m.pageNum--
			m.index = 0
			m.reload()
		}
	case key.Matches(km, m.keys.Toggle):
		if t := m.selected(); t != nil {
			m.apply(m.svc.Update(t.ID, todostore.Patch{Completed: todostore.Ptr(!t.Completed)}))
		}
	case key.Matches(km, m.keys.Delete):
		if t := m.selected(); t != nil {
			err := m.svc.Delete(t.ID)
			if err == nil {
				m.status = fmt.Sprintf("removed #%d", t.ID)
			}
			m.apply(err)
		}
	case key.Matches(km, m.keys.Add):
		m.adding = true
		m.status = ""
		m.ti.SetValue("")
		cmd := m.ti.Focus()
		return m, cmd
	}
	if m.err != nil {
		return m, tea.Quit
	}
	return m, nil
}

func (m browseModel) updateAdding(msg tea.Msg) (tea.Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "enter":
			title := strings.TrimSpace(m.ti.Value())
			if title == "" {
				m.status = "title cannot be empty"
				return m, nil
			}
			id, err := m.svc.Create(title)
			if err == nil {
				m.status = fmt.Sprintf("added #%d", id)
			}
			m.adding = false
			m.ti.Blur()
			m.apply(err)
			if m.err != nil {
				return m, tea.Quit
			}
			return m, nil
		case "esc":
			m.adding = false
			m.ti.Blur()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return m, cmd
}

// apply shows recoverable errors in the status line and stops on the rest.
func (m *browseModel) apply(err error) {
	switch {
	case err == nil:
	case todostore.IsRecoverable(err):
		m.status = err.Error()
	default:
		m.err = err
		return
	}
	m.reload()
}

func (m browseModel) View() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n\n", titleStyle.Render("Todos"), accentStyle.Render(fmt.Sprintf("%d total", m.total)))

	if len(m.todos) == 0 {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("No todos found on page %d.", m.pageNum)))
		b.WriteString("\n")
	}
	for i, t := range m.todos {
		prefix := "  "
		if i == m.index {
			prefix = selectedStyle.Render(">") + " "
		}
		b.WriteString(prefix + todoLine(t.ID, t.Title, t.Completed) + "\n")
	}

	b.WriteString("\n" + pageFooter(m.pageNum, m.pageCount(), m.total) + "\n")
	if m.adding {
		b.WriteString("\n" + m.ti.View() + "\n")
	}
	if m.status != "" {
		b.WriteString("\n" + pendingStyle.Render(m.status) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render(m.help.View(m.keys)))
	return b.String()
}
