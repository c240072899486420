// Package tui renders the live notifications view.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"saraban/internal/client"
	"saraban/internal/model"
)

// Tracker is the part of *client.Tracker the view drives.
type Tracker interface {
	Fetch(ctx context.Context) error
	MarkAsRead() error
	Snapshot() client.Snapshot
}

type fetchedMsg struct {
	snap client.Snapshot
	err  error
}

type tickMsg time.Time

type Notifications struct {
	ctx      context.Context
	tracker  Tracker
	interval time.Duration
	spinner  spinner.Model

	loading bool
	snap    client.Snapshot
	err     error
	status  string
	width   int
	height  int
}

func NewNotifications(ctx context.Context, tracker Tracker, interval time.Duration) *Notifications {
	if interval <= 0 {
		interval = client.DefaultPollInterval
	}
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return &Notifications{
		ctx:      ctx,
		tracker:  tracker,
		interval: interval,
		spinner:  s,
		loading:  true,
		snap:     tracker.Snapshot(),
	}
}

func (n *Notifications) Init() tea.Cmd {
	return tea.Batch(n.spinner.Tick, n.fetch(), n.tick())
}

func (n *Notifications) fetch() tea.Cmd {
	return func() tea.Msg {
		err := n.tracker.Fetch(n.ctx)
		return fetchedMsg{snap: n.tracker.Snapshot(), err: err}
	}
}

func (n *Notifications) tick() tea.Cmd {
	return tea.Tick(n.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (n *Notifications) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return n, tea.Quit
		case "r":
			if n.loading {
				return n, nil
			}
			n.loading = true
			n.status = ""
			return n, tea.Batch(n.spinner.Tick, n.fetch())
		case "m":
			if err := n.tracker.MarkAsRead(); err != nil {
				n.err = err
				return n, nil
			}
			n.snap = n.tracker.Snapshot()
			n.status = "Marked all as read"
			return n, nil
		}

	case tea.WindowSizeMsg:
		n.width = msg.Width
		n.height = msg.Height

	case fetchedMsg:
		n.loading = false
		if errors.Is(msg.err, client.ErrFetchInFlight) {
			return n, nil
		}
		n.err = msg.err
		if msg.err == nil {
			n.snap = msg.snap
		}
		return n, nil

	case tickMsg:
		if n.loading {
			return n, n.tick()
		}
		n.loading = true
		return n, tea.Batch(n.spinner.Tick, n.fetch(), n.tick())

	case spinner.TickMsg:
		if !n.loading {
			return n, nil
		}
		var cmd tea.Cmd
		n.spinner, cmd = n.spinner.Update(msg)
		return n, cmd
	}
	return n, nil
}

func (n *Notifications) View() string {
	var b strings.Builder

	title := TitleStyle.Render("Saraban · Notifications")
	if n.snap.Unread > 0 {
		title = lipgloss.JoinHorizontal(lipgloss.Top, title, " ", BadgeStyle.Render(fmt.Sprintf("%d unread", n.snap.Unread)))
	}
	b.WriteString(title + "\n")

	sub := "Up to date"
	if n.loading {
		sub = n.spinner.View() + " Refreshing..."
	} else if !n.snap.FetchedAt.IsZero() {
		sub = "Updated " + n.snap.FetchedAt.Format("15:04:05")
	}
	b.WriteString(SubtitleStyle.Render(sub) + "\n")

	if n.err != nil {
		b.WriteString(ErrorStyle.Render("Error: "+n.err.Error()) + "\n\n")
	}
	if n.status != "" {
		b.WriteString(SuccessStyle.Render(n.status) + "\n\n")
	}

	if len(n.snap.Notifications) == 0 {
		b.WriteString(DimStyle.Render("No activity yet.") + "\n")
	}
	for _, l := range n.visible() {
		b.WriteString(n.renderLine(l) + "\n")
	}

	b.WriteString(HelpStyle.Render("r: refresh • m: mark as read • q: quit"))
	return b.String()
}

// visible trims the list to the terminal height, keeping room for the
// header and help lines.
func (n *Notifications) visible() []model.AuditLog {
	logs := n.snap.Notifications
	if n.height > 0 {
		room := n.height - 8
		if room < 1 {
			room = 1
		}
		if len(logs) > room {
			logs = logs[:room]
		}
	}
	return logs
}

func (n *Notifications) renderLine(l model.AuditLog) string {
	marker := "  "
	textStyle := DimStyle
	if n.snap.IsUnread(l.ID) {
		marker = UnreadStyle.Render("● ")
		textStyle = NormalStyle
	}
	project := "(deleted project)"
	if l.ProjectCode != nil {
		project = *l.ProjectCode
	}
	return fmt.Sprintf("%s%s %s %s %s",
		marker,
		DimStyle.Render(l.Timestamp.Local().Format("02 Jan 15:04")),
		ActionStyle(l.Action).Render(fmt.Sprintf("%-6s", l.Action)),
		textStyle.Render(project),
		textStyle.Render(l.Actor+": "+l.Details),
	)
}

// Run blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, tracker Tracker, interval time.Duration) error {
	p := tea.NewProgram(NewNotifications(ctx, tracker, interval), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
