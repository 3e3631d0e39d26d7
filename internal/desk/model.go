// Package desk is the terminal dashboard for reviewing product submissions.
// It renders reconcile snapshots and turns key presses into engine intents.
package desk

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/product-desk/internal/domain/auth"
	"github.com/xenking/product-desk/internal/domain/product"
	"github.com/xenking/product-desk/internal/reconcile"
)

// Engine is the part of *reconcile.Engine the dashboard drives.
type Engine interface {
	Role() auth.Role
	Can(i auth.Intent) bool
	Snapshot() reconcile.Snapshot
	Load(ctx context.Context) error
	ChangeStatus(ctx context.Context, id string, status product.Status) error
	Create(ctx context.Context, in product.Input) (product.Product, error)
	Delete(ctx context.Context, id string) error
	ResetAll(ctx context.Context) error
}

var _ Engine = (*reconcile.Engine)(nil)

// SnapshotMsg carries a published engine snapshot into the program. Send it
// from the engine observer.
type SnapshotMsg reconcile.Snapshot

// intentDoneMsg reports a finished intent. Failures are already on the
// banner, so only rejections are shown as a notice.
type intentDoneMsg struct {
	err error
}

type createDoneMsg struct {
	err error
}

// Options configures the dashboard.
type Options struct {
	Context   context.Context
	Engine    Engine
	Logger    *zap.Logger
	PrefsPath string
}

// Model is the root Bubble Tea model.
type Model struct {
	ctx       context.Context
	engine    Engine
	lg        *zap.Logger
	keys      keyMap
	prefsPath string
	prefs     Prefs
	theme     Theme

	snap   reconcile.Snapshot
	cursor int
	notice string

	form     createForm
	showForm bool

	width  int
	height int
}

// New returns a dashboard model with preferences loaded from opts.PrefsPath.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	lg := opts.Logger
	if lg == nil {
		lg = zap.NewNop()
	}
	prefs := LoadPrefs(opts.PrefsPath)
	return Model{
		ctx:       ctx,
		engine:    opts.Engine,
		lg:        lg,
		keys:      defaultKeyMap(),
		prefsPath: opts.PrefsPath,
		prefs:     prefs,
		theme:     themeByName(prefs.Theme),
		snap:      opts.Engine.Snapshot(),
		form:      newCreateForm(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.run(m.engine.Load)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case SnapshotMsg:
		if msg.Version >= m.snap.Version {
			m.snap = reconcile.Snapshot(msg)
			m.clampCursor()
		}
		return m, nil

	case intentDoneMsg:
		m.refresh()
		m.notice = rejection(msg.err)
		if msg.err != nil {
			m.lg.Debug("Intent finished", zap.Error(msg.err))
		}
		return m, nil

	case createDoneMsg:
		m.refresh()
		m.form.busy = false
		if msg.err == nil {
			m.form = newCreateForm()
			m.showForm = false
			m.cursor = 0
			return m, nil
		}
		m.form.err = formError(msg.err)
		return m, nil

	case tea.KeyMsg:
		if m.showForm {
			return m.updateForm(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.visible())-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Approve):
		return m, m.setStatus(product.StatusApproved)
	case key.Matches(msg, m.keys.Reject):
		return m, m.setStatus(product.StatusRejected)
	case key.Matches(msg, m.keys.Pending):
		return m, m.setStatus(product.StatusPending)
	case key.Matches(msg, m.keys.Delete):
		p, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.run(func(ctx context.Context) error { return m.engine.Delete(ctx, p.ID) })
	case key.Matches(msg, m.keys.ResetAll):
		return m, m.run(m.engine.ResetAll)
	case key.Matches(msg, m.keys.Reload):
		return m, m.run(m.engine.Load)
	case key.Matches(msg, m.keys.ApprovedOnly):
		m.prefs.ApprovedOnly = !m.prefs.ApprovedOnly
		m.clampCursor()
		m.savePrefs()
	case key.Matches(msg, m.keys.CycleTheme):
		m.prefs.Theme = nextTheme(m.prefs.Theme)
		m.theme = themeByName(m.prefs.Theme)
		m.savePrefs()
	case key.Matches(msg, m.keys.New):
		if !m.engine.Can(auth.IntentCreate) {
			m.notice = "Only admins can add products."
			return m, nil
		}
		m.showForm = true
	}
	return m, nil
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.showForm = false
		return m, nil
	case key.Matches(msg, m.keys.Next):
		m.form.move(1)
		return m, nil
	case key.Matches(msg, m.keys.Prev):
		m.form.move(-1)
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		if m.form.busy {
			return m, nil
		}
		m.form.busy = true
		m.form.err = ""
		in := m.form.input()
		return m, func() tea.Msg {
			_, err := m.engine.Create(m.ctx, in)
			return createDoneMsg{err: err}
		}
	}
	return m, m.form.update(msg)
}

func (m Model) setStatus(status product.Status) tea.Cmd {
	p, ok := m.selected()
	if !ok || p.Status == status {
		return nil
	}
	return m.run(func(ctx context.Context) error {
		return m.engine.ChangeStatus(ctx, p.ID, status)
	})
}

// run executes an intent off the event loop.
func (m Model) run(fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return intentDoneMsg{err: fn(ctx)}
	}
}

func (m *Model) refresh() {
	if s := m.engine.Snapshot(); s.Version >= m.snap.Version {
		m.snap = s
	}
	m.clampCursor()
}

func (m Model) filter() reconcile.Filter {
	return reconcile.Filter{ApprovedOnly: m.prefs.ApprovedOnly}
}

func (m Model) visible() []product.Product {
	return m.snap.Visible(m.filter())
}

func (m Model) selected() (product.Product, bool) {
	vis := m.visible()
	if m.cursor < 0 || m.cursor >= len(vis) {
		return product.Product{}, false
	}
	return vis[m.cursor], true
}

func (m *Model) clampCursor() {
	n := len(m.visible())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) savePrefs() {
	if err := SavePrefs(m.prefsPath, m.prefs); err != nil {
		m.lg.Warn("Save preferences", zap.Error(err))
	}
}

// rejection explains intents the engine refused without touching state.
func rejection(err error) string {
	switch {
	case errors.Is(err, reconcile.ErrBusy):
		return "Please wait for the pending request to finish."
	case errors.Is(err, reconcile.ErrForbidden):
		return "Only admins can do that."
	case errors.Is(err, reconcile.ErrUnknownProduct):
		return "That product no longer exists."
	default:
		return ""
	}
}

func formError(err error) string {
	var vErr *product.ValidationError
	switch {
	case errors.As(err, &vErr):
		return vErr.Error()
	case errors.Is(err, reconcile.ErrRemote):
		return reconcile.MsgCreate
	default:
		if msg := rejection(err); msg != "" {
			return msg
		}
		return err.Error()
	}
}
