package desk

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/xenking/product-desk/internal/domain/auth"
	"github.com/xenking/product-desk/internal/domain/product"
	"github.com/xenking/product-desk/internal/reconcile"
)

const titleWidth = 36

// View implements tea.Model.
func (m Model) View() string {
	st := m.theme.styles()

	var b strings.Builder
	b.WriteString(m.header(st))
	b.WriteString("\n")
	if m.snap.Message != "" {
		b.WriteString(st.banner.Render(m.snap.Message))
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString(st.muted.Render(m.notice))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.showForm {
		b.WriteString(m.formView(st))
	} else {
		b.WriteString(m.listView(st))
	}
	b.WriteString("\n")
	b.WriteString(st.muted.Render(m.help()))
	return b.String()
}

func (m Model) header(st styles) string {
	view := "all"
	if m.prefs.ApprovedOnly {
		view = "approved only"
	}
	parts := []string{
		st.title.Render("Product Desk"),
		st.muted.Render(fmt.Sprintf("role: %s", m.engine.Role())),
		st.muted.Render(fmt.Sprintf("view: %s (%d/%d)", view, len(m.visible()), len(m.snap.Products))),
	}
	if m.snap.Resetting {
		parts = append(parts, st.errText.Render("resetting…"))
	}
	return strings.Join(parts, "  ")
}

func (m Model) listView(st styles) string {
	vis := m.visible()
	if len(vis) == 0 {
		if m.prefs.ApprovedOnly {
			return st.muted.Render("No approved products.")
		}
		return st.muted.Render("No products yet.")
	}

	var b strings.Builder
	for i, p := range vis {
		b.WriteString(m.row(st, p, i == m.cursor))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) row(st styles, p product.Product, selected bool) string {
	marker := "  "
	if selected {
		marker = "> "
	}
	status := st.status[p.Status].Render(string(p.Status))
	title := truncate(p.Title, titleWidth)
	title += strings.Repeat(" ", titleWidth-lipgloss.Width(title))
	price := fmt.Sprintf("%14s", product.FormatPrice(p.Price))

	line := marker + status + " " + title + " " + price
	if op, busy := m.snap.InFlight[p.ID]; busy {
		line += " " + st.muted.Render(busyLabel(op))
	}
	if selected {
		return st.selected.Render(line)
	}
	return line
}

func (m Model) formView(st styles) string {
	var b strings.Builder
	b.WriteString(st.title.Render("New product"))
	b.WriteString("\n\n")
	for i, in := range m.form.inputs {
		b.WriteString(st.label.Render(fieldLabels[i]))
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	if m.form.busy {
		b.WriteString("\n" + st.muted.Render("Submitting…") + "\n")
	}
	if m.form.err != "" {
		b.WriteString("\n" + st.errText.Render(m.form.err) + "\n")
	}
	return b.String()
}

func (m Model) help() string {
	var bindings []key.Binding
	if m.showForm {
		bindings = []key.Binding{m.keys.Next, m.keys.Prev, m.keys.Submit, m.keys.Cancel}
	} else {
		bindings = []key.Binding{m.keys.Up, m.keys.Down, m.keys.Approve, m.keys.Reject, m.keys.Pending}
		if m.engine.Can(auth.IntentCreate) {
			bindings = append(bindings, m.keys.New, m.keys.Delete, m.keys.ResetAll)
		}
		bindings = append(bindings, m.keys.ApprovedOnly, m.keys.Reload, m.keys.CycleTheme, m.keys.Quit)
	}

	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}

func busyLabel(op reconcile.Op) string {
	switch op {
	case reconcile.OpCreate:
		return "adding…"
	case reconcile.OpDelete:
		return "deleting…"
	case reconcile.OpBulk:
		return "resetting…"
	default:
		return "saving…"
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
