package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dmitrijs2005/syncbridge/internal/client/client"
	"github.com/dmitrijs2005/syncbridge/internal/client/models"
)

var (
	colorMuted = lipgloss.Color("#6c757d")
	colorAlert = lipgloss.Color("#d16d7a")

	headerStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	errorStyle  = lipgloss.NewStyle().Foreground(colorAlert).Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#5f9fb0")).Bold(true)
	urgentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(colorAlert).Bold(true)
	idStyle     = lipgloss.NewStyle().Width(6).Align(lipgloss.Right)
)

var statusColors = map[models.FormStatus]lipgloss.Color{
	models.FormStatusPreview:    lipgloss.Color("#5f9fb0"),
	models.FormStatusAvailable:  lipgloss.Color("#2e9e5b"),
	models.FormStatusProcessing: lipgloss.Color("#f39c12"),
	models.FormStatusRewrite:    lipgloss.Color("#d16d7a"),
	models.FormStatusEnd:        colorMuted,
	models.FormStatusError:      colorAlert,
}

func statusBadge(s models.FormStatus) string {
	style := lipgloss.NewStyle().Bold(true)
	if c, ok := statusColors[s]; ok {
		style = style.Foreground(c)
	}
	return style.Render("[" + string(s) + "]")
}

func blockBadge(s models.BlockStatus) string {
	if s == models.BlockStatusUrgent {
		return urgentStyle.Render(" URGENT ")
	}
	return mutedStyle.Render("normal")
}

func renderError(err error) string {
	return errorStyle.Render("Error: " + client.UserMessage(err))
}

func renderOK(msg string) string {
	return okStyle.Render(msg)
}

func pageCount(total, size int) int {
	if size <= 0 || total <= 0 {
		return 1
	}
	return (total + size - 1) / size
}

func renderSession(s models.Session) string {
	var b strings.Builder
	name := s.DisplayName
	if name == "" {
		name = s.Email
	}
	fmt.Fprintf(&b, "%s <%s> %s", headerStyle.Render(name), s.Email, mutedStyle.Render(string(s.Role)))
	if s.ID != 0 {
		fmt.Fprintf(&b, " %s", mutedStyle.Render(fmt.Sprintf("id=%d", s.ID)))
	}
	if !s.ExpiresAt.IsZero() {
		fmt.Fprintf(&b, "\n%s", mutedStyle.Render("session valid until "+s.ExpiresAt.Local().Format("2006-01-02 15:04")))
	}
	return b.String()
}

func renderFormPage(p models.FormPage) string {
	if len(p.Forms) == 0 {
		return mutedStyle.Render("No forms.")
	}
	var b strings.Builder
	for _, f := range p.Forms {
		fmt.Fprintf(&b, "%s  %s %s", idStyle.Render(fmt.Sprint(f.ID)), headerStyle.Render(f.Title), statusBadge(f.Status))
		if f.Progress != nil {
			fmt.Fprintf(&b, " %s", mutedStyle.Render(fmt.Sprintf("%d%%", *f.Progress)))
		}
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render(fmt.Sprintf("page %d/%d, %d forms", p.Page, pageCount(p.Total, p.PageSize), p.Total)))
	return b.String()
}

func renderFormDetail(d *models.FormDetail) string {
	if d == nil {
		return mutedStyle.Render("No form selected.")
	}
	f := d.Form
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s\n", headerStyle.Render(f.Title), statusBadge(f.Status), mutedStyle.Render(fmt.Sprintf("#%d", f.ID)))
	if s := f.Summary(); s != "" {
		fmt.Fprintf(&b, "%s\n", s)
	}
	field := func(label, v string) {
		if v != "" {
			fmt.Fprintf(&b, "%s %s\n", mutedStyle.Render(label+":"), v)
		}
	}
	field("Budget", f.Budget)
	field("Expected time", f.ExpectedTime)
	field("Created by", f.CreatedByName)
	if f.Progress != nil {
		field("Progress", fmt.Sprintf("%d%%", *f.Progress))
	}
	if f.SubformID != nil {
		field("Subform", fmt.Sprint(*f.SubformID))
	}

	fmt.Fprintf(&b, "\n%s\n", headerStyle.Render(fmt.Sprintf("Functions (%d)", len(d.Functions))))
	for _, fn := range d.Functions {
		fmt.Fprintf(&b, "%s  %s %s %s\n", idStyle.Render(fmt.Sprint(fn.ID)), fn.Name, mutedStyle.Render(fn.Choice), changedMark(fn.IsChanged))
	}
	fmt.Fprintf(&b, "%s\n", headerStyle.Render(fmt.Sprintf("Nonfunctions (%d)", len(d.Nonfunctions))))
	for _, nf := range d.Nonfunctions {
		fmt.Fprintf(&b, "%s  %s %s %s\n", idStyle.Render(fmt.Sprint(nf.ID)), nf.Name, mutedStyle.Render(nf.Level), changedMark(nf.IsChanged))
	}
	return strings.TrimRight(b.String(), "\n ")
}

func changedMark(changed bool) string {
	if !changed {
		return ""
	}
	return errorStyle.Render("*")
}

func threadLabel(k models.ThreadKey) string {
	switch {
	case k.FunctionID != 0:
		return fmt.Sprintf("form %d / function %d", k.FormID, k.FunctionID)
	case k.NonfunctionID != 0:
		return fmt.Sprintf("form %d / nonfunction %d", k.FormID, k.NonfunctionID)
	}
	return fmt.Sprintf("form %d / general", k.FormID)
}

func renderMessagePage(k models.ThreadKey, p models.MessagePage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", headerStyle.Render("Thread: "+threadLabel(k)))
	if len(p.Messages) == 0 {
		b.WriteString(mutedStyle.Render("No messages."))
		return b.String()
	}
	for _, m := range p.Messages {
		sender := m.SenderName
		if sender == "" {
			sender = fmt.Sprintf("user %d", m.UserID)
		}
		fmt.Fprintf(&b, "%s %s %s\n", mutedStyle.Render(fmt.Sprintf("#%d", m.ID)), headerStyle.Render(sender), mutedStyle.Render(m.CreatedAt))
		fmt.Fprintf(&b, "  %s\n", m.TextContent)
		for _, f := range m.Files {
			fmt.Fprintf(&b, "  %s\n", mutedStyle.Render(fmt.Sprintf("📎 %s (%d bytes, file %d)", f.FileName, f.FileSize, f.ID)))
		}
	}
	b.WriteString(mutedStyle.Render(fmt.Sprintf("page %d/%d, %d messages", p.Page, pageCount(p.Total, p.PageSize), p.Total)))
	return b.String()
}
