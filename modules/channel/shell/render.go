package shell

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/flemzord/sbot/pkg/message"
)

// styles groups the lipgloss styles used to print envelopes. They are bound
// to a renderer for the output writer so colours are dropped when the
// output is not a terminal.
type styles struct {
	prompt   lipgloss.Style
	bot      lipgloss.Style
	text     lipgloss.Style
	title    lipgloss.Style
	faint    lipgloss.Style
	button   lipgloss.Style
	react    lipgloss.Style
	err      lipgloss.Style
	renderer *lipgloss.Renderer
}

func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)
	return styles{
		prompt:   r.NewStyle().Foreground(lipgloss.Color("244")),
		bot:      r.NewStyle().Bold(true).Foreground(lipgloss.Color("44")),
		text:     r.NewStyle().Foreground(lipgloss.Color("252")),
		title:    r.NewStyle().Bold(true).Underline(true),
		faint:    r.NewStyle().Faint(true),
		button:   r.NewStyle().Foreground(lipgloss.Color("214")),
		react:    r.NewStyle().Italic(true).Foreground(lipgloss.Color("180")),
		err:      r.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		renderer: r,
	}
}

// render formats the strings and attachments of env, one line each.
func (st styles) render(name string, env *message.Envelope) string {
	var lines []string
	prefix := st.bot.Render(name + ":")
	for _, s := range env.Strings {
		lines = append(lines, prefix+" "+st.text.Render(s))
	}
	for _, a := range env.Attachments {
		lines = append(lines, st.attachment(a)...)
	}
	return strings.Join(lines, "\n")
}

func (st styles) attachment(a message.Attachment) []string {
	var lines []string
	bar := st.renderer.NewStyle().Foreground(lipgloss.Color(a.Color)).Render("│")
	if a.Color == "" {
		bar = st.faint.Render("│")
	}
	if a.Title != nil {
		title := st.title.Render(a.Title.Text)
		if a.Title.Link != "" {
			title += " " + st.faint.Render("("+a.Title.Link+")")
		}
		lines = append(lines, bar+" "+title)
	}
	if a.Fallback != "" {
		lines = append(lines, bar+" "+st.text.Render(a.Fallback))
	}
	if a.Image != "" {
		lines = append(lines, bar+" "+st.faint.Render(a.Image))
	}
	if len(a.QuickReplies) > 0 {
		buttons := make([]string, 0, len(a.QuickReplies))
		for _, qr := range a.QuickReplies {
			buttons = append(buttons, st.button.Render("["+qr.Text+"]"))
		}
		lines = append(lines, bar+" "+strings.Join(buttons, " "))
	}
	return lines
}

// reaction formats env as reactions from the bot.
func (st styles) reaction(name string, env *message.Envelope) string {
	return st.react.Render(name + " reacts " + env.Text())
}
