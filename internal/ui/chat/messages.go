// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/morganforge/loom/internal/model"
	"github.com/morganforge/loom/internal/storage"
	"github.com/morganforge/loom/internal/ui/styles"
)

// maxToolResultLines keeps long tool output from flooding the transcript.
const maxToolResultLines = 12

// =============================================================================
// MESSAGE RENDERING
// =============================================================================

func (m Model) renderUser(text string) string {
	return styles.UserLabel.Render("You") + "\n" + text
}

// renderAssistant renders assistant markdown through glamour, falling back
// to plain text when no renderer is available yet.
func (m Model) renderAssistant(text string) string {
	label := styles.AssistantLabel.Render("Assistant")
	if m.renderer != nil {
		if out, err := m.renderer.Render(text); err == nil {
			return label + "\n" + strings.TrimRight(out, "\n")
		}
	}
	return label + "\n" + text
}

// renderStreaming shows the partial assistant message as plain text; the
// markdown pass happens once the turn completes.
func (m Model) renderStreaming() string {
	return styles.AssistantLabel.Render("Assistant") + "\n" + m.streamBuf
}

func (m Model) renderToolResult(msg model.Message) string {
	res := msg.ToolResult()
	label := styles.ToolLabel.Render("Tool")
	if res != nil && res.IsError {
		label = styles.ErrorText.Render("Tool " + styles.IndicatorError)
	}

	text := msg.Text()
	lines := strings.Split(text, "\n")
	if len(lines) > maxToolResultLines {
		omitted := len(lines) - maxToolResultLines
		lines = append(lines[:maxToolResultLines],
			styles.MutedText.Render(fmt.Sprintf("... %d more lines", omitted)))
	}
	return label + "\n" + strings.Join(lines, "\n")
}

// =============================================================================
// COMMAND OUTPUT RENDERING
// =============================================================================

func (m Model) renderHelp() string {
	var b strings.Builder
	b.WriteString(styles.Banner.Render("Commands") + "\n")
	for _, cmd := range m.parser.Registry().All() {
		name := cmd.Name
		if cmd.Usage != "" {
			name = cmd.Usage
		}
		b.WriteString(fmt.Sprintf("  %-52s %s\n", name, styles.MutedText.Render(cmd.Description)))
	}
	b.WriteString("\n" + styles.MutedText.Render("esc cancels a running turn; y/a/n answers tool prompts"))
	return b.String()
}

func (m Model) renderHistory() string {
	snapshot := m.orch.Conversation().Snapshot()
	if len(snapshot) == 0 {
		return styles.MutedText.Render("no messages yet")
	}

	var b strings.Builder
	for i, msg := range snapshot {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch msg.Role {
		case model.RoleUser:
			b.WriteString(m.renderUser(msg.Text()))
		case model.RoleAssistant:
			b.WriteString(m.renderAssistant(msg.Text()))
		case model.RoleTool:
			b.WriteString(m.renderToolResult(msg))
		default:
			b.WriteString(styles.SystemText.Render(msg.Text()))
		}
	}
	return b.String()
}

func (m Model) renderStatus() string {
	var b strings.Builder
	b.WriteString(styles.Banner.Render("Status") + "\n")
	b.WriteString("  endpoint      " + m.cfg.Model.Host + "\n")
	b.WriteString("  model         " + m.orch.Model() + "\n")
	b.WriteString(fmt.Sprintf("  messages      %d\n", m.orch.Conversation().Len()))
	b.WriteString(fmt.Sprintf("  auto-confirm  %v\n", m.orch.AutoConfirm()))
	b.WriteString(fmt.Sprintf("  mcp servers   %d", m.servers.Count()))
	return b.String()
}

func (m Model) renderModelList(names []string) string {
	if len(names) == 0 {
		return styles.MutedText.Render("no models installed; pull one with: ollama pull <name>")
	}
	var b strings.Builder
	b.WriteString(styles.Banner.Render("Models") + "\n")
	current := m.orch.Model()
	for _, name := range names {
		marker := "  "
		if name == current {
			marker = styles.SuccessText.Render("* ")
		}
		b.WriteString(marker + name + "\n")
	}
	b.WriteString(styles.MutedText.Render("switch with /model <name>"))
	return b.String()
}

func (m Model) renderMCPStatus() string {
	statuses := m.servers.Statuses()
	if len(statuses) == 0 {
		return styles.MutedText.Render("no mcp servers configured; add one with /mcp add <id> <url>")
	}

	var b strings.Builder
	b.WriteString(styles.Banner.Render("MCP Servers") + "\n")
	for _, st := range statuses {
		var state string
		switch {
		case !st.Server.Enabled:
			state = styles.MutedText.Render("disabled")
		case st.Reachable:
			state = styles.SuccessText.Render(fmt.Sprintf("reachable, %d tools", st.ToolCount))
		case st.LastError != "":
			state = styles.ErrorText.Render("unreachable: " + st.LastError)
		default:
			state = styles.MutedText.Render("not checked yet")
		}
		b.WriteString(fmt.Sprintf("  %-12s %-32s %s\n", st.Server.ID, st.Server.URL, state))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderSessionList(metas []storage.Meta) string {
	if len(metas) == 0 {
		return styles.MutedText.Render("no saved sessions; save one with /save")
	}
	var b strings.Builder
	b.WriteString(styles.Banner.Render("Sessions") + "\n")
	for _, meta := range metas {
		title := meta.Title
		if title == "" {
			title = "(untitled)"
		}
		b.WriteString(fmt.Sprintf("  %-22s %-40s %s\n",
			meta.ID, title,
			styles.MutedText.Render(fmt.Sprintf("%d msgs, %s", meta.MessageCount, meta.UpdatedAt.Format("2006-01-02 15:04")))))
	}
	b.WriteString(styles.MutedText.Render("resume with /resume <session_id>"))
	return b.String()
}
