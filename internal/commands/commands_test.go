// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"reflect"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

// runHandler executes a command's tea.Cmd and returns the emitted message.
func runHandler(t *testing.T, p *Parser, input string) tea.Msg {
	t.Helper()
	result := p.Parse(input)
	if !result.IsCommand {
		t.Fatalf("Parse(%q) not recognized as command", input)
	}
	if result.Command == nil {
		t.Fatalf("Parse(%q) found no command", input)
	}
	cmd := result.Command.Handler(result.Args)
	if cmd == nil {
		t.Fatalf("handler for %q returned nil", input)
	}
	return cmd()
}

func TestParse_PlainTextIsNotCommand(t *testing.T) {
	p := NewParser(NewRegistry())

	for _, input := range []string{"hello", "what is 2/2?", "  leading spaces"} {
		if res := p.Parse(input); res.IsCommand {
			t.Errorf("Parse(%q).IsCommand = true", input)
		}
	}
}

func TestParse_UnknownCommand(t *testing.T) {
	p := NewParser(NewRegistry())

	res := p.Parse("/frobnicate now")
	if !res.IsCommand {
		t.Fatal("IsCommand = false")
	}
	if res.Command != nil {
		t.Errorf("Command = %+v, want nil", res.Command)
	}
	if res.CommandName != "/frobnicate" {
		t.Errorf("CommandName = %q", res.CommandName)
	}
}

func TestParse_Aliases(t *testing.T) {
	p := NewParser(NewRegistry())

	tests := []struct {
		alias string
		want  string
	}{
		{"/h", "/help"},
		{"/?", "/help"},
		{"/q", "/quit"},
		{"/c", "/clear"},
		{"/m", "/model"},
		{"/load", "/resume"},
	}
	for _, tc := range tests {
		res := p.Parse(tc.alias)
		if res.Command == nil || res.Command.Name != tc.want {
			t.Errorf("Parse(%q) resolved to %v, want %s", tc.alias, res.Command, tc.want)
		}
	}
}

func TestParse_QuotedArguments(t *testing.T) {
	p := NewParser(NewRegistry())

	res := p.Parse(`/mcp add docs "http://127.0.0.1:8800/my server" secret`)
	want := []string{"add", "docs", "http://127.0.0.1:8800/my server", "secret"}
	if !reflect.DeepEqual(res.Args, want) {
		t.Errorf("Args = %v, want %v", res.Args, want)
	}
}

func TestHandlers_EmitExpectedMessages(t *testing.T) {
	p := NewParser(NewRegistry())

	tests := []struct {
		input string
		want  tea.Msg
	}{
		{"/help", ShowHelpMsg{}},
		{"/new", NewConversationMsg{}},
		{"/clear", ClearConversationMsg{}},
		{"/model", ModelSwitchMsg{}},
		{"/model llama3.2:3b", ModelSwitchMsg{Model: "llama3.2:3b"}},
		{"/history", ShowHistoryMsg{}},
		{"/status", ShowStatusMsg{}},
		{"/yolo", ToggleAutoConfirmMsg{}},
		{"/save", SaveSessionMsg{}},
		{"/sessions", ListSessionsMsg{}},
		{"/resume conv_ab12", ResumeSessionMsg{ID: "conv_ab12"}},
		{"/mcp", MCPMsg{Action: "list"}},
		{"/mcp refresh", MCPMsg{Action: "refresh"}},
	}

	for _, tc := range tests {
		got := runHandler(t, p, tc.input)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%q emitted %#v, want %#v", tc.input, got, tc.want)
		}
	}
}

func TestHandleMCP_Add(t *testing.T) {
	p := NewParser(NewRegistry())

	got := runHandler(t, p, "/mcp add docs http://127.0.0.1:8800 tok")
	want := MCPMsg{Action: "add", Args: []string{"docs", "http://127.0.0.1:8800", "tok"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestUsageErrors(t *testing.T) {
	p := NewParser(NewRegistry())

	for _, input := range []string{"/resume", "/mcp add docs", "/mcp remove", "/mcp bogus"} {
		got := runHandler(t, p, input)
		if _, ok := got.(UsageErrorMsg); !ok {
			t.Errorf("%q emitted %#v, want UsageErrorMsg", input, got)
		}
	}
}

func TestRegistry_AllSorted(t *testing.T) {
	r := NewRegistry()
	cmds := r.All()
	if len(cmds) == 0 {
		t.Fatal("no commands registered")
	}
	for i := 1; i < len(cmds); i++ {
		if cmds[i-1].Name >= cmds[i].Name {
			t.Errorf("commands out of order: %s before %s", cmds[i-1].Name, cmds[i].Name)
		}
	}
}
