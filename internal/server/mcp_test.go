// Copyright 2025 Joseph Cumines
//
// MCP server unit tests

package server

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/joeycumines/lookin-mcp/internal/config"
	"github.com/joeycumines/lookin-mcp/internal/transport"
)

func testConfig() *config.Config {
	return &config.Config{
		ConnectTimeout:    time.Second,
		ProbeTimeout:      time.Second,
		PingTimeout:       time.Second,
		AppInfoTimeout:    time.Second,
		HierarchyTimeout:  time.Second,
		AttrGroupsTimeout: time.Second,
		ModifyTimeout:     time.Second,
		InvokeTimeout:     time.Second,
		SelectorsTimeout:  time.Second,
		EnrichConcurrency: 10,
	}
}

// serveLines runs the server over an in-memory stdio transport fed with the
// given JSON-RPC lines and returns the decoded response messages.
func serveLines(t *testing.T, lines ...string) []*transport.Message {
	t.Helper()
	s, err := NewMCPServer(testConfig())
	if err != nil {
		t.Fatalf("NewMCPServer() error = %v", err)
	}
	defer s.Shutdown()

	var stdout bytes.Buffer
	tr := transport.NewStdioTransport(strings.NewReader(strings.Join(lines, "\n")+"\n"), &stdout)
	if err := s.Serve(tr); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}

	var responses []*transport.Message
	for _, line := range strings.Split(strings.TrimSpace(stdout.String()), "\n") {
		if line == "" {
			continue
		}
		var msg transport.Message
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			t.Fatalf("response %q: %v", line, err)
		}
		responses = append(responses, &msg)
	}
	return responses
}

// toolText extracts the first text content block of a tools/call result.
func toolText(t *testing.T, msg *transport.Message) (string, bool) {
	t.Helper()
	if msg.Error != nil {
		t.Fatalf("transport error: %+v", msg.Error)
	}
	var result struct {
		Content []Content `json:"content"`
		IsError bool      `json:"isError"`
	}
	if err := json.Unmarshal(msg.Result, &result); err != nil {
		t.Fatalf("result decode: %v", err)
	}
	if len(result.Content) != 1 || result.Content[0].Type != "text" {
		t.Fatalf("content = %+v, want single text block", result.Content)
	}
	return result.Content[0].Text, result.IsError
}

func TestInitialize(t *testing.T) {
	responses := serveLines(t, `{"jsonrpc":"2.0","id":1,"method":"initialize"}`)
	if len(responses) != 1 {
		t.Fatalf("got %d responses, want 1", len(responses))
	}
	var result struct {
		ProtocolVersion string `json:"protocolVersion"`
		ServerInfo      struct {
			Name string `json:"name"`
		} `json:"serverInfo"`
	}
	if err := json.Unmarshal(responses[0].Result, &result); err != nil {
		t.Fatalf("result decode: %v", err)
	}
	if result.ServerInfo.Name != "lookin-mcp" {
		t.Errorf("server name = %s, want lookin-mcp", result.ServerInfo.Name)
	}
	if result.ProtocolVersion == "" {
		t.Error("missing protocolVersion")
	}
}

func TestToolsList(t *testing.T) {
	responses := serveLines(t, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	var result struct {
		Tools []struct {
			Name        string                 `json:"name"`
			Description string                 `json:"description"`
			InputSchema map[string]interface{} `json:"inputSchema"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(responses[0].Result, &result); err != nil {
		t.Fatalf("result decode: %v", err)
	}

	names := make(map[string]bool)
	for _, tool := range result.Tools {
		names[tool.Name] = true
		if tool.Description == "" {
			t.Errorf("tool %s has no description", tool.Name)
		}
		if tool.InputSchema["type"] != "object" {
			t.Errorf("tool %s schema type = %v", tool.Name, tool.InputSchema["type"])
		}
	}

	want := []string{
		"lookin_connect", "lookin_disconnect", "lookin_ping", "lookin_app_info",
		"lookin_hierarchy", "lookin_view_detail", "lookin_search",
		"lookin_subtree", "lookin_modify", "lookin_invoke", "lookin_selectors",
	}
	for _, name := range want {
		if !names[name] {
			t.Errorf("tools/list missing %s", name)
		}
	}
	if len(result.Tools) != len(want) {
		t.Errorf("tools/list has %d tools, want %d", len(result.Tools), len(want))
	}
}

func TestUnknownMethod(t *testing.T) {
	responses := serveLines(t, `{"jsonrpc":"2.0","id":1,"method":"bogus/method"}`)
	if responses[0].Error == nil || responses[0].Error.Code != transport.ErrCodeMethodNotFound {
		t.Errorf("error = %+v, want method not found", responses[0].Error)
	}
}

func TestUnknownTool(t *testing.T) {
	responses := serveLines(t,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"nope","arguments":{}}}`)
	if responses[0].Error == nil || responses[0].Error.Code != transport.ErrCodeMethodNotFound {
		t.Errorf("error = %+v, want tool not found", responses[0].Error)
	}
}

// TestToolsWithoutConnection verifies session-dependent tools fail politely
// as tool errors, not transport errors.
func TestToolsWithoutConnection(t *testing.T) {
	responses := serveLines(t,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"lookin_ping","arguments":{}}}`)
	text, isError := toolText(t, responses[0])
	if !isError {
		t.Error("lookin_ping without connection not flagged as error")
	}
	if !strings.Contains(text, "lookin_connect") {
		t.Errorf("error text %q does not suggest lookin_connect", text)
	}
}

func TestModifyHelp(t *testing.T) {
	responses := serveLines(t,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"lookin_modify","arguments":{"attribute":"help"}}}`)
	text, isError := toolText(t, responses[0])
	if isError {
		t.Errorf("help flagged as error: %s", text)
	}
	// Help works without a connection and lists the registry.
	if !strings.Contains(text, "backgroundColor") || !strings.Contains(text, "#RRGGBB") {
		t.Errorf("help text incomplete:\n%s", text)
	}
}

func TestModifyMissingArguments(t *testing.T) {
	responses := serveLines(t,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"lookin_modify","arguments":{}}}`)
	text, isError := toolText(t, responses[0])
	if !isError {
		t.Error("missing attribute not flagged")
	}
	if !strings.Contains(text, "attribute") {
		t.Errorf("error text %q does not name the missing parameter", text)
	}
}

func TestDisconnectWhenNotConnected(t *testing.T) {
	responses := serveLines(t,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"lookin_disconnect","arguments":{}}}`)
	text, isError := toolText(t, responses[0])
	if isError {
		t.Errorf("disconnect when idle flagged as error: %s", text)
	}
	if !strings.Contains(text, "Not connected") {
		t.Errorf("text = %q", text)
	}
}

func TestNotificationsProduceNoResponse(t *testing.T) {
	responses := serveLines(t,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	if len(responses) != 1 {
		t.Fatalf("got %d responses, want 1 (notification is silent)", len(responses))
	}
}

func TestRequestIDEchoed(t *testing.T) {
	responses := serveLines(t, `{"jsonrpc":"2.0","id":"abc-123","method":"tools/list"}`)
	if string(responses[0].ID) != `"abc-123"` {
		t.Errorf("ID = %s, want \"abc-123\"", responses[0].ID)
	}
}
