// Copyright 2025 Joseph Cumines
//
// MCP server implementation

package server

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/joeycumines/lookin-mcp/internal/config"
	"github.com/joeycumines/lookin-mcp/internal/lookin"
	"github.com/joeycumines/lookin-mcp/internal/transport"
)

// MCPServer bridges MCP tool calls to a LookinServer session. Tool calls
// are dispatched serially: the session relies on the dispatcher for
// serialization, and the in-app agent accepts a single TCP client anyway.
type MCPServer struct {
	session *lookin.Session
	cfg     *config.Config
	tools   map[string]*Tool
	audit   *AuditLogger
	metrics *transport.MetricsRegistry
}

// Tool represents an MCP tool
type Tool struct {
	Handler     func(*ToolCall) (*ToolResult, error)
	InputSchema map[string]interface{}
	Name        string
	Description string
}

// ToolCall represents a tool call request
type ToolCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResult represents a tool call result
type ToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// Content represents a content item in a tool result
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// NewMCPServer creates a new MCP server
func NewMCPServer(cfg *config.Config) (*MCPServer, error) {
	audit, err := NewAuditLogger(cfg.AuditLogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	metrics := transport.DefaultMetrics()
	session := lookin.NewSession(lookin.Timeouts{
		Connect:    cfg.ConnectTimeout,
		Probe:      cfg.ProbeTimeout,
		Ping:       cfg.PingTimeout,
		AppInfo:    cfg.AppInfoTimeout,
		Hierarchy:  cfg.HierarchyTimeout,
		AttrGroups: cfg.AttrGroupsTimeout,
		Modify:     cfg.ModifyTimeout,
		Invoke:     cfg.InvokeTimeout,
		Selectors:  cfg.SelectorsTimeout,
	})
	session.SetObserver(metrics.RecordWireRequest)
	session.SetEnrichConcurrency(cfg.EnrichConcurrency)

	s := &MCPServer{
		cfg:     cfg,
		session: session,
		audit:   audit,
		metrics: metrics,
		tools:   make(map[string]*Tool),
	}
	s.registerTools()
	return s, nil
}

// Shutdown gracefully shuts down the server
func (s *MCPServer) Shutdown() {
	log.Println("Shutting down MCP server...")
	s.session.Disconnect()
	s.metrics.SetConnectionReady(false)
	if err := s.audit.Close(); err != nil {
		log.Printf("Error closing audit log: %v", err)
	}
}

// registerTools registers all available tools
func (s *MCPServer) registerTools() {
	s.tools = map[string]*Tool{
		"lookin_connect": {
			Name:        "lookin_connect",
			Description: "Connect to a LookinServer running in an iOS Simulator app",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"port": map[string]interface{}{
						"type":        "integer",
						"description": "Specific port to connect to; omit to probe 47164-47169",
					},
				},
			},
			Handler: s.handleConnect,
		},
		"lookin_disconnect": {
			Name:        "lookin_disconnect",
			Description: "Disconnect from the LookinServer and clear caches",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
			Handler: s.handleDisconnect,
		},
		"lookin_ping": {
			Name:        "lookin_ping",
			Description: "Check the LookinServer connection is alive",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
			Handler: s.handlePing,
		},
		"lookin_app_info": {
			Name:        "lookin_app_info",
			Description: "Get metadata about the inspected app and device",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
			Handler: s.handleAppInfo,
		},
		"lookin_hierarchy": {
			Name:        "lookin_hierarchy",
			Description: "Fetch the live UI view hierarchy as an indented tree",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
			Handler: s.handleHierarchy,
		},
		"lookin_view_detail": {
			Name:        "lookin_view_detail",
			Description: "Get all attribute groups of one view by oid",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"oid": map[string]interface{}{
						"type":        "integer",
						"description": "View or layer oid from the hierarchy",
					},
				},
				"required": []string{"oid"},
			},
			Handler: s.handleViewDetail,
		},
		"lookin_search": {
			Name:        "lookin_search",
			Description: "Search views by class name or visible text",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Case-insensitive substring to match",
					},
				},
				"required": []string{"query"},
			},
			Handler: s.handleSearch,
		},
		"lookin_subtree": {
			Name:        "lookin_subtree",
			Description: "Render the hierarchy subtree rooted at a view",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"oid": map[string]interface{}{
						"type":        "integer",
						"description": "View or layer oid of the subtree root",
					},
				},
				"required": []string{"oid"},
			},
			Handler: s.handleSubtree,
		},
		"lookin_modify": {
			Name:        "lookin_modify",
			Description: "Modify a view or layer attribute (use attribute \"help\" to list)",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"attribute": map[string]interface{}{
						"type":        "string",
						"description": "Friendly attribute name, e.g. hidden, alpha, backgroundColor",
					},
					"oid": map[string]interface{}{
						"type":        "integer",
						"description": "Target view oid",
					},
					"value": map[string]interface{}{
						"type":        "string",
						"description": "New value in the attribute's format",
					},
				},
				"required": []string{"attribute"},
			},
			Handler: s.handleModify,
		},
		"lookin_invoke": {
			Name:        "lookin_invoke",
			Description: "Invoke a zero-argument selector on an object",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"oid": map[string]interface{}{
						"type":        "integer",
						"description": "Target object oid",
					},
					"selector": map[string]interface{}{
						"type":        "string",
						"description": "Selector name, e.g. recursiveDescription",
					},
				},
				"required": []string{"oid", "selector"},
			},
			Handler: s.handleInvoke,
		},
		"lookin_selectors": {
			Name:        "lookin_selectors",
			Description: "List selector names of a class",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"class_name": map[string]interface{}{
						"type":        "string",
						"description": "Objective-C class name",
					},
					"has_arg": map[string]interface{}{
						"type":        "boolean",
						"description": "Include selectors taking arguments (default false)",
					},
				},
				"required": []string{"class_name"},
			},
			Handler: s.handleSelectors,
		},
	}
}

// Serve starts serving MCP requests
func (s *MCPServer) Serve(tr *transport.StdioTransport) error {
	log.Println("LookinMCP server starting...")

	for {
		msg, err := tr.ReadMessage()
		if err != nil {
			if err.Error() == "stdin closed" {
				log.Println("MCP server stopping (EOF)")
				return nil
			}
			log.Printf("Error reading message: %v", err)
			continue
		}

		// Tool calls run serially: the lookin session depends on it.
		s.handleMessage(tr, msg)
	}
}

// handleMessage handles a single MCP message
func (s *MCPServer) handleMessage(tr *transport.StdioTransport, msg *transport.Message) {
	switch msg.Method {
	case "initialize":
		s.writeResponse(tr, &transport.Message{
			JSONRPC: "2.0",
			ID:      msg.ID,
			Result:  []byte(`{"protocolVersion":"2024-11-05","capabilities":{"tools":{}},"serverInfo":{"name":"lookin-mcp","version":"1.0.0"}}`),
		})

	case "notifications/initialized":
		// Notification; no response.

	case "tools/list":
		tools := make([]map[string]interface{}, 0, len(s.tools))
		for _, tool := range s.tools {
			tools = append(tools, map[string]interface{}{
				"name":        tool.Name,
				"description": tool.Description,
				"inputSchema": tool.InputSchema,
			})
		}
		result, _ := json.Marshal(map[string]interface{}{"tools": tools})
		s.writeResponse(tr, &transport.Message{JSONRPC: "2.0", ID: msg.ID, Result: result})

	case "tools/call":
		s.handleToolCall(tr, msg)

	default:
		s.writeResponse(tr, &transport.Message{
			JSONRPC: "2.0",
			ID:      msg.ID,
			Error: &transport.ErrorObj{
				Code:    transport.ErrCodeMethodNotFound,
				Message: fmt.Sprintf("Method not found: %s", msg.Method),
			},
		})
	}
}

func (s *MCPServer) handleToolCall(tr *transport.StdioTransport, msg *transport.Message) {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.writeResponse(tr, &transport.Message{
			JSONRPC: "2.0",
			ID:      msg.ID,
			Error: &transport.ErrorObj{
				Code:    transport.ErrCodeInvalidRequest,
				Message: fmt.Sprintf("Invalid request: %v", err),
			},
		})
		return
	}

	tool, exists := s.tools[params.Name]
	if !exists {
		s.writeResponse(tr, &transport.Message{
			JSONRPC: "2.0",
			ID:      msg.ID,
			Error: &transport.ErrorObj{
				Code:    transport.ErrCodeMethodNotFound,
				Message: fmt.Sprintf("Tool not found: %s", params.Name),
			},
		})
		return
	}

	start := time.Now()
	result, err := tool.Handler(&ToolCall{Name: params.Name, Arguments: params.Arguments})
	elapsed := time.Since(start)

	status := "ok"
	switch {
	case err != nil:
		status = "error"
	case result.IsError:
		status = "tool_error"
	}
	s.metrics.RecordRequest(params.Name, status, elapsed)
	s.audit.LogToolCall(params.Name, params.Arguments, status, elapsed)
	s.metrics.SetConnectionReady(s.session.Connected())

	if err != nil {
		s.writeResponse(tr, &transport.Message{
			JSONRPC: "2.0",
			ID:      msg.ID,
			Error: &transport.ErrorObj{
				Code:    transport.ErrCodeInternalError,
				Message: err.Error(),
			},
		})
		return
	}

	resultMap := map[string]interface{}{"content": result.Content}
	if result.IsError {
		resultMap["isError"] = true
	}
	resultBytes, _ := json.Marshal(resultMap)
	s.writeResponse(tr, &transport.Message{JSONRPC: "2.0", ID: msg.ID, Result: resultBytes})
}

func (s *MCPServer) writeResponse(tr *transport.StdioTransport, msg *transport.Message) {
	if err := tr.WriteMessage(msg); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}
