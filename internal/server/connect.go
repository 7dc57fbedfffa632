// Copyright 2025 Joseph Cumines
//
// Connection and liveness tool handlers

package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/joeycumines/lookin-mcp/internal/lookin"
)

// handleConnect handles the lookin_connect tool
func (s *MCPServer) handleConnect(call *ToolCall) (*ToolResult, error) {
	var params struct {
		Port int `json:"port"`
	}
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &params); err != nil {
			return errorResultf("Invalid parameters: %v", err), nil
		}
	}

	ctx := context.Background()
	var port int
	var err error
	if params.Port != 0 {
		port = params.Port
		err = s.session.Connect(ctx, port)
	} else {
		port, err = s.session.ConnectFirst(ctx)
	}
	if err != nil {
		return lookinErrorResult(err, "lookin_connect"), nil
	}

	summary := fmt.Sprintf("Connected to LookinServer on port %d.", port)
	if info, infoErr := s.session.FetchAppInfo(ctx); infoErr == nil {
		summary += "\n" + formatAppInfo(info)
	}
	return textResult(summary), nil
}

// handleDisconnect handles the lookin_disconnect tool
func (s *MCPServer) handleDisconnect(_ *ToolCall) (*ToolResult, error) {
	if !s.session.Connected() {
		return textResult("Not connected."), nil
	}
	port := s.session.Port()
	s.session.Disconnect()
	return textResultf("Disconnected from LookinServer on port %d. Caches cleared.", port), nil
}

// handlePing handles the lookin_ping tool
func (s *MCPServer) handlePing(_ *ToolCall) (*ToolResult, error) {
	res, err := s.session.Ping(context.Background())
	if err != nil {
		return lookinErrorResult(err, "lookin_ping"), nil
	}
	if res.AppIsInBackground {
		return textResult("Server alive; the app is in the background (UI reads may be stale)."), nil
	}
	return textResult("Server alive; the app is in the foreground."), nil
}

// handleAppInfo handles the lookin_app_info tool
func (s *MCPServer) handleAppInfo(_ *ToolCall) (*ToolResult, error) {
	info, err := s.session.FetchAppInfo(context.Background())
	if err != nil {
		return lookinErrorResult(err, "lookin_app_info"), nil
	}
	return textResult(formatAppInfo(info)), nil
}

// formatAppInfo renders app metadata as short prose.
func formatAppInfo(info *lookin.AppInfo) string {
	s := fmt.Sprintf("App: %s (%s)\nDevice: %s, %s",
		info.AppName, info.BundleIdentifier, info.DeviceDescription, info.OSDescription)
	if info.ScreenWidth > 0 {
		s += fmt.Sprintf("\nScreen: %.0fx%.0f @%gx", info.ScreenWidth, info.ScreenHeight, info.ScreenScale)
	}
	if info.ServerVersion != "" {
		s += fmt.Sprintf("\nLookinServer: %s", info.ServerVersion)
	}
	return s
}
