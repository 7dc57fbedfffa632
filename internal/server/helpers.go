// Copyright 2025 Joseph Cumines
//
// Helper functions for tool handlers

package server

import (
	"errors"
	"fmt"

	"github.com/joeycumines/lookin-mcp/internal/lookin"
)

// maxDisplayTextLen is the maximum length for text shown in tree nodes and
// search results. Longer text is truncated with "..." suffix.
const maxDisplayTextLen = 80

// truncateText truncates text to maxDisplayTextLen characters with "..." suffix if needed.
func truncateText(s string) string {
	if len(s) > maxDisplayTextLen {
		return s[:maxDisplayTextLen] + "..."
	}
	return s
}

// errorResult creates a ToolResult with IsError=true and the given message.
// This reduces boilerplate for error responses across handlers.
func errorResult(msg string) *ToolResult {
	return &ToolResult{
		IsError: true,
		Content: []Content{{Type: "text", Text: msg}},
	}
}

// errorResultf creates a ToolResult with IsError=true and a formatted message.
// This is the sprintf version of errorResult.
func errorResultf(format string, args ...any) *ToolResult {
	return errorResult(fmt.Sprintf(format, args...))
}

// textResult creates a ToolResult with a single text content.
// This reduces boilerplate for simple text responses.
func textResult(text string) *ToolResult {
	return &ToolResult{
		Content: []Content{{Type: "text", Text: text}},
	}
}

// textResultf creates a ToolResult with a formatted text content.
func textResultf(format string, args ...any) *ToolResult {
	return textResult(fmt.Sprintf(format, args...))
}

// formatLookinError formats a lookin error with context for MCP tool
// responses, with actionable suggestions for common scenarios.
func formatLookinError(err error, toolName string) string {
	if err == nil {
		return ""
	}

	suggestion := ""
	var serverErr *lookin.ServerError
	var parseErr *lookin.ParseError
	var unknownAttr *lookin.UnknownAttributeError
	var connFailed *lookin.ConnectionFailedError

	switch {
	case errors.Is(err, lookin.ErrNotConnected):
		suggestion = "Run lookin_connect first"
	case errors.Is(err, lookin.ErrAlreadyConnected):
		suggestion = "Run lookin_disconnect before connecting again"
	case errors.Is(err, lookin.ErrTimeout):
		suggestion = "The app may be busy or backgrounded; try lookin_ping"
	case errors.Is(err, lookin.ErrInvalidFrame):
		suggestion = "The server sent an unexpected payload; reconnect and retry"
	case errors.As(err, &connFailed):
		suggestion = "Check the simulator app is running with LookinServer linked"
	case errors.As(err, &serverErr), errors.As(err, &parseErr), errors.As(err, &unknownAttr):
		// Already user-readable; no suggestion needed.
	}

	if suggestion == "" {
		return fmt.Sprintf("Error in %s: %v", toolName, err)
	}
	return fmt.Sprintf("Error in %s: %v. %s.", toolName, err, suggestion)
}

// lookinErrorResult wraps formatLookinError as a ToolResult.
func lookinErrorResult(err error, toolName string) *ToolResult {
	return errorResult(formatLookinError(err, toolName))
}
