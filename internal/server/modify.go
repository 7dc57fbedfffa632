// Copyright 2025 Joseph Cumines
//
// Attribute modification, method invocation, and selector listing handlers

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joeycumines/lookin-mcp/internal/lookin"
)

// handleModify handles the lookin_modify tool
func (s *MCPServer) handleModify(call *ToolCall) (*ToolResult, error) {
	var params struct {
		Attribute string `json:"attribute"`
		Value     string `json:"value"`
		Oid       uint64 `json:"oid"`
	}
	if err := json.Unmarshal(call.Arguments, &params); err != nil {
		return errorResultf("Invalid parameters: %v", err), nil
	}

	// "help" is intercepted before registry lookup.
	if params.Attribute == "help" {
		return textResult(lookin.AttributeHelp()), nil
	}
	if params.Attribute == "" {
		return errorResult("attribute parameter is required"), nil
	}
	if params.Oid == 0 {
		return errorResult("oid parameter is required"), nil
	}

	if err := s.session.ModifyAttribute(context.Background(), params.Attribute, params.Oid, params.Value); err != nil {
		return lookinErrorResult(err, "lookin_modify"), nil
	}

	text := fmt.Sprintf("Set %s = %q on oid %d.", params.Attribute, params.Value, params.Oid)
	if m, err := lookin.LookupAttribute(params.Attribute); err == nil && m.NeedsPatch {
		text += " The cached hierarchy layout is stale; re-run lookin_hierarchy to see the change."
	}
	return textResult(text), nil
}

// handleInvoke handles the lookin_invoke tool
func (s *MCPServer) handleInvoke(call *ToolCall) (*ToolResult, error) {
	var params struct {
		Selector string `json:"selector"`
		Oid      uint64 `json:"oid"`
	}
	if err := json.Unmarshal(call.Arguments, &params); err != nil {
		return errorResultf("Invalid parameters: %v", err), nil
	}
	if params.Oid == 0 || params.Selector == "" {
		return errorResult("oid and selector parameters are required"), nil
	}

	desc, err := s.session.InvokeMethod(context.Background(), params.Oid, params.Selector)
	if err != nil {
		return lookinErrorResult(err, "lookin_invoke"), nil
	}
	if desc == "" {
		return textResultf("[%d %s] returned (void).", params.Oid, params.Selector), nil
	}
	return textResultf("[%d %s] returned:\n%s", params.Oid, params.Selector, desc), nil
}

// handleSelectors handles the lookin_selectors tool
func (s *MCPServer) handleSelectors(call *ToolCall) (*ToolResult, error) {
	var params struct {
		ClassName string `json:"class_name"`
		HasArg    bool   `json:"has_arg"`
	}
	if err := json.Unmarshal(call.Arguments, &params); err != nil {
		return errorResultf("Invalid parameters: %v", err), nil
	}
	if params.ClassName == "" {
		return errorResult("class_name parameter is required"), nil
	}

	names, err := s.session.FetchSelectorNames(context.Background(), params.ClassName, params.HasArg)
	if err != nil {
		return lookinErrorResult(err, "lookin_selectors"), nil
	}
	if len(names) == 0 {
		return textResultf("No selectors found on %s.", params.ClassName), nil
	}

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte('\n')
	}
	return textResultf("%d selectors on %s:\n%s", len(names), params.ClassName, b.String()), nil
}
