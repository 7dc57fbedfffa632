// Copyright 2025 Joseph Cumines
//
// Hierarchy, detail, and search tool handlers

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// handleHierarchy handles the lookin_hierarchy tool
func (s *MCPServer) handleHierarchy(_ *ToolCall) (*ToolResult, error) {
	info, err := s.session.FetchHierarchy(context.Background())
	if err != nil {
		return lookinErrorResult(err, "lookin_hierarchy"), nil
	}
	return textResult(formatHierarchy(info, nil)), nil
}

// handleViewDetail handles the lookin_view_detail tool
func (s *MCPServer) handleViewDetail(call *ToolCall) (*ToolResult, error) {
	var params struct {
		Oid uint64 `json:"oid"`
	}
	if err := json.Unmarshal(call.Arguments, &params); err != nil {
		return errorResultf("Invalid parameters: %v", err), nil
	}
	if params.Oid == 0 {
		return errorResult("oid parameter is required"), nil
	}

	ctx := context.Background()
	groups, err := s.session.FetchAttrGroups(ctx, params.Oid)
	if err != nil {
		return lookinErrorResult(err, "lookin_view_detail"), nil
	}
	header := ""
	if h := s.session.CachedHierarchy(); h != nil {
		if item := h.FindByOid(params.Oid); item != nil {
			header = fmt.Sprintf("%s (view oid %d, layer oid %d), frame %s\n\n",
				item.ClassName, item.ViewOid, item.LayerOid, item.Frame)
		}
	}
	return textResult(header + formatAttrGroups(groups)), nil
}

// handleSearch handles the lookin_search tool
func (s *MCPServer) handleSearch(call *ToolCall) (*ToolResult, error) {
	var params struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(call.Arguments, &params); err != nil {
		return errorResultf("Invalid parameters: %v", err), nil
	}
	if strings.TrimSpace(params.Query) == "" {
		return errorResult("query parameter is required"), nil
	}

	ctx := context.Background()
	h, err := s.session.Hierarchy(ctx)
	if err != nil {
		return lookinErrorResult(err, "lookin_search"), nil
	}
	texts, err := s.session.TextContents(ctx)
	if err != nil {
		return lookinErrorResult(err, "lookin_search"), nil
	}

	matches := searchHierarchy(h, texts, params.Query)
	if len(matches) == 0 {
		return textResultf("No views matching %q.", params.Query), nil
	}
	return textResult(formatSearchMatches(matches, params.Query)), nil
}

// handleSubtree handles the lookin_subtree tool
func (s *MCPServer) handleSubtree(call *ToolCall) (*ToolResult, error) {
	var params struct {
		Oid uint64 `json:"oid"`
	}
	if err := json.Unmarshal(call.Arguments, &params); err != nil {
		return errorResultf("Invalid parameters: %v", err), nil
	}
	if params.Oid == 0 {
		return errorResult("oid parameter is required"), nil
	}

	h, err := s.session.Hierarchy(context.Background())
	if err != nil {
		return lookinErrorResult(err, "lookin_subtree"), nil
	}
	item := h.FindByOid(params.Oid)
	if item == nil {
		return errorResultf("No view with oid %d in the cached hierarchy (run lookin_hierarchy to refresh)", params.Oid), nil
	}
	return textResult(formatSubtree(item, nil)), nil
}
