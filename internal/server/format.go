// Copyright 2025 Joseph Cumines
//
// Text rendering of hierarchy trees, attribute groups, and search results

package server

import (
	"fmt"
	"strings"

	"github.com/joeycumines/lookin-mcp/internal/lookin"
	"github.com/joeycumines/lookin-mcp/internal/lookin/archive"
)

// formatHierarchy renders the full hierarchy as an indented tree. texts may
// be nil; when present, matching views get their text appended.
func formatHierarchy(h *lookin.HierarchyInfo, texts map[uint64]string) string {
	var b strings.Builder
	if h.AppInfo != nil {
		fmt.Fprintf(&b, "%s — %s\n\n", h.AppInfo.AppName, h.AppInfo.DeviceDescription)
	}
	for _, root := range h.DisplayItems {
		writeTree(&b, root, 0, texts)
	}
	return b.String()
}

// formatSubtree renders one node and its descendants.
func formatSubtree(item *lookin.DisplayItem, texts map[uint64]string) string {
	var b strings.Builder
	writeTree(&b, item, 0, texts)
	return b.String()
}

func writeTree(b *strings.Builder, item *lookin.DisplayItem, depth int, texts map[uint64]string) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(nodeLine(item, texts))
	b.WriteByte('\n')
	for _, sub := range item.Subitems {
		writeTree(b, sub, depth+1, texts)
	}
}

// nodeLine renders one tree node: class, oid, frame, visibility marks, text.
func nodeLine(item *lookin.DisplayItem, texts map[uint64]string) string {
	line := fmt.Sprintf("%s [oid %d] %s", item.ClassName, item.ViewOid, item.Frame)
	if item.Hidden {
		line += " (hidden)"
	}
	if item.Alpha == 0 {
		line += " (alpha 0)"
	}
	if text, ok := texts[item.ViewOid]; ok && text != "" {
		line += fmt.Sprintf(" %q", truncateText(text))
	}
	return line
}

// formatAttrGroups renders attribute groups as grouped prose.
func formatAttrGroups(groups []lookin.AttributesGroup) string {
	if len(groups) == 0 {
		return "No attributes reported."
	}
	var b strings.Builder
	for _, group := range groups {
		if group.Name != "" {
			fmt.Fprintf(&b, "%s:\n", group.Name)
		}
		for _, section := range group.Sections {
			for _, attr := range section.Attrs {
				name := attr.Title
				if name == "" {
					name = attr.Identifier
				}
				fmt.Fprintf(&b, "  %s: %s\n", name, formatAttrValue(attr.Value))
			}
		}
	}
	return b.String()
}

// formatAttrValue renders one decoded attribute value for display.
func formatAttrValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "(none)"
	case string:
		return fmt.Sprintf("%q", val)
	case bool:
		return fmt.Sprintf("%t", val)
	case float64:
		return fmt.Sprintf("%g", val)
	case int64:
		return fmt.Sprintf("%d", val)
	case uint64:
		return fmt.Sprintf("%d", val)
	case archive.Color:
		return fmt.Sprintf("rgba(%.3f, %.3f, %.3f, %.3f)", val.R, val.G, val.B, val.A)
	case archive.Image:
		return fmt.Sprintf("(image, %d bytes)", len(val.Data))
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, formatAttrValue(item))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *archive.Object:
		return fmt.Sprintf("(%s)", val.ClassName)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// searchMatch is one hit with its ancestry path for context.
type searchMatch struct {
	item *lookin.DisplayItem
	path []string
	text string
}

// searchHierarchy finds views whose class name or visible text contains
// query, case-insensitively.
func searchHierarchy(h *lookin.HierarchyInfo, texts map[uint64]string, query string) []searchMatch {
	needle := strings.ToLower(query)
	var matches []searchMatch

	var walk func(item *lookin.DisplayItem, path []string)
	walk = func(item *lookin.DisplayItem, path []string) {
		text := texts[item.ViewOid]
		if strings.Contains(strings.ToLower(item.ClassName), needle) ||
			strings.Contains(strings.ToLower(text), needle) {
			matches = append(matches, searchMatch{
				item: item,
				path: append([]string(nil), path...),
				text: text,
			})
		}
		childPath := append(path, item.ClassName)
		for _, sub := range item.Subitems {
			walk(sub, childPath)
		}
	}
	for _, root := range h.DisplayItems {
		walk(root, nil)
	}
	return matches
}

// formatSearchMatches renders search hits with ancestry paths.
func formatSearchMatches(matches []searchMatch, query string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d views matching %q:\n", len(matches), query)
	for _, m := range matches {
		b.WriteString("  ")
		b.WriteString(nodeLine(m.item, nil))
		if m.text != "" {
			fmt.Fprintf(&b, " %q", truncateText(m.text))
		}
		if len(m.path) > 0 {
			fmt.Fprintf(&b, "\n    in %s", strings.Join(m.path, " > "))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
