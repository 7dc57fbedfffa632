// Copyright 2025 Joseph Cumines
//
// Rendering unit tests

package server

import (
	"strings"
	"testing"

	"github.com/joeycumines/lookin-mcp/internal/lookin"
	"github.com/joeycumines/lookin-mcp/internal/lookin/archive"
)

func sampleHierarchy() *lookin.HierarchyInfo {
	return &lookin.HierarchyInfo{
		AppInfo: &lookin.AppInfo{AppName: "Example", DeviceDescription: "iPhone 15 Simulator"},
		DisplayItems: []*lookin.DisplayItem{
			{
				ClassName: "UIWindow", ViewOid: 1, LayerOid: 101,
				Frame: lookin.Rect{W: 393, H: 852}, Alpha: 1,
				Subitems: []*lookin.DisplayItem{
					{
						ClassName: "UILabel", ViewOid: 2, LayerOid: 102,
						Frame: lookin.Rect{X: 10, Y: 20, W: 100, H: 30}, Alpha: 1,
					},
					{
						ClassName: "UIButton", ViewOid: 3, LayerOid: 103,
						Hidden: true, Alpha: 1,
					},
				},
			},
		},
	}
}

func TestFormatHierarchy(t *testing.T) {
	out := formatHierarchy(sampleHierarchy(), map[uint64]string{2: "Sign in"})

	if !strings.Contains(out, "Example — iPhone 15 Simulator") {
		t.Errorf("missing app header:\n%s", out)
	}
	if !strings.Contains(out, "UIWindow [oid 1]") {
		t.Errorf("missing root node:\n%s", out)
	}
	// Children are indented under the root.
	if !strings.Contains(out, "\n  UILabel [oid 2]") {
		t.Errorf("label not indented:\n%s", out)
	}
	if !strings.Contains(out, `"Sign in"`) {
		t.Errorf("label text not rendered:\n%s", out)
	}
	if !strings.Contains(out, "(hidden)") {
		t.Errorf("hidden mark missing:\n%s", out)
	}
}

func TestFormatSubtree(t *testing.T) {
	h := sampleHierarchy()
	out := formatSubtree(h.DisplayItems[0].Subitems[0], nil)
	if strings.Contains(out, "UIWindow") {
		t.Errorf("subtree leaked ancestors:\n%s", out)
	}
	if !strings.HasPrefix(out, "UILabel [oid 2]") {
		t.Errorf("subtree root not first:\n%s", out)
	}
}

func TestSearchHierarchy(t *testing.T) {
	h := sampleHierarchy()
	texts := map[uint64]string{2: "Sign in"}

	byClass := searchHierarchy(h, texts, "uibutton")
	if len(byClass) != 1 || byClass[0].item.ViewOid != 3 {
		t.Errorf("class search = %+v", byClass)
	}

	byText := searchHierarchy(h, texts, "sign")
	if len(byText) != 1 || byText[0].item.ViewOid != 2 {
		t.Errorf("text search = %+v", byText)
	}

	if got := searchHierarchy(h, texts, "zzz"); len(got) != 0 {
		t.Errorf("miss search = %+v", got)
	}

	// "UI" matches every node.
	if got := searchHierarchy(h, texts, "UI"); len(got) != 3 {
		t.Errorf("broad search found %d, want 3", len(got))
	}
}

func TestSearchMatchPaths(t *testing.T) {
	h := sampleHierarchy()
	matches := searchHierarchy(h, nil, "uilabel")
	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(matches))
	}
	out := formatSearchMatches(matches, "uilabel")
	if !strings.Contains(out, "in UIWindow") {
		t.Errorf("ancestry path missing:\n%s", out)
	}
}

func TestFormatAttrGroups(t *testing.T) {
	groups := []lookin.AttributesGroup{
		{
			Name: "Layout",
			Sections: []lookin.AttributesSection{
				{Attrs: []lookin.Attribute{
					{Identifier: "v_frame", Title: "Frame", Value: "{{0, 0}, {100, 50}}"},
					{Identifier: "v_hidden", Title: "Hidden", Value: false},
					{Identifier: "v_alpha", Value: 0.5},
				}},
			},
		},
	}
	out := formatAttrGroups(groups)
	for _, want := range []string{"Layout:", "Frame:", "Hidden: false", "v_alpha: 0.5"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q:\n%s", want, out)
		}
	}
}

func TestFormatAttrGroupsEmpty(t *testing.T) {
	if out := formatAttrGroups(nil); !strings.Contains(out, "No attributes") {
		t.Errorf("empty groups = %q", out)
	}
}

func TestFormatAttrValue(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{name: "nil", in: nil, want: "(none)"},
		{name: "string", in: "hi", want: `"hi"`},
		{name: "bool", in: true, want: "true"},
		{name: "float", in: 2.5, want: "2.5"},
		{name: "int", in: int64(-3), want: "-3"},
		{name: "color", in: archive.Color{R: 1, A: 1}, want: "rgba(1.000, 0.000, 0.000, 1.000)"},
		{name: "image", in: archive.Image{Data: []byte{1, 2}}, want: "(image, 2 bytes)"},
		{name: "list", in: []interface{}{1.0, 2.0}, want: "[1, 2]"},
		{name: "object", in: &archive.Object{ClassName: "UIFont"}, want: "(UIFont)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatAttrValue(tt.in); got != tt.want {
				t.Errorf("formatAttrValue() = %q, want %q", got, tt.want)
			}
		})
	}
}
