// Copyright 2025 Joseph Cumines
//
// Decoded LookinServer model types

package lookin

import (
	"fmt"
	"strings"

	"github.com/joeycumines/lookin-mcp/internal/lookin/archive"
)

// Rect is a decoded CGRect.
type Rect struct {
	X, Y, W, H float64
}

func (r Rect) String() string {
	return fmt.Sprintf("(%.0f, %.0f) %.0fx%.0f", r.X, r.Y, r.W, r.H)
}

// AppInfo describes the inspected app and its device.
type AppInfo struct {
	AppName           string
	BundleIdentifier  string
	DeviceDescription string
	OSDescription     string
	OSMainVersion     int64
	ScreenWidth       float64
	ScreenHeight      float64
	ScreenScale       float64
	ServerVersion     string
}

// DisplayItem is one node of the view hierarchy. A view owns a layer; most
// visual properties live on the layer, so attribute reads address LayerOid.
type DisplayItem struct {
	ClassName string
	Subitems  []*DisplayItem
	Frame     Rect
	Alpha     float64
	ViewOid   uint64
	LayerOid  uint64
	Hidden    bool
}

// HierarchyInfo is the full view hierarchy snapshot plus app metadata.
type HierarchyInfo struct {
	AppInfo      *AppInfo
	DisplayItems []*DisplayItem
}

// Attribute is one readable property of a view or layer.
type Attribute struct {
	Identifier string
	Title      string
	Value      interface{}
}

// AttributesSection groups related attributes within a group.
type AttributesSection struct {
	Name  string
	Attrs []Attribute
}

// AttributesGroup is the top-level grouping returned by an attribute read.
type AttributesGroup struct {
	Name     string
	Sections []AttributesSection
}

// parseRect accepts the shapes CGRect values take in the archives: the
// NSStringFromCGRect form "{{x, y}, {w, h}}" or a keyed dictionary.
func parseRect(v interface{}) (Rect, bool) {
	switch val := v.(type) {
	case string:
		return parseRectString(val)
	case map[string]interface{}:
		r := Rect{}
		var ok bool
		if r.X, ok = floatField(val, "X", "x"); !ok {
			return Rect{}, false
		}
		r.Y, _ = floatField(val, "Y", "y")
		r.W, _ = floatField(val, "Width", "width", "W")
		r.H, _ = floatField(val, "Height", "height", "H")
		return r, true
	default:
		return Rect{}, false
	}
}

func parseRectString(s string) (Rect, bool) {
	clean := strings.NewReplacer("{", "", "}", "", " ", "").Replace(s)
	parts := strings.Split(clean, ",")
	if len(parts) != 4 {
		return Rect{}, false
	}
	var r Rect
	if _, err := fmt.Sscanf(strings.Join(parts, ","), "%g,%g,%g,%g", &r.X, &r.Y, &r.W, &r.H); err != nil {
		return Rect{}, false
	}
	return r, true
}

func floatField(dict map[string]interface{}, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := dict[k]; ok {
			if f, ok := archiveFloat(v); ok {
				return f, true
			}
		}
	}
	return 0, false
}

func archiveFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// decodeAppInfo converts a decoded LookinAppInfo object.
func decodeAppInfo(obj *archive.Object) *AppInfo {
	info := &AppInfo{
		AppName:           obj.String("appName"),
		BundleIdentifier:  obj.String("appBundleIdentifier"),
		DeviceDescription: obj.String("deviceDescription"),
		OSDescription:     obj.String("osDescription"),
		OSMainVersion:     int64(obj.Uint64("osMainVersion")),
		ScreenWidth:       obj.Float64("screenWidth"),
		ScreenHeight:      obj.Float64("screenHeight"),
		ScreenScale:       obj.Float64("screenScale"),
		ServerVersion:     obj.String("serverVersion"),
	}
	if info.ServerVersion == "" {
		info.ServerVersion = obj.String("serverReadableVersion")
	}
	return info
}

// decodeDisplayItem converts one hierarchy node and its subtree.
func decodeDisplayItem(obj *archive.Object) *DisplayItem {
	item := &DisplayItem{
		ClassName: obj.String("className"),
		ViewOid:   obj.Uint64("viewOid"),
		LayerOid:  obj.Uint64("layerOid"),
		Hidden:    obj.Bool("hidden"),
		Alpha:     1,
	}
	if v, ok := obj.Fields["alpha"]; ok {
		if f, ok := archiveFloat(v); ok {
			item.Alpha = f
		}
	}
	if r, ok := parseRect(obj.Fields["frame"]); ok {
		item.Frame = r
	}
	if subs, ok := obj.Fields["subitems"].([]interface{}); ok {
		for _, sub := range subs {
			if subObj, ok := sub.(*archive.Object); ok {
				item.Subitems = append(item.Subitems, decodeDisplayItem(subObj))
			}
		}
	}
	return item
}

// decodeHierarchyInfo converts a decoded LookinHierarchyInfo object.
func decodeHierarchyInfo(obj *archive.Object) *HierarchyInfo {
	info := &HierarchyInfo{}
	if items, ok := obj.Fields["displayItems"].([]interface{}); ok {
		for _, raw := range items {
			if itemObj, ok := raw.(*archive.Object); ok {
				info.DisplayItems = append(info.DisplayItems, decodeDisplayItem(itemObj))
			}
		}
	}
	if appObj, ok := obj.Fields["appInfo"].(*archive.Object); ok {
		info.AppInfo = decodeAppInfo(appObj)
	}
	return info
}

// decodeAttributesGroups converts the list returned by an attribute read.
func decodeAttributesGroups(v interface{}) ([]AttributesGroup, error) {
	raw, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: attribute groups payload is %T, want list", ErrInvalidFrame, v)
	}
	groups := make([]AttributesGroup, 0, len(raw))
	for _, g := range raw {
		obj, ok := g.(*archive.Object)
		if !ok {
			continue
		}
		group := AttributesGroup{Name: obj.String("name")}
		if group.Name == "" {
			group.Name = obj.String("identifier")
		}
		if sections, ok := obj.Fields["attrSections"].([]interface{}); ok {
			for _, s := range sections {
				sectionObj, ok := s.(*archive.Object)
				if !ok {
					continue
				}
				section := AttributesSection{Name: sectionObj.String("name")}
				if section.Name == "" {
					section.Name = sectionObj.String("identifier")
				}
				if attrs, ok := sectionObj.Fields["attrs"].([]interface{}); ok {
					for _, a := range attrs {
						attrObj, ok := a.(*archive.Object)
						if !ok {
							continue
						}
						section.Attrs = append(section.Attrs, Attribute{
							Identifier: attrObj.String("identifier"),
							Title:      attrObj.String("title"),
							Value:      attrObj.Fields["value"],
						})
					}
				}
				group.Sections = append(group.Sections, section)
			}
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// Walk visits item and its subtree depth-first.
func (item *DisplayItem) Walk(visit func(*DisplayItem)) {
	visit(item)
	for _, sub := range item.Subitems {
		sub.Walk(visit)
	}
}

// FindByOid searches the hierarchy for the item whose view or layer oid
// matches.
func (h *HierarchyInfo) FindByOid(oid uint64) *DisplayItem {
	var found *DisplayItem
	for _, root := range h.DisplayItems {
		root.Walk(func(item *DisplayItem) {
			if found == nil && (item.ViewOid == oid || item.LayerOid == oid) {
				found = item
			}
		})
		if found != nil {
			break
		}
	}
	return found
}

// LayerOidFor translates a view oid to its layer oid using the hierarchy.
// Unknown oids are returned unchanged (best-effort, the server may accept
// either for some properties).
func (h *HierarchyInfo) LayerOidFor(oid uint64) uint64 {
	if item := h.FindByOid(oid); item != nil && item.LayerOid != 0 {
		return item.LayerOid
	}
	return oid
}
