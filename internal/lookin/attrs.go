// Copyright 2025 Joseph Cumines
//
// Attribute registry and value parsing for attribute modification

package lookin

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// AttrType codes shared with the server.
const (
	AttrTypeInt          = 3
	AttrTypeLong         = 5
	AttrTypeFloat        = 12
	AttrTypeDouble       = 13
	AttrTypeBool         = 14
	AttrTypeCGPoint      = 17
	AttrTypeCGSize       = 19
	AttrTypeCGRect       = 20
	AttrTypeUIEdgeInsets = 22
	AttrTypeNSString     = 23
	AttrTypeEnumInt      = 24
	AttrTypeEnumLong     = 25
	AttrTypeUIColor      = 27
)

// TargetKind selects whether a modification addresses the view or its layer.
type TargetKind int

const (
	TargetView TargetKind = iota
	TargetLayer
)

// AttrMapping binds a friendly attribute name to its wire tuple. NeedsPatch
// marks attributes whose modification changes geometry or visibility, so a
// cached hierarchy rendering is stale afterwards.
type AttrMapping struct {
	FriendlyName    string
	Identifier      string
	SetterSelector  string
	ValueFormatHelp string
	AttrType        int
	Target          TargetKind
	NeedsPatch      bool
}

// attrRegistry is the curated set of attributes modifiable by friendly name.
// Unlisted server attributes are simply unsupported here. Populated once;
// never mutated after init.
var attrRegistry = map[string]AttrMapping{
	"hidden": {
		FriendlyName:    "hidden",
		Identifier:      "v_hidden",
		SetterSelector:  "setHidden:",
		AttrType:        AttrTypeBool,
		Target:          TargetView,
		NeedsPatch:      true,
		ValueFormatHelp: "true/false",
	},
	"alpha": {
		FriendlyName:    "alpha",
		Identifier:      "v_alpha",
		SetterSelector:  "setAlpha:",
		AttrType:        AttrTypeDouble,
		Target:          TargetView,
		NeedsPatch:      true,
		ValueFormatHelp: "decimal in [0,1], e.g. 0.5",
	},
	"backgroundColor": {
		FriendlyName:    "backgroundColor",
		Identifier:      "v_bgColor",
		SetterSelector:  "setBackgroundColor:",
		AttrType:        AttrTypeUIColor,
		Target:          TargetView,
		ValueFormatHelp: "#RRGGBB, #RRGGBBAA, or r,g,b[,a] floats in [0,1]",
	},
	"frame": {
		FriendlyName:    "frame",
		Identifier:      "v_frame",
		SetterSelector:  "setFrame:",
		AttrType:        AttrTypeCGRect,
		Target:          TargetView,
		NeedsPatch:      true,
		ValueFormatHelp: "x,y,width,height",
	},
	"bounds": {
		FriendlyName:    "bounds",
		Identifier:      "v_bounds",
		SetterSelector:  "setBounds:",
		AttrType:        AttrTypeCGRect,
		Target:          TargetView,
		NeedsPatch:      true,
		ValueFormatHelp: "x,y,width,height",
	},
	"position": {
		FriendlyName:    "position",
		Identifier:      "l_position",
		SetterSelector:  "setPosition:",
		AttrType:        AttrTypeCGPoint,
		Target:          TargetLayer,
		NeedsPatch:      true,
		ValueFormatHelp: "x,y",
	},
	"cornerRadius": {
		FriendlyName:    "cornerRadius",
		Identifier:      "l_cornerRadius",
		SetterSelector:  "setCornerRadius:",
		AttrType:        AttrTypeDouble,
		Target:          TargetLayer,
		ValueFormatHelp: "decimal, e.g. 8",
	},
	"borderWidth": {
		FriendlyName:    "borderWidth",
		Identifier:      "l_borderWidth",
		SetterSelector:  "setBorderWidth:",
		AttrType:        AttrTypeDouble,
		Target:          TargetLayer,
		ValueFormatHelp: "decimal, e.g. 1.5",
	},
	"borderColor": {
		FriendlyName:    "borderColor",
		Identifier:      "l_borderColor",
		SetterSelector:  "setBorderColor:",
		AttrType:        AttrTypeUIColor,
		Target:          TargetLayer,
		ValueFormatHelp: "#RRGGBB, #RRGGBBAA, or r,g,b[,a] floats in [0,1]",
	},
	"opacity": {
		FriendlyName:    "opacity",
		Identifier:      "l_opacity",
		SetterSelector:  "setOpacity:",
		AttrType:        AttrTypeFloat,
		Target:          TargetLayer,
		ValueFormatHelp: "decimal in [0,1]",
	},
	"masksToBounds": {
		FriendlyName:    "masksToBounds",
		Identifier:      "l_masksToBounds",
		SetterSelector:  "setMasksToBounds:",
		AttrType:        AttrTypeBool,
		Target:          TargetLayer,
		ValueFormatHelp: "true/false",
	},
	"text": {
		FriendlyName:    "text",
		Identifier:      "lb_t_t",
		SetterSelector:  "setText:",
		AttrType:        AttrTypeNSString,
		Target:          TargetView,
		ValueFormatHelp: "any string (UILabel/UITextField/UITextView)",
	},
	"textColor": {
		FriendlyName:    "textColor",
		Identifier:      "lb_t_color",
		SetterSelector:  "setTextColor:",
		AttrType:        AttrTypeUIColor,
		Target:          TargetView,
		ValueFormatHelp: "#RRGGBB, #RRGGBBAA, or r,g,b[,a] floats in [0,1]",
	},
	"tintColor": {
		FriendlyName:    "tintColor",
		Identifier:      "v_tintColor",
		SetterSelector:  "setTintColor:",
		AttrType:        AttrTypeUIColor,
		Target:          TargetView,
		ValueFormatHelp: "#RRGGBB, #RRGGBBAA, or r,g,b[,a] floats in [0,1]",
	},
	"isUserInteractionEnabled": {
		FriendlyName:    "isUserInteractionEnabled",
		Identifier:      "v_interaction",
		SetterSelector:  "setUserInteractionEnabled:",
		AttrType:        AttrTypeBool,
		Target:          TargetView,
		ValueFormatHelp: "true/false",
	},
	"tag": {
		FriendlyName:    "tag",
		Identifier:      "v_tag",
		SetterSelector:  "setTag:",
		AttrType:        AttrTypeLong,
		Target:          TargetView,
		ValueFormatHelp: "signed integer",
	},
	"contentMode": {
		FriendlyName:    "contentMode",
		Identifier:      "v_contentMode",
		SetterSelector:  "setContentMode:",
		AttrType:        AttrTypeEnumInt,
		Target:          TargetView,
		ValueFormatHelp: "UIViewContentMode raw value, e.g. 1 (scaleAspectFit)",
	},
	"clipsToBounds": {
		FriendlyName:    "clipsToBounds",
		Identifier:      "v_clips",
		SetterSelector:  "setClipsToBounds:",
		AttrType:        AttrTypeBool,
		Target:          TargetView,
		ValueFormatHelp: "true/false",
	},
}

// LookupAttribute returns the mapping for a friendly name. Lookup is
// case-sensitive; the pseudo-name "help" must be intercepted before calling.
func LookupAttribute(name string) (AttrMapping, error) {
	m, ok := attrRegistry[name]
	if !ok {
		return AttrMapping{}, &UnknownAttributeError{Name: name}
	}
	return m, nil
}

// AttributeHelp renders the full registry help text, one attribute per line,
// sorted by friendly name.
func AttributeHelp() string {
	names := make([]string, 0, len(attrRegistry))
	for name := range attrRegistry {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Supported attributes:\n")
	for _, name := range names {
		m := attrRegistry[name]
		target := "view"
		if m.Target == TargetLayer {
			target = "layer"
		}
		fmt.Fprintf(&b, "  %-26s (%s)  value: %s\n", name, target, m.ValueFormatHelp)
	}
	return b.String()
}

// ParseAttrValue converts the user-supplied string into the wire value for
// the mapping's type code. Failures name the attribute and the input.
func ParseAttrValue(m AttrMapping, input string) (interface{}, error) {
	switch m.AttrType {
	case AttrTypeBool:
		return parseBoolValue(m.FriendlyName, input)
	case AttrTypeInt, AttrTypeLong, AttrTypeEnumInt, AttrTypeEnumLong:
		n, err := strconv.ParseInt(strings.TrimSpace(input), 10, 64)
		if err != nil {
			return nil, &ParseError{Attribute: m.FriendlyName, Input: input, Hint: "a signed integer"}
		}
		return n, nil
	case AttrTypeFloat, AttrTypeDouble:
		f, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
		if err != nil {
			return nil, &ParseError{Attribute: m.FriendlyName, Input: input, Hint: "a decimal number"}
		}
		return f, nil
	case AttrTypeNSString:
		return input, nil
	case AttrTypeCGPoint, AttrTypeCGSize:
		return parseComponents(m, input, 2)
	case AttrTypeCGRect, AttrTypeUIEdgeInsets:
		return parseComponents(m, input, 4)
	case AttrTypeUIColor:
		return ParseColor(m.FriendlyName, input)
	default:
		return nil, &ParseError{Attribute: m.FriendlyName, Input: input, Hint: "a supported attribute type"}
	}
}

func parseBoolValue(attr, input string) (interface{}, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "true", "yes", "1":
		return true, nil
	case "false", "no", "0":
		return false, nil
	default:
		return nil, &ParseError{Attribute: attr, Input: input, Hint: "true/yes/1 or false/no/0"}
	}
}

// parseComponents parses comma-separated decimals with a required arity.
func parseComponents(m AttrMapping, input string, arity int) (interface{}, error) {
	parts := strings.Split(input, ",")
	if len(parts) != arity {
		return nil, &ParseError{
			Attribute: m.FriendlyName,
			Input:     input,
			Hint:      fmt.Sprintf("%d comma-separated decimals (%s)", arity, m.ValueFormatHelp),
		}
	}
	values := make([]float64, arity)
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, &ParseError{
				Attribute: m.FriendlyName,
				Input:     input,
				Hint:      fmt.Sprintf("%d comma-separated decimals (%s)", arity, m.ValueFormatHelp),
			}
		}
		values[i] = f
	}
	return values, nil
}

// ParseColor accepts "#RRGGBB", "#RRGGBBAA", or 3/4 comma-separated floats
// in [0,1]. A 3-tuple implies alpha 1. Hex without "#" is rejected, as are
// hex lengths other than 6 or 8 digits. Colors travel on the wire as a
// 4-element [r,g,b,a] list.
func ParseColor(attr, input string) ([]float64, error) {
	s := strings.TrimSpace(input)
	if strings.HasPrefix(s, "#") {
		return parseHexColor(attr, input, s[1:])
	}

	parts := strings.Split(s, ",")
	if len(parts) != 3 && len(parts) != 4 {
		return nil, &ParseError{Attribute: attr, Input: input, Hint: "#RRGGBB, #RRGGBBAA, or 3-4 floats in [0,1]"}
	}
	rgba := []float64{0, 0, 0, 1}
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || f < 0 || f > 1 {
			return nil, &ParseError{Attribute: attr, Input: input, Hint: "color components as floats in [0,1]"}
		}
		rgba[i] = f
	}
	return rgba, nil
}

func parseHexColor(attr, input, hex string) ([]float64, error) {
	if len(hex) != 6 && len(hex) != 8 {
		return nil, &ParseError{Attribute: attr, Input: input, Hint: "#RRGGBB or #RRGGBBAA"}
	}
	rgba := []float64{0, 0, 0, 1}
	for i := 0; i*2 < len(hex); i++ {
		n, err := strconv.ParseUint(hex[i*2:i*2+2], 16, 8)
		if err != nil {
			return nil, &ParseError{Attribute: attr, Input: input, Hint: "#RRGGBB or #RRGGBBAA"}
		}
		rgba[i] = float64(n) / 255
	}
	return rgba, nil
}
