// Copyright 2025 Joseph Cumines
//
// Decoded value types and class-name remapping

package archive

import (
	"howett.net/plist"
)

// Host stand-in class names. The agent serializes platform image and color
// classes that do not exist here; references to them are rebound to these
// names before instantiation so decoding succeeds.
const (
	hostColorClass = "Color"
	hostImageClass = "Image"
)

// globalClassRemap rebinds wire class names for every decoder. Instance
// decoders start from a copy and may add their own bindings via RemapClass.
var globalClassRemap = map[string]string{
	"UIColor":                hostColorClass,
	"UIDeviceRGBColor":       hostColorClass,
	"UICachedDeviceRGBColor": hostColorClass,
	"NSColor":                hostColorClass,
	"UIImage":                hostImageClass,
	"NSImage":                hostImageClass,
}

// RemapGlobalClass rebinds a wire class name for all future decoders.
func RemapGlobalClass(wireName, hostName string) {
	globalClassRemap[wireName] = hostName
}

// Object is a decoded instance of a class without a dedicated host type.
// Fields hold the instance's keyed values with references resolved.
type Object struct {
	Fields    map[string]interface{}
	ClassName string
}

// String returns the string field named key, or "" when absent.
func (o *Object) String(key string) string {
	s, _ := o.Fields[key].(string)
	return s
}

// Uint64 returns the integer field named key coerced to uint64.
func (o *Object) Uint64(key string) uint64 {
	v, _ := asUint64(o.Fields[key])
	return v
}

// Float64 returns the numeric field named key coerced to float64.
func (o *Object) Float64(key string) float64 {
	v, _ := asFloat64(o.Fields[key])
	return v
}

// Bool returns the boolean field named key; numeric 0/1 also count.
func (o *Object) Bool(key string) bool {
	return asBool(o.Fields[key])
}

// Color is the host stand-in for platform color classes: four RGBA
// components in [0, 1].
type Color struct {
	R, G, B, A float64
}

// Image is the host stand-in for platform image classes, preserving only
// the serialized bytes.
type Image struct {
	Data []byte
}

// decodeColor reads the RGBA component keys a keyed-archived UIColor carries.
func decodeColor(dict map[string]interface{}) Color {
	c := Color{A: 1}
	if v, ok := asFloat64(dict["UIRed"]); ok {
		c.R = v
	}
	if v, ok := asFloat64(dict["UIGreen"]); ok {
		c.G = v
	}
	if v, ok := asFloat64(dict["UIBlue"]); ok {
		c.B = v
	}
	if v, ok := asFloat64(dict["UIAlpha"]); ok {
		c.A = v
	}
	if v, ok := asFloat64(dict["UIWhite"]); ok {
		c.R, c.G, c.B = v, v, v
	}
	return c
}

// decodeImage extracts the image payload bytes, following a reference if the
// data was archived as a separate object.
func (d *Decoder) decodeImage(dict map[string]interface{}) (Image, error) {
	for _, key := range []string{"UIImageData", "NS.data", "data"} {
		if raw, ok := dict[key]; ok {
			v, err := d.resolveRef(raw)
			if err != nil {
				return Image{}, err
			}
			if b, ok := v.([]byte); ok {
				return Image{Data: b}, nil
			}
		}
	}
	return Image{}, nil
}

// asUID reports whether v is a keyed-archive object reference.
func asUID(v interface{}) (plist.UID, bool) {
	u, ok := v.(plist.UID)
	return u, ok
}

// asUint64 coerces the numeric representations the plist decoder produces.
func asUint64(v interface{}) (uint64, bool) {
	switch n := v.(type) {
	case uint64:
		return n, true
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case int:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case float64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	default:
		return 0, false
	}
}

func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func asFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func asBool(v interface{}) bool {
	switch n := v.(type) {
	case bool:
		return n
	case uint64:
		return n != 0
	case int64:
		return n != 0
	case int:
		return n != 0
	default:
		return false
	}
}
