// Copyright 2025 Joseph Cumines
//
// Attribute registry and value parsing unit tests

package lookin

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestLookupAttribute(t *testing.T) {
	m, err := LookupAttribute("hidden")
	if err != nil {
		t.Fatalf("LookupAttribute() error = %v", err)
	}
	if m.SetterSelector != "setHidden:" {
		t.Errorf("SetterSelector = %s, want setHidden:", m.SetterSelector)
	}
	if m.AttrType != AttrTypeBool {
		t.Errorf("AttrType = %d, want %d", m.AttrType, AttrTypeBool)
	}
	if m.Target != TargetView {
		t.Errorf("Target = %v, want view", m.Target)
	}
}

func TestLookupAttributeUnknown(t *testing.T) {
	_, err := LookupAttribute("noSuchAttribute")
	var unknownErr *UnknownAttributeError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("LookupAttribute() error = %v, want UnknownAttributeError", err)
	}
	if unknownErr.Name != "noSuchAttribute" {
		t.Errorf("Name = %s, want noSuchAttribute", unknownErr.Name)
	}
}

func TestLookupAttributeCaseSensitive(t *testing.T) {
	if _, err := LookupAttribute("Hidden"); err == nil {
		t.Error("LookupAttribute() matched case-insensitively")
	}
}

func TestAttributeHelp(t *testing.T) {
	help := AttributeHelp()
	for _, want := range []string{"hidden", "backgroundColor", "cornerRadius", "#RRGGBB"} {
		if !strings.Contains(help, want) {
			t.Errorf("AttributeHelp() missing %q", want)
		}
	}
}

func TestParseBoolValue(t *testing.T) {
	m := AttrMapping{FriendlyName: "hidden", AttrType: AttrTypeBool}
	tests := []struct {
		input   string
		want    bool
		wantErr bool
	}{
		{input: "true", want: true},
		{input: "YES", want: true},
		{input: "1", want: true},
		{input: " True ", want: true},
		{input: "false", want: false},
		{input: "no", want: false},
		{input: "0", want: false},
		{input: "maybe", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAttrValue(m, tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseAttrValue(%q) accepted", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAttrValue(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseAttrValue(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseNumericValues(t *testing.T) {
	intMapping := AttrMapping{FriendlyName: "tag", AttrType: AttrTypeLong}
	if got, err := ParseAttrValue(intMapping, "-12"); err != nil || got != int64(-12) {
		t.Errorf("ParseAttrValue(-12) = %v, %v; want -12", got, err)
	}
	if _, err := ParseAttrValue(intMapping, "1.5"); err == nil {
		t.Error("integer attribute accepted 1.5")
	}

	floatMapping := AttrMapping{FriendlyName: "alpha", AttrType: AttrTypeDouble}
	if got, err := ParseAttrValue(floatMapping, "0.5"); err != nil || got != 0.5 {
		t.Errorf("ParseAttrValue(0.5) = %v, %v; want 0.5", got, err)
	}
	if got, err := ParseAttrValue(floatMapping, "2"); err != nil || got != 2.0 {
		t.Errorf("ParseAttrValue(2) = %v, %v; want 2", got, err)
	}
}

func TestParseStringValue(t *testing.T) {
	m := AttrMapping{FriendlyName: "text", AttrType: AttrTypeNSString}
	got, err := ParseAttrValue(m, "  hello world ")
	if err != nil {
		t.Fatalf("ParseAttrValue() error = %v", err)
	}
	// Strings pass through verbatim, whitespace included.
	if got != "  hello world " {
		t.Errorf("ParseAttrValue() = %q", got)
	}
}

func TestParseRectValue(t *testing.T) {
	m := AttrMapping{FriendlyName: "frame", AttrType: AttrTypeCGRect, ValueFormatHelp: "x,y,width,height"}
	got, err := ParseAttrValue(m, "0, 10, 100, 44.5")
	if err != nil {
		t.Fatalf("ParseAttrValue() error = %v", err)
	}
	want := []float64{0, 10, 100, 44.5}
	vals := got.([]float64)
	for i := range want {
		if vals[i] != want[i] {
			t.Errorf("component %d = %g, want %g", i, vals[i], want[i])
		}
	}

	if _, err := ParseAttrValue(m, "1,2,3"); err == nil {
		t.Error("rect accepted 3 components")
	}
	if _, err := ParseAttrValue(m, "a,b,c,d"); err == nil {
		t.Error("rect accepted non-numeric components")
	}
}

func TestParsePointValue(t *testing.T) {
	m := AttrMapping{FriendlyName: "position", AttrType: AttrTypeCGPoint, ValueFormatHelp: "x,y"}
	got, err := ParseAttrValue(m, "5,-3")
	if err != nil {
		t.Fatalf("ParseAttrValue() error = %v", err)
	}
	vals := got.([]float64)
	if vals[0] != 5 || vals[1] != -3 {
		t.Errorf("ParseAttrValue() = %v, want [5 -3]", vals)
	}
	if _, err := ParseAttrValue(m, "5,3,1"); err == nil {
		t.Error("point accepted 3 components")
	}
}

func TestParseColorHex(t *testing.T) {
	got, err := ParseColor("backgroundColor", "#80FF00")
	if err != nil {
		t.Fatalf("ParseColor() error = %v", err)
	}
	want := []float64{0.502, 1.0, 0.0, 1.0}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 0.005 {
			t.Errorf("component %d = %g, want %g (±0.005)", i, got[i], want[i])
		}
	}
}

func TestParseColorHexAlpha(t *testing.T) {
	got, err := ParseColor("backgroundColor", "#00000080")
	if err != nil {
		t.Fatalf("ParseColor() error = %v", err)
	}
	if math.Abs(got[3]-0.502) > 0.005 {
		t.Errorf("alpha = %g, want 0.502", got[3])
	}
}

func TestParseColorComponents(t *testing.T) {
	got, err := ParseColor("borderColor", "0.2,0.4,0.6,0.8")
	if err != nil {
		t.Fatalf("ParseColor() error = %v", err)
	}
	want := []float64{0.2, 0.4, 0.6, 0.8}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("component %d = %g, want %g", i, got[i], want[i])
		}
	}

	// A 3-tuple implies alpha 1.
	got, err = ParseColor("borderColor", "1,0,0")
	if err != nil {
		t.Fatalf("ParseColor() error = %v", err)
	}
	if got[0] != 1 || got[1] != 0 || got[2] != 0 || got[3] != 1 {
		t.Errorf("ParseColor(1,0,0) = %v, want [1 0 0 1]", got)
	}
}

func TestParseColorRejects(t *testing.T) {
	tests := []string{
		"bad",
		"80FF00",     // hex without '#'
		"#80FF0",     // 5 digits
		"#80FF0011A", // 9 digits
		"#GGHHII",
		"1,2",     // wrong arity
		"1.5,0,0", // out of range
		"",
	}
	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			if _, err := ParseColor("backgroundColor", input); err == nil {
				t.Errorf("ParseColor(%q) accepted", input)
			}
			var parseErr *ParseError
			_, err := ParseColor("backgroundColor", input)
			if !errors.As(err, &parseErr) {
				t.Fatalf("error = %v, want ParseError", err)
			}
			if parseErr.Attribute != "backgroundColor" {
				t.Errorf("ParseError names %q, want backgroundColor", parseErr.Attribute)
			}
		})
	}
}

func TestParseErrorNamesAttributeAndInput(t *testing.T) {
	m := AttrMapping{FriendlyName: "alpha", AttrType: AttrTypeDouble}
	_, err := ParseAttrValue(m, "opaque")
	if err == nil {
		t.Fatal("ParseAttrValue() accepted garbage")
	}
	msg := err.Error()
	if !strings.Contains(msg, "alpha") || !strings.Contains(msg, "opaque") {
		t.Errorf("error %q does not name attribute and input", msg)
	}
}
