package compute

import (
	"testing"

	"ghbridge/internal/domain"
)

func TestFormatParam_ShouldMapGoTypesToNetTypes(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		wantType string
		wantData string
	}{
		{"a", "hello", "System.String", `"hello"`},
		{"b", true, "System.Boolean", `true`},
		{"c", 7, "System.Int32", `7`},
		{"d", int64(9), "System.Int32", `9`},
		{"e", 4.0, "System.Int32", `4`},
		{"f", 2.5, "System.Double", `2.5`},
	}
	for _, tc := range tests {
		p, err := FormatParam(tc.name, tc.value)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if p.ParamName != tc.name {
			t.Errorf("Expected ParamName %q, got %q", tc.name, p.ParamName)
		}
		items := p.InnerTree[rootBranch]
		if len(items) != 1 {
			t.Fatalf("%s: expected 1 item in %s, got %d", tc.name, rootBranch, len(items))
		}
		if items[0].Type != tc.wantType {
			t.Errorf("%s: expected type %s, got %s", tc.name, tc.wantType, items[0].Type)
		}
		if string(items[0].Data) != tc.wantData {
			t.Errorf("%s: expected data %s, got %s", tc.name, tc.wantData, items[0].Data)
		}
	}
}

func TestFormatParam_ShouldRejectUnsupportedTypes(t *testing.T) {
	_, err := FormatParam("bad", []string{"not", "representable"})
	if err == nil {
		t.Fatal("Expected error for unsupported type")
	}
	if domain.KindOf(err) != domain.KindInputMapping {
		t.Errorf("Expected input_mapping_error, got %s", domain.KindOf(err))
	}
}
