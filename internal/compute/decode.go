package compute

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"ghbridge/internal/domain"
)

// ValueKind tags a decoded tree item.
type ValueKind int

const (
	ValueText ValueKind = iota
	ValueNumber
	ValueGeometry // openNURBS JSON encoding
	ValueBinary   // raw model bytes (base64 on the wire)
)

// Value is one decoded tree item.
type Value struct {
	Kind   ValueKind
	Text   string
	Number float64
	JSON   json.RawMessage
	Bytes  []byte
}

// threeDMMagic is the openNURBS file header; base64 payloads decoding to it
// are whole 3dm models.
var threeDMMagic = []byte("3D Geometry File Format")

// parseBranchPath turns "{0;1;2}" into its integer components. Returns false
// for anything that is not a well-formed path.
func parseBranchPath(path string) ([]int, bool) {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(path, "{"), "}")
	if trimmed == path || trimmed == "" {
		return nil, false
	}
	parts := strings.Split(trimmed, ";")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, false
		}
		out[i] = n
	}
	return out, true
}

// lessPath orders branch paths numerically, component by component.
func lessPath(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// Flatten returns a param's items in deterministic branch-then-item order:
// branches sorted numerically by path, items in wire order within each
// branch. A malformed branch path is an output_decoding_error.
func Flatten(p Param) ([]TreeItem, error) {
	type branch struct {
		path  []int
		items []TreeItem
	}
	branches := make([]branch, 0, len(p.InnerTree))
	for key, items := range p.InnerTree {
		path, ok := parseBranchPath(key)
		if !ok {
			return nil, domain.NewToolError(domain.KindOutputDecoding,
				"output %q: malformed branch path %q", p.ParamName, key)
		}
		branches = append(branches, branch{path: path, items: items})
	}
	sort.Slice(branches, func(i, j int) bool { return lessPath(branches[i].path, branches[j].path) })

	var out []TreeItem
	for _, b := range branches {
		out = append(out, b.items...)
	}
	return out, nil
}

// DecodeItem interprets one tree item. Strings are unwrapped from the extra
// quoting Grasshopper applies, then tried as a base64 3dm model, then as a
// number; JSON objects are openNURBS geometry encodings; anything else stays
// text.
func DecodeItem(item TreeItem) Value {
	var s string
	if err := json.Unmarshal(item.Data, &s); err == nil {
		s = unquote(s)
		if b, ok := decode3dm(s); ok {
			return Value{Kind: ValueBinary, Bytes: b}
		}
		if js := strings.TrimSpace(s); strings.HasPrefix(js, "{") && json.Valid([]byte(js)) {
			return Value{Kind: ValueGeometry, JSON: json.RawMessage(js)}
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return Value{Kind: ValueNumber, Number: n, Text: s}
		}
		return Value{Kind: ValueText, Text: s}
	}

	var n float64
	if err := json.Unmarshal(item.Data, &n); err == nil {
		return Value{Kind: ValueNumber, Number: n, Text: strconv.FormatFloat(n, 'g', -1, 64)}
	}

	if trimmed := bytes.TrimSpace(item.Data); len(trimmed) > 0 && trimmed[0] == '{' {
		return Value{Kind: ValueGeometry, JSON: append(json.RawMessage(nil), trimmed...)}
	}

	return Value{Kind: ValueText, Text: string(item.Data)}
}

// unquote strips one layer of literal double quotes ('"10"' -> '10').
func unquote(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s[1 : len(s)-1]
	}
	return s
}

// decode3dm reports whether s is a base64-encoded 3dm model and returns the
// raw bytes when it is.
func decode3dm(s string) ([]byte, bool) {
	if len(s) < 32 {
		return nil, false
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, false
	}
	if !bytes.HasPrefix(b, threeDMMagic) {
		return nil, false
	}
	return b, true
}

// DecodeParam flattens and decodes every item of an output param.
func DecodeParam(p Param) ([]Value, error) {
	items, err := Flatten(p)
	if err != nil {
		return nil, err
	}
	values := make([]Value, 0, len(items))
	for _, item := range items {
		values = append(values, DecodeItem(item))
	}
	return values, nil
}
