// Package compute talks to a Rhino.Compute server: it encodes named inputs
// into the Grasshopper data-tree wire format, submits synchronous evaluation
// jobs, and decodes the returned trees into scalars and binary artifacts.
package compute

import "encoding/json"

// TreeItem is one leaf of a Grasshopper data tree. Type is the .NET type
// name (e.g. "System.Int32"); Data is the value, which may be a number, a
// double-quoted string, a base64 3dm model, or an openNURBS JSON encoding.
type TreeItem struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Param is a named input or output. InnerTree maps branch paths such as
// "{0;0}" to ordered item lists.
type Param struct {
	ParamName string                `json:"ParamName"`
	InnerTree map[string][]TreeItem `json:"InnerTree"`
}

// evaluateRequest is the POST /grasshopper payload. Algo is always null;
// Pointer names the definition as the compute server resolves it.
type evaluateRequest struct {
	Algo    *string `json:"algo"`
	Pointer string  `json:"pointer"`
	Values  []Param `json:"values"`
}

// Result is the compute server's response body.
type Result struct {
	Values []Param `json:"values"`
}
