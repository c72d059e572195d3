package compute

import (
	"encoding/json"
	"math"

	"ghbridge/internal/domain"
)

// rootBranch is the data-tree path inputs are appended to.
const rootBranch = "{0}"

// FormatParam wraps a Go value into a single-branch data tree with the .NET
// type the compute server expects. Whole floats are sent as Int32, matching
// how Grasshopper number slots behave. Unrepresentable values are an
// input_mapping_error: they are rejected here, before any network call.
func FormatParam(name string, value any) (Param, error) {
	var netType string
	var data any

	switch v := value.(type) {
	case string:
		netType, data = "System.String", v
	case bool:
		netType, data = "System.Boolean", v
	case int:
		netType, data = "System.Int32", v
	case int64:
		netType, data = "System.Int32", v
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			netType, data = "System.Int32", int64(v)
		} else {
			netType, data = "System.Double", v
		}
	default:
		return Param{}, domain.NewToolError(domain.KindInputMapping,
			"input %q: unsupported value type %T", name, value)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return Param{}, domain.WrapToolError(domain.KindInputMapping, err, "input %q", name)
	}
	return Param{
		ParamName: name,
		InnerTree: map[string][]TreeItem{
			rootBranch: {{Type: netType, Data: raw}},
		},
	}, nil
}
