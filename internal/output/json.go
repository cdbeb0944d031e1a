package output

import "fmt"

// NormalizeJSONValue rewrites CBOR-decoded values into shapes the JSON
// encoder accepts: map keys become strings and raw byte payloads are
// summarized, which keeps dumps readable when a part carries pixels.
func NormalizeJSONValue(value any) any {
	switch v := value.(type) {
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[fmt.Sprintf("%v", key)] = NormalizeJSONValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = NormalizeJSONValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = NormalizeJSONValue(item)
		}
		return out
	case []byte:
		return fmt.Sprintf("<%d bytes>", len(v))
	default:
		return v
	}
}
