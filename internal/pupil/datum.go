// Package pupil supplies detection data to the overlay renderer: a live
// subscriber on the Capture IPC and a timestamp-indexed recording for
// offline re-rendering.
package pupil

import (
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"pupil-overlay-go/internal/types"
)

// DecodeDatum maps one pupil message onto a 2D or 3D datum. The method
// field decides the kind: anything carrying "3d" is a model datum, the
// rest are plain 2D detections. Exactly one of the results is non-nil on
// success.
func DecodeDatum(topic string, payload []byte) (*types.Pupil2D, *types.Pupil3D, error) {
	var m map[string]any
	if err := cbor.Unmarshal(payload, &m); err != nil {
		return nil, nil, fmt.Errorf("datum decode: %w", err)
	}

	method, _ := m["method"].(string)
	ellipse, err := toEllipse(m["ellipse"])
	if err != nil {
		return nil, nil, fmt.Errorf("datum ellipse: %w", err)
	}
	confidence, _ := toFloat(m["confidence"])
	timestamp, _ := toFloat(m["timestamp"])

	if strings.Contains(method, "3d") {
		p3 := &types.Pupil3D{
			Topic:      topic,
			Method:     method,
			Ellipse:    ellipse,
			Confidence: confidence,
			Timestamp:  timestamp,
		}
		p3.ModelConfidence, _ = toFloat(m["model_confidence"])
		p3.Diameter3D, _ = toFloat(m["diameter_3d"])
		// The projected sphere is optional and may be malformed while the
		// eye model settles; drop it rather than the datum.
		if sphere, err := toEllipse(m["projected_sphere"]); err == nil {
			p3.Sphere = &sphere
		}
		return nil, p3, nil
	}

	p2 := &types.Pupil2D{
		Topic:      topic,
		Method:     method,
		Ellipse:    ellipse,
		Confidence: confidence,
		Timestamp:  timestamp,
	}
	p2.Diameter, _ = toFloat(m["diameter"])
	return p2, nil, nil
}

func toEllipse(v any) (types.Ellipse, error) {
	m, ok := toMap(v)
	if !ok {
		return types.Ellipse{}, fmt.Errorf("ellipse is %T", v)
	}
	center, err := toPair(m["center"])
	if err != nil {
		return types.Ellipse{}, fmt.Errorf("center: %w", err)
	}
	axes, err := toPair(m["axes"])
	if err != nil {
		return types.Ellipse{}, fmt.Errorf("axes: %w", err)
	}
	angle, err := toFloat(m["angle"])
	if err != nil {
		return types.Ellipse{}, fmt.Errorf("angle: %w", err)
	}
	return types.Ellipse{Center: center, Axes: axes, Angle: angle}, nil
}

// toMap accepts both map shapes the CBOR decoder produces for nested
// objects.
func toMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			s, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[s] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func toPair(v any) ([2]float64, error) {
	items, ok := v.([]any)
	if !ok || len(items) != 2 {
		return [2]float64{}, fmt.Errorf("expected two-element array, got %T", v)
	}
	x, err := toFloat(items[0])
	if err != nil {
		return [2]float64{}, err
	}
	y, err := toFloat(items[1])
	if err != nil {
		return [2]float64{}, err
	}
	return [2]float64{x, y}, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("unsupported float type %T", v)
	}
}
