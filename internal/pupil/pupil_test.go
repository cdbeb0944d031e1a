package pupil

import (
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"

	"pupil-overlay-go/internal/types"
)

func marshalDatum(t *testing.T, m map[string]any) []byte {
	t.Helper()
	payload, err := cbor.Marshal(m)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	return payload
}

func TestDecodeDatum2D(t *testing.T) {
	payload := marshalDatum(t, map[string]any{
		"method": "2d c++",
		"ellipse": map[string]any{
			"center": []any{96.5, 84.25},
			"axes":   []any{30.0, 28.0},
			"angle":  -12.5,
		},
		"diameter":   30.0,
		"confidence": 0.97,
		"timestamp":  2203.5,
	})

	p2, p3, err := DecodeDatum("pupil.0", payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p3 != nil {
		t.Fatalf("2d datum produced a 3d result")
	}
	if p2 == nil {
		t.Fatalf("2d datum missing")
	}
	if p2.Topic != "pupil.0" || p2.Method != "2d c++" {
		t.Fatalf("unexpected identity: %q %q", p2.Topic, p2.Method)
	}
	if p2.Ellipse.Center != [2]float64{96.5, 84.25} {
		t.Fatalf("unexpected center %v", p2.Ellipse.Center)
	}
	if p2.Ellipse.Angle != -12.5 {
		t.Fatalf("unexpected angle %v", p2.Ellipse.Angle)
	}
	if p2.Confidence != 0.97 || p2.Timestamp != 2203.5 {
		t.Fatalf("unexpected confidence/timestamp %v %v", p2.Confidence, p2.Timestamp)
	}
}

func TestDecodeDatum3DWithSphere(t *testing.T) {
	payload := marshalDatum(t, map[string]any{
		"method": "pye3d 0.3.0 real-time",
		"ellipse": map[string]any{
			"center": []any{100.0, 90.0},
			"axes":   []any{25.0, 24.0},
			"angle":  80.0,
		},
		"confidence":       0.9,
		"model_confidence": 0.85,
		"diameter_3d":      4.2,
		"projected_sphere": map[string]any{
			"center": []any{96.0, 96.0},
			"axes":   []any{170.0, 170.0},
			"angle":  90.0,
		},
		"timestamp": 2203.51,
	})

	p2, p3, err := DecodeDatum("pupil.0.3d", payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p2 != nil {
		t.Fatalf("3d datum produced a 2d result")
	}
	if p3 == nil {
		t.Fatalf("3d datum missing")
	}
	if p3.ModelConfidence != 0.85 || p3.Diameter3D != 4.2 {
		t.Fatalf("unexpected model fields %v %v", p3.ModelConfidence, p3.Diameter3D)
	}
	if p3.Sphere == nil {
		t.Fatalf("projected sphere missing")
	}
	if p3.Sphere.Axes != [2]float64{170, 170} {
		t.Fatalf("unexpected sphere axes %v", p3.Sphere.Axes)
	}
}

func TestDecodeDatum3DWithoutSphere(t *testing.T) {
	payload := marshalDatum(t, map[string]any{
		"method": "3d c++",
		"ellipse": map[string]any{
			"center": []any{100.0, 90.0},
			"axes":   []any{25.0, 24.0},
			"angle":  80.0,
		},
		"confidence": 0.6,
		"timestamp":  10.0,
	})

	_, p3, err := DecodeDatum("pupil.0", payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p3 == nil || p3.Sphere != nil {
		t.Fatalf("expected 3d datum without sphere, got %#v", p3)
	}
}

func TestDecodeDatumRejectsBadEllipse(t *testing.T) {
	payload := marshalDatum(t, map[string]any{
		"method":     "2d c++",
		"confidence": 1.0,
	})
	if _, _, err := DecodeDatum("pupil.0", payload); err == nil {
		t.Fatalf("datum without ellipse decoded")
	}

	payload = marshalDatum(t, map[string]any{
		"method": "2d c++",
		"ellipse": map[string]any{
			"center": []any{1.0},
			"axes":   []any{2.0, 2.0},
			"angle":  0.0,
		},
	})
	if _, _, err := DecodeDatum("pupil.0", payload); err == nil {
		t.Fatalf("one-element center decoded")
	}
}

func TestSubscriberMaxAge(t *testing.T) {
	s := NewSubscriber()
	p2 := &types.Pupil2D{Confidence: 1, Timestamp: 5}
	s.store(p2, nil, time.Now().Add(-time.Second))

	if got, _ := s.Latest(500 * time.Millisecond); got != nil {
		t.Fatalf("stale datum returned")
	}
	if got, _ := s.Latest(2 * time.Second); got != p2 {
		t.Fatalf("fresh datum dropped")
	}
	if got, _ := s.Latest(0); got != p2 {
		t.Fatalf("age limit 0 filtered the datum")
	}
}

func TestRecordingNearest(t *testing.T) {
	var r Recording
	r.Add(&types.Pupil2D{Timestamp: 1.0}, nil)
	r.Add(&types.Pupil2D{Timestamp: 3.0}, nil)
	r.Add(&types.Pupil2D{Timestamp: 2.0}, nil)
	r.Add(nil, &types.Pupil3D{Timestamp: 2.05})
	r.Sort()

	p2, p3 := r.At(2.04, 0.1)
	if p2 == nil || p2.Timestamp != 2.0 {
		t.Fatalf("2d nearest = %#v, want ts 2.0", p2)
	}
	if p3 == nil || p3.Timestamp != 2.05 {
		t.Fatalf("3d nearest = %#v, want ts 2.05", p3)
	}

	p2, p3 = r.At(0.5, 0.2)
	if p2 != nil || p3 != nil {
		t.Fatalf("out-of-window datum returned: %#v %#v", p2, p3)
	}

	p2, _ = r.At(0.95, 0.1)
	if p2 == nil || p2.Timestamp != 1.0 {
		t.Fatalf("2d nearest = %#v, want ts 1.0", p2)
	}
}
