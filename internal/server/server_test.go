package server

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"pupil-overlay-go/internal/config"
	"pupil-overlay-go/internal/types"
)

func TestHandleConfig(t *testing.T) {
	srv := &Server{
		cfg: config.AppConfig{
			EyeID:         1,
			FrameEndpoint: "tcp://127.0.0.1:50114",
			PupilEndpoint: "tcp://127.0.0.1:50114",
			Port:          9999,
		},
	}

	req := httptest.NewRequest("GET", "/config", nil)
	rec := httptest.NewRecorder()
	srv.handleConfig(rec, req)

	if rec.Code != 200 {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if payload["eye_id"].(float64) != 1 {
		t.Fatalf("unexpected eye_id: %v", payload["eye_id"])
	}
	if payload["port"].(float64) != 9999 {
		t.Fatalf("unexpected port: %v", payload["port"])
	}
	if payload["frame_endpoint"].(string) != "tcp://127.0.0.1:50114" {
		t.Fatalf("unexpected frame_endpoint: %v", payload["frame_endpoint"])
	}
}

func TestHandleSettingsGet(t *testing.T) {
	srv := &Server{
		hooks: Hooks{
			Settings: func() types.OverlaySettings {
				return types.OverlaySettings{Scale: 2, RenderPupil: true, Alpha: 1}
			},
		},
	}

	req := httptest.NewRequest("GET", "/settings", nil)
	rec := httptest.NewRecorder()
	srv.handleSettings(rec, req)

	if rec.Code != 200 {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	var settings types.OverlaySettings
	if err := json.Unmarshal(rec.Body.Bytes(), &settings); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if settings.Scale != 2 || !settings.RenderPupil {
		t.Fatalf("unexpected settings: %+v", settings)
	}
}

func TestHandleSettingsPartialUpdate(t *testing.T) {
	current := types.OverlaySettings{Scale: 1, FlipHorizontal: true, RenderPupil: true, Alpha: 1}
	var applied types.OverlaySettings
	srv := &Server{
		hooks: Hooks{
			Settings:      func() types.OverlaySettings { return current },
			ApplySettings: func(s types.OverlaySettings) error { applied = s; return nil },
		},
	}

	req := httptest.NewRequest("POST", "/settings", strings.NewReader(`{"scale": 2.5}`))
	rec := httptest.NewRecorder()
	srv.handleSettings(rec, req)

	if rec.Code != 200 {
		t.Fatalf("unexpected status: %d, body %s", rec.Code, rec.Body.String())
	}
	if applied.Scale != 2.5 {
		t.Fatalf("scale = %v, want 2.5", applied.Scale)
	}
	if !applied.FlipHorizontal || !applied.RenderPupil {
		t.Fatalf("absent fields should keep current values: %+v", applied)
	}
}

func TestHandleSettingsRejected(t *testing.T) {
	srv := &Server{
		hooks: Hooks{
			Settings:      func() types.OverlaySettings { return types.OverlaySettings{Scale: 1, Alpha: 1} },
			ApplySettings: func(types.OverlaySettings) error { return errors.New("scale must be positive") },
		},
	}

	req := httptest.NewRequest("POST", "/settings", strings.NewReader(`{"scale": -1}`))
	rec := httptest.NewRecorder()
	srv.handleSettings(rec, req)

	if rec.Code != 400 {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["error"] == nil {
		t.Fatal("expected an error field")
	}
}

func TestHandleSettingsMethod(t *testing.T) {
	srv := &Server{hooks: Hooks{Settings: func() types.OverlaySettings { return types.OverlaySettings{} }}}

	req := httptest.NewRequest("DELETE", "/settings", nil)
	rec := httptest.NewRecorder()
	srv.handleSettings(rec, req)

	if rec.Code != 405 {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestHandleStatusMergesClients(t *testing.T) {
	srv := &Server{
		hooks: Hooks{
			Status: func() map[string]any {
				return map[string]any{
					"type":    "status",
					"metrics": map[string]any{"frames_rendered": 12},
				}
			},
		},
	}

	req := httptest.NewRequest("GET", "/status", nil)
	rec := httptest.NewRecorder()
	srv.handleStatus(rec, req)

	if rec.Code != 200 {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	metrics := payload["metrics"].(map[string]any)
	if metrics["ws_clients"].(float64) != 0 {
		t.Fatalf("unexpected ws_clients: %v", metrics["ws_clients"])
	}
	if metrics["frames_rendered"].(float64) != 12 {
		t.Fatalf("unexpected frames_rendered: %v", metrics["frames_rendered"])
	}
}
