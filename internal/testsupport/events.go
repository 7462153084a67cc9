package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// TransferPayload renders a host-style transfer.complete event. season may
// be nil to omit it.
func TransferPayload(t testing.TB, id, targetDir, fileName, mediaType string, season any) []byte {
	t.Helper()

	media := map[string]any{"title": "Example", "year": "2024", "type": mediaType}
	if season != nil {
		media["season"] = season
	}
	payload := map[string]any{
		"id":    id,
		"event": "transfer.complete",
		"data": map[string]any{
			"transferinfo": map[string]any{
				"success":        true,
				"target_diritem": map[string]any{"path": targetDir},
				"target_item":    map[string]any{"name": fileName},
			},
			"mediainfo": media,
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

// WriteEventFile writes payload into dir/name, creating dir.
func WriteEventFile(t testing.TB, dir, name string, payload []byte) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
