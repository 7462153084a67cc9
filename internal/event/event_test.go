package event_test

import (
	"strings"
	"testing"

	"strmrefresh/internal/event"
)

const envelopedPayload = `{
  "event": "transfer.complete",
  "data": {
    "transferinfo": {
      "success": true,
      "fileitem": {"storage": "local", "path": "/downloads/Show.S01E01.mkv", "name": "Show.S01E01.mkv"},
      "target_diritem": {"storage": "local", "path": "/Show/", "type": "dir"},
      "target_item": {"name": "Show - S01E01 - Pilot.mkv"},
      "file_list_new": ["/Show/Season 1/Show - S01E01 - Pilot.mkv"],
      "transfer_type": "move"
    },
    "mediainfo": {"title": "Show", "year": 2021, "type": "电视剧", "category": "国产剧", "season": 1}
  }
}`

func TestDecodeEnvelopedPayload(t *testing.T) {
	evt, err := event.Decode(strings.NewReader(envelopedPayload))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if evt.ID == "" {
		t.Fatal("expected generated id")
	}
	if evt.Name != event.NameTransferComplete {
		t.Fatalf("unexpected name %q", evt.Name)
	}
	if evt.TargetDir() != "/Show/" {
		t.Fatalf("unexpected target dir %q", evt.TargetDir())
	}
	if evt.FileName() != "Show - S01E01 - Pilot.mkv" {
		t.Fatalf("unexpected file name %q", evt.FileName())
	}
	media := evt.MediaInfo
	if media == nil || media.Type != event.MediaTypeTV || media.Year != "2021" || media.Season != "1" {
		t.Fatalf("unexpected media info %+v", media)
	}
	if ok, reason := evt.Usable(); !ok {
		t.Fatalf("expected usable event, got %q", reason)
	}
}

func TestDecodeBarePayloadKeepsID(t *testing.T) {
	payload := `{"id": "evt-7", "transferinfo": {"target_diritem": {"path": "/Movies/Film (2020)/"},
		"file_list_new": ["/Movies/Film (2020)/Film.mkv"]},
		"mediainfo": {"title": "Film", "year": "2020", "type": "Movie", "season": null}}`
	evt, err := event.Decode(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if evt.ID != "evt-7" {
		t.Fatalf("expected id from payload, got %q", evt.ID)
	}
	if evt.MediaInfo.Type != event.MediaTypeMovie || evt.MediaInfo.Season != "" {
		t.Fatalf("unexpected media info %+v", evt.MediaInfo)
	}
	if evt.FileName() != "Film.mkv" {
		t.Fatalf("expected base of first new file, got %q", evt.FileName())
	}
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	if _, err := event.Decode(strings.NewReader(`{"transferinfo": `)); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := event.Decode(strings.NewReader(`{"mediainfo": {"season": true}}`)); err == nil {
		t.Fatal("expected error for boolean season")
	}
}

func TestUsable(t *testing.T) {
	tests := []struct {
		name   string
		evt    *event.TransferEvent
		ok     bool
		reason string
	}{
		{name: "nil", evt: nil, reason: "no payload"},
		{name: "no transfer info", evt: &event.TransferEvent{}, reason: "no transfer info"},
		{
			name:   "no target dir",
			evt:    &event.TransferEvent{TransferInfo: &event.TransferInfo{TargetDirItem: &event.FileItem{}}},
			reason: "no target directory",
		},
		{
			name:   "other event",
			evt:    &event.TransferEvent{Name: "download.added", TransferInfo: &event.TransferInfo{TargetDirItem: &event.FileItem{Path: "/x/"}}},
			reason: "unsupported event",
		},
		{
			name: "usable",
			evt:  &event.TransferEvent{Name: "TransferComplete", TransferInfo: &event.TransferInfo{TargetDirItem: &event.FileItem{Path: "/x/"}}},
			ok:   true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ok, reason := tc.evt.Usable()
			if ok != tc.ok {
				t.Fatalf("Usable() = %v, want %v", ok, tc.ok)
			}
			if !strings.Contains(reason, tc.reason) {
				t.Fatalf("reason %q does not contain %q", reason, tc.reason)
			}
		})
	}
}

func TestFileNameFallsBackToSourceItem(t *testing.T) {
	evt := &event.TransferEvent{TransferInfo: &event.TransferInfo{FileItem: &event.FileItem{Name: "source.mkv"}}}
	if evt.FileName() != "source.mkv" {
		t.Fatalf("unexpected file name %q", evt.FileName())
	}
}

func TestParseMediaType(t *testing.T) {
	cases := map[string]event.MediaType{
		"movie":  event.MediaTypeMovie,
		"电影":     event.MediaTypeMovie,
		"TV":     event.MediaTypeTV,
		"series": event.MediaTypeTV,
		"电视剧":    event.MediaTypeTV,
		"music":  event.MediaTypeUnknown,
	}
	for input, want := range cases {
		if got := event.ParseMediaType(input); got != want {
			t.Fatalf("ParseMediaType(%q) = %q, want %q", input, got, want)
		}
	}
}
