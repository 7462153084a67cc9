package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// wire mirrors the loosely typed host payload.
type wire struct {
	ID           string          `json:"id"`
	Event        string          `json:"event"`
	Data         json.RawMessage `json:"data"`
	TransferInfo *TransferInfo   `json:"transferinfo"`
	MediaInfo    *wireMedia      `json:"mediainfo"`
}

type wireMedia struct {
	Title    string      `json:"title"`
	Year     looseString `json:"year"`
	Type     string      `json:"type"`
	Category string      `json:"category"`
	Season   looseString `json:"season"`
}

// looseString decodes a JSON string, number, or null into text.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(strings.TrimSpace(v))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	if f, err := n.Float64(); err == nil && f == float64(int64(f)) {
		*s = looseString(strconv.FormatInt(int64(f), 10))
		return nil
	}
	*s = looseString(n.String())
	return nil
}

// Decode reads one transfer event. Both the enveloped form
// {"event": ..., "data": {"transferinfo": ..., "mediainfo": ...}} and the bare
// form are accepted. Events without an id are assigned a random one.
func Decode(r io.Reader) (*TransferEvent, error) {
	var outer wire
	dec := json.NewDecoder(r)
	if err := dec.Decode(&outer); err != nil {
		return nil, fmt.Errorf("decode transfer event: %w", err)
	}

	body := outer
	if len(outer.Data) > 0 && !bytes.Equal(bytes.TrimSpace(outer.Data), []byte("null")) {
		var inner wire
		if err := json.Unmarshal(outer.Data, &inner); err != nil {
			return nil, fmt.Errorf("decode transfer event data: %w", err)
		}
		body = inner
	}

	evt := &TransferEvent{
		ID:           strings.TrimSpace(outer.ID),
		Name:         strings.TrimSpace(outer.Event),
		ReceivedAt:   time.Now().UTC(),
		TransferInfo: body.TransferInfo,
	}
	if evt.ID == "" {
		evt.ID = strings.TrimSpace(body.ID)
	}
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Name == "" {
		evt.Name = NameTransferComplete
	}
	if m := body.MediaInfo; m != nil {
		evt.MediaInfo = &MediaInfo{
			Title:    strings.TrimSpace(m.Title),
			Year:     string(m.Year),
			Type:     ParseMediaType(m.Type),
			Category: strings.TrimSpace(m.Category),
			Season:   string(m.Season),
		}
	}
	return evt, nil
}
