package event

import (
	"path"
	"strings"
	"time"
)

// NameTransferComplete is the only event name strmrefresh reacts to.
const NameTransferComplete = "transfer.complete"

// IsTransferComplete reports whether name denotes a transfer-complete event.
// Empty names are treated as transfer-complete.
func IsTransferComplete(name string) bool {
	normalized := strings.NewReplacer(".", "", "_", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(name)))
	return normalized == "" || normalized == "transfercomplete"
}

// MediaType classifies the transferred media.
type MediaType string

const (
	MediaTypeUnknown MediaType = ""
	MediaTypeMovie   MediaType = "movie"
	MediaTypeTV      MediaType = "tv"
)

// ParseMediaType maps host labels (English or localized) onto MediaType.
func ParseMediaType(value string) MediaType {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "movie", "movies", "film", "电影":
		return MediaTypeMovie
	case "tv", "series", "show", "episode", "电视剧":
		return MediaTypeTV
	default:
		return MediaTypeUnknown
	}
}

// FileItem describes one file or directory in the host's storage layer.
type FileItem struct {
	Storage   string `json:"storage,omitempty"`
	Type      string `json:"type,omitempty"`
	Path      string `json:"path,omitempty"`
	Name      string `json:"name,omitempty"`
	Basename  string `json:"basename,omitempty"`
	Extension string `json:"extension,omitempty"`
	Size      int64  `json:"size,omitempty"`
}

// TransferInfo carries the source and destination of the moved media file.
type TransferInfo struct {
	Success       bool      `json:"success"`
	FileItem      *FileItem `json:"fileitem,omitempty"`
	TargetDirItem *FileItem `json:"target_diritem,omitempty"`
	TargetItem    *FileItem `json:"target_item,omitempty"`
	FileList      []string  `json:"file_list,omitempty"`
	FileListNew   []string  `json:"file_list_new,omitempty"`
	TransferType  string    `json:"transfer_type,omitempty"`
}

// MediaInfo is the recognized metadata of the transferred media.
type MediaInfo struct {
	Title    string    `json:"title"`
	Year     string    `json:"year,omitempty"`
	Type     MediaType `json:"type"`
	Category string    `json:"category,omitempty"`
	// Season is kept as text; hosts send numbers, strings, or nothing.
	Season string `json:"season,omitempty"`
}

// IsTV reports whether the media is episodic.
func (m *MediaInfo) IsTV() bool {
	return m != nil && m.Type == MediaTypeTV
}

// TransferEvent is one "transfer complete" notification.
type TransferEvent struct {
	ID           string        `json:"id"`
	Name         string        `json:"event"`
	ReceivedAt   time.Time     `json:"received_at"`
	TransferInfo *TransferInfo `json:"transferinfo,omitempty"`
	MediaInfo    *MediaInfo    `json:"mediainfo,omitempty"`
}

// TargetDir returns the resolved library directory of the transfer, or "".
func (e *TransferEvent) TargetDir() string {
	if e == nil || e.TransferInfo == nil || e.TransferInfo.TargetDirItem == nil {
		return ""
	}
	return strings.TrimSpace(e.TransferInfo.TargetDirItem.Path)
}

// FileName returns the transferred file name: the target item name, else the
// base of the first new file path, else the source item name.
func (e *TransferEvent) FileName() string {
	if e == nil || e.TransferInfo == nil {
		return ""
	}
	info := e.TransferInfo
	if info.TargetItem != nil {
		if name := strings.TrimSpace(info.TargetItem.Name); name != "" {
			return name
		}
	}
	for _, p := range info.FileListNew {
		if p = strings.TrimSpace(p); p != "" {
			return path.Base(p)
		}
	}
	if info.FileItem != nil {
		return strings.TrimSpace(info.FileItem.Name)
	}
	return ""
}

// Usable reports whether the event carries enough data to act on and, when it
// does not, a short reason.
func (e *TransferEvent) Usable() (bool, string) {
	switch {
	case e == nil:
		return false, "no payload"
	case !IsTransferComplete(e.Name):
		return false, "unsupported event " + e.Name
	case e.TransferInfo == nil:
		return false, "no transfer info"
	case e.TargetDir() == "":
		return false, "no target directory"
	}
	return true, ""
}

// Title returns the media title or "" when metadata is absent.
func (e *TransferEvent) Title() string {
	if e == nil || e.MediaInfo == nil {
		return ""
	}
	return e.MediaInfo.Title
}
