package strm

import (
	"errors"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"strmrefresh/internal/event"
)

// Options is the pointer-file configuration.
type Options struct {
	Root             string
	RemoteBaseURL    string
	NormalizeUnicode bool
}

// Enabled reports whether pointer files should be written.
func (o Options) Enabled() bool {
	return strings.TrimSpace(o.Root) != ""
}

// Plan is a fully computed pointer file.
type Plan struct {
	Dir          string       `json:"dir"`
	Path         string       `json:"path"`
	Content      string       `json:"content"`
	Season       string       `json:"season,omitempty"`
	SeasonSource SeasonSource `json:"season_source,omitempty"`
}

// Content builds the pointer-file content. The remote base is used exactly as
// given, so callers control whether a separator sits between base and target.
func Content(remoteBase, targetDir, season, fileName string) string {
	return remoteBase + strings.TrimLeft(dirSegment(targetDir), "/") + season + fileName
}

// Dir returns the local directory holding the pointer file.
func Dir(root, targetDir, season string) string {
	return filepath.Join(root, dirSegment(targetDir), season)
}

// FileName strips everything after the last "." and appends ".strm".
func FileName(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[:idx]
	}
	return name + ".strm"
}

func dirSegment(targetDir string) string {
	if targetDir == "" || strings.HasSuffix(targetDir, "/") {
		return targetDir
	}
	return targetDir + "/"
}

// Reasons Build declines to produce a plan.
var (
	ErrDisabled    = errors.New("strm root not configured")
	ErrNoFileName  = errors.New("event has no target directory or file name")
	ErrOutsideRoot = errors.New("strm path escapes strm root")
)

// Build computes the pointer file for an event. The resulting path always
// lies under opts.Root; events whose target directory or file name climb
// out of it are refused with ErrOutsideRoot.
func Build(opts Options, evt *event.TransferEvent) (Plan, error) {
	if !opts.Enabled() {
		return Plan{}, ErrDisabled
	}
	targetDir := evt.TargetDir()
	fileName := evt.FileName()
	if targetDir == "" || fileName == "" {
		return Plan{}, ErrNoFileName
	}

	season, source := ResolveSeason(evt.MediaInfo, fileName)
	folder := ""
	if source != SeasonNone {
		folder = FormatSeason(season)
		// Hosts that already place episodes in the season directory report
		// it as the target; do not nest it twice.
		if strings.HasSuffix(dirSegment(targetDir), "/"+folder) {
			folder = ""
		}
	}

	dir := Dir(opts.Root, targetDir, folder)
	plan := Plan{
		Dir:          dir,
		Path:         filepath.Join(dir, FileName(fileName)),
		Content:      Content(opts.RemoteBaseURL, targetDir, folder, fileName),
		SeasonSource: source,
	}
	if source != SeasonNone {
		plan.Season = FormatSeason(season)
	}
	if opts.NormalizeUnicode {
		plan.Dir = norm.NFC.String(plan.Dir)
		plan.Path = norm.NFC.String(plan.Path)
		plan.Content = norm.NFC.String(plan.Content)
	}
	if !within(opts.Root, plan.Path) {
		return Plan{}, ErrOutsideRoot
	}
	return plan, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
