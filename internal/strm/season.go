package strm

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"strmrefresh/internal/event"
)

// SeasonSource records where a season number came from.
type SeasonSource string

const (
	SeasonNone     SeasonSource = ""
	SeasonMetadata SeasonSource = "metadata"
	SeasonFileName SeasonSource = "filename"
	// SeasonDefault means neither source produced a positive season and
	// "Season 0" was used.
	SeasonDefault SeasonSource = "default"
)

// seasonPattern matches "- S03" style markers in release names.
var seasonPattern = regexp.MustCompile(`-\s*[Ss](\d+)`)

// ResolveSeason determines the season number for TV media. Metadata is used
// when it parses as a positive integer; a positive number extracted from the
// file's base name overrides it. Non-TV media returns SeasonNone.
func ResolveSeason(media *event.MediaInfo, fileName string) (int, SeasonSource) {
	if !media.IsTV() {
		return 0, SeasonNone
	}

	season, source := 0, SeasonDefault
	if n, err := strconv.Atoi(strings.TrimSpace(media.Season)); err == nil && n > 0 {
		season, source = n, SeasonMetadata
	}
	if n := seasonFromName(fileName); n > 0 {
		season, source = n, SeasonFileName
	}
	return season, source
}

func seasonFromName(fileName string) int {
	if fileName == "" {
		return 0
	}
	match := seasonPattern.FindStringSubmatch(path.Base(fileName))
	if len(match) < 2 {
		return 0
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}
	return n
}

// FormatSeason renders a season folder segment with its trailing slash.
func FormatSeason(season int) string {
	return fmt.Sprintf("Season %d/", season)
}

// SeasonFolder returns "Season N/" for TV media and "" otherwise.
func SeasonFolder(media *event.MediaInfo, fileName string) string {
	season, source := ResolveSeason(media, fileName)
	if source == SeasonNone {
		return ""
	}
	return FormatSeason(season)
}
