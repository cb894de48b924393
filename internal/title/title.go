// Package title infers a series name and a quality tag from raw channel file
// names and combines them into the key used to group search results.
//
// Everything here is total: names that do not follow the usual
// "Series.e12.Year.Source.1080p.mkv" layout fall back to the whole cleaned
// name as the series and "Unknown" as the quality.
package title

import (
	"regexp"
	"strings"

	"videofinder-bot/internal/textclean"
)

// UnknownQuality is reported when a file name carries no known resolution.
const UnknownQuality = "Unknown"

// MaxGroupKeyLen bounds the length of a group key, in runes.
const MaxGroupKeyLen = 50

var (
	episodeMarker  = regexp.MustCompile(`(?i)^(.*?)\.e\d+\.`)
	qualityPattern = regexp.MustCompile(`(?i)(480p|720p|1080p)`)
)

// SeriesName returns everything before the first ".e<digits>." marker of the
// cleaned file name, or the whole cleaned name when there is no marker.
func SeriesName(fileName string) string {
	fileName = textclean.Clean(fileName)
	if m := episodeMarker.FindStringSubmatch(fileName); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(fileName)
}

// Quality returns the first 480p/720p/1080p tag in the raw file name,
// upper-cased.
func Quality(fileName string) string {
	if m := qualityPattern.FindString(fileName); m != "" {
		return strings.ToUpper(m)
	}
	return UnknownQuality
}

// GroupKey joins series and quality as "<series> - <quality>" and cuts the
// result at MaxGroupKeyLen runes. Distinct long names may collide after the
// cut; that merge is accepted.
func GroupKey(fileName string) string {
	key := SeriesName(fileName) + " - " + Quality(fileName)
	return truncate(key, MaxGroupKeyLen)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
