// Package action encodes the buttons of a search result keyboard into
// Telegram callback data and back.
package action

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxCallbackData is Telegram's limit on callback_data, in bytes.
const MaxCallbackData = 64

// Kind is the button a user pressed.
type Kind int

const (
	Single Kind = iota + 1
	Bulk
	RefineEpisode
)

func (k Kind) String() string {
	switch k {
	case Single:
		return "single"
	case Bulk:
		return "bulk"
	case RefineEpisode:
		return "refine"
	default:
		return "unknown"
	}
}

// Action is a decoded button press. Single carries MessageID; Bulk and
// RefineEpisode carry GroupKey verbatim, or only Digest when the key was too
// long to fit in callback data.
type Action struct {
	Kind      Kind
	MessageID int
	GroupKey  string
	Digest    string
}

var ErrMalformed = errors.New("malformed callback data")

const digestLen = 16

var prefixes = map[Kind]string{Single: "s", Bulk: "b", RefineEpisode: "r"}

// Digest is the short stand-in for a group key in callback data.
func Digest(groupKey string) string {
	sum := sha1.Sum([]byte(groupKey))
	return hex.EncodeToString(sum[:])[:digestLen]
}

// Encode renders a as callback data no longer than MaxCallbackData bytes.
func Encode(a Action) string {
	p, ok := prefixes[a.Kind]
	if !ok {
		return ""
	}
	if a.Kind == Single {
		return p + ":" + strconv.Itoa(a.MessageID)
	}
	if data := p + ":" + a.GroupKey; len(data) <= MaxCallbackData {
		return data
	}
	return p + "#" + Digest(a.GroupKey)
}

// Decode parses callback data produced by Encode.
func Decode(data string) (Action, error) {
	if len(data) < 2 {
		return Action{}, fmt.Errorf("%w: %q", ErrMalformed, data)
	}
	var kind Kind
	for k, p := range prefixes {
		if strings.HasPrefix(data, p) {
			kind = k
			break
		}
	}
	if kind == 0 {
		return Action{}, fmt.Errorf("%w: %q", ErrMalformed, data)
	}
	sep, rest := data[1], data[2:]
	switch {
	case kind == Single && sep == ':':
		id, err := strconv.Atoi(rest)
		if err != nil || id <= 0 {
			return Action{}, fmt.Errorf("%w: %q", ErrMalformed, data)
		}
		return Action{Kind: Single, MessageID: id}, nil
	case kind != Single && sep == ':' && rest != "":
		return Action{Kind: kind, GroupKey: rest}, nil
	case kind != Single && sep == '#' && len(rest) == digestLen:
		return Action{Kind: kind, Digest: rest}, nil
	}
	return Action{}, fmt.Errorf("%w: %q", ErrMalformed, data)
}
