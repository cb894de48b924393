// Package dialog runs the two-step episode refinement: a user picks a group,
// then types a token that narrows the group to matching episodes.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"videofinder-bot/internal/session"
	"videofinder-bot/internal/storage"
	"videofinder-bot/internal/textclean"
)

// ErrNotAwaiting is returned by Resolve when the session has no pending group.
var ErrNotAwaiting = errors.New("no episode search in progress")

// GroupSource lists every stored member of a group.
type GroupSource interface {
	GroupMembers(ctx context.Context, key string) ([]storage.Record, error)
}

// Resolution is the outcome of one refinement round trip.
type Resolution struct {
	Group string
	Token string
	Items []storage.Record
	// Fallback is set when the token matched nothing and Items holds the
	// whole group.
	Fallback bool
	Notice   string
}

// Machine moves sessions between idle and awaiting an episode token.
type Machine struct {
	sessions session.Store
	groups   GroupSource
	logger   zerolog.Logger
}

func NewMachine(sessions session.Store, groups GroupSource, logger zerolog.Logger) *Machine {
	return &Machine{
		sessions: sessions,
		groups:   groups,
		logger:   logger.With().Str("component", "dialog").Logger(),
	}
}

// Prompt is shown when a session starts waiting for a token.
func Prompt(group string) string {
	return fmt.Sprintf("Enter the episode number (or part of it) for series '%s':", group)
}

// FallbackNotice is shown when a token matched no member of the group.
func FallbackNotice(token, group string) string {
	return fmt.Sprintf("No episode matching '%s' found for series '%s'.\nSending all episodes instead.", token, group)
}

// BeginRefine puts the session into the awaiting state for group and
// returns the prompt for the user. A previous pending group is replaced.
func (m *Machine) BeginRefine(ctx context.Context, key session.Key, group string) (string, error) {
	if err := m.sessions.SetPending(ctx, key, group); err != nil {
		return "", err
	}
	m.logger.Debug().Str("session", string(key)).Str("group", group).Msg("awaiting episode token")
	return Prompt(group), nil
}

// Pending reports whether the session is waiting for a token, and for which
// group.
func (m *Machine) Pending(ctx context.Context, key session.Key) (string, bool, error) {
	return m.sessions.Pending(ctx, key)
}

// Resolve consumes the pending group and filters its members by token. The
// session is idle afterwards whatever the outcome, including errors.
func (m *Machine) Resolve(ctx context.Context, key session.Key, token string) (*Resolution, error) {
	group, ok, err := m.sessions.Take(ctx, key)
	if err != nil {
		// make sure a flaky Take does not leave the dialog stuck
		_ = m.sessions.Clear(ctx, key)
		return nil, err
	}
	if !ok {
		return nil, ErrNotAwaiting
	}

	token = strings.ToLower(strings.TrimSpace(token))
	members, err := m.groups.GroupMembers(ctx, group)
	if err != nil {
		return nil, err
	}

	res := &Resolution{Group: group, Token: token}
	for _, rec := range members {
		if textclean.ContainsFold(rec.FileName, token) || textclean.ContainsFold(rec.Caption, token) {
			res.Items = append(res.Items, rec)
		}
	}
	if len(res.Items) == 0 {
		res.Items = members
		res.Fallback = true
		res.Notice = FallbackNotice(token, group)
	}
	m.logger.Debug().
		Str("session", string(key)).
		Str("group", group).
		Str("token", token).
		Int("members", len(members)).
		Int("selected", len(res.Items)).
		Bool("fallback", res.Fallback).
		Msg("episode token resolved")
	return res, nil
}
