package match

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videofinder-bot/internal/storage"
)

// countingStore records how often the store is hit and can fail on demand.
type countingStore struct {
	*storage.Memory
	calls int
	err   error
}

func (s *countingStore) FindBySubstring(ctx context.Context, token string) ([]storage.Record, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.Memory.FindBySubstring(ctx, token)
}

func (s *countingStore) FindAll(ctx context.Context) ([]storage.Record, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.Memory.FindAll(ctx)
}

func newTestEngine(t *testing.T, recs ...storage.Record) (*Engine, *countingStore) {
	t.Helper()
	store := &countingStore{Memory: storage.NewMemory()}
	for _, rec := range recs {
		_, err := store.InsertIfAbsent(context.Background(), rec)
		require.NoError(t, err)
	}
	return NewEngine(store, zerolog.Nop()), store
}

var pushpaRecords = []storage.Record{
	{MessageID: 11, FileName: "Pushpa.e01.2021.1080p.mkv"},
	{MessageID: 12, FileName: "Pushpa.e01.2021.720p.mkv"},
	{MessageID: 13, FileName: "Pushpa.e02.2021.1080p.mkv"},
	{MessageID: 14, FileName: "Mahabharat.e267.2014.WEB-DL.1080p.mkv"},
}

func TestEngine_SearchGroupsByKey(t *testing.T) {
	engine, _ := newTestEngine(t, pushpaRecords...)

	plan, err := engine.Search(context.Background(), "pushpa")
	require.NoError(t, err)
	require.False(t, plan.NoResults())
	require.Len(t, plan.Groups, 2)

	assert.Equal(t, Group{
		Key:            "Pushpa - 1080P",
		Representative: 11,
		MessageIDs:     []int{11, 13},
		SupportsBulk:   true,
	}, plan.Groups[0])
	assert.Equal(t, Group{
		Key:            "Pushpa - 720P",
		Representative: 12,
		MessageIDs:     []int{12},
		SupportsBulk:   false,
	}, plan.Groups[1])

	g, ok := plan.Group("Pushpa - 720P")
	assert.True(t, ok)
	assert.Equal(t, 12, g.Representative)
	_, ok = plan.Group("Pushpa - 480P")
	assert.False(t, ok)
}

func TestEngine_SearchTrimsQuery(t *testing.T) {
	engine, _ := newTestEngine(t, pushpaRecords...)
	plan, err := engine.Search(context.Background(), "  MAHABHARAT \n")
	require.NoError(t, err)
	assert.Equal(t, "MAHABHARAT", plan.Query)
	require.Len(t, plan.Groups, 1)
	assert.Equal(t, "Mahabharat - 1080P", plan.Groups[0].Key)
}

func TestEngine_SearchEmptyQuery(t *testing.T) {
	engine, store := newTestEngine(t, pushpaRecords...)
	for _, q := range []string{"", "   ", "\t\n"} {
		plan, err := engine.Search(context.Background(), q)
		assert.ErrorIs(t, err, ErrEmptyQuery)
		assert.Nil(t, plan)
	}
	assert.Zero(t, store.calls)
}

func TestEngine_SearchNoResults(t *testing.T) {
	engine, _ := newTestEngine(t, pushpaRecords...)
	plan, err := engine.Search(context.Background(), "ramayan")
	require.NoError(t, err)
	assert.True(t, plan.NoResults())
	assert.Empty(t, plan.Groups)
}

func TestEngine_SearchStoreFailure(t *testing.T) {
	engine, store := newTestEngine(t)
	store.err = &storage.StoreError{Op: "find", Err: errors.New("disk I/O error")}

	_, err := engine.Search(context.Background(), "pushpa")
	assert.ErrorIs(t, err, storage.ErrUnavailable)
}

func TestBuildPlan_SameKeySameBucket(t *testing.T) {
	recs := []storage.Record{
		{MessageID: 1, FileName: "Show.e01.720p.mkv"},
		{MessageID: 2, FileName: "Other.e01.720p.mkv"},
		{MessageID: 3, FileName: "@tag Show.e02.720p.mkv"},
		{MessageID: 4, FileName: "Show.e03.720p.mkv"},
	}
	plan := BuildPlan("e0", recs)
	require.Len(t, plan.Groups, 2)
	assert.Equal(t, "Show - 720P", plan.Groups[0].Key)
	assert.Equal(t, []int{1, 3, 4}, plan.Groups[0].MessageIDs)
	assert.Equal(t, "Other - 720P", plan.Groups[1].Key)
	assert.Equal(t, []int{2}, plan.Groups[1].MessageIDs)
}

func TestBuildPlan_IsReproducible(t *testing.T) {
	first := BuildPlan("pushpa", pushpaRecords)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, BuildPlan("pushpa", pushpaRecords))
	}
}

func TestEngine_GroupMembers(t *testing.T) {
	engine, _ := newTestEngine(t, pushpaRecords...)

	members, err := engine.GroupMembers(context.Background(), "Pushpa - 1080P")
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, 11, members[0].MessageID)
	assert.Equal(t, 13, members[1].MessageID)

	members, err = engine.GroupMembers(context.Background(), "Nothing - 720P")
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestEngine_GroupKeys(t *testing.T) {
	engine, _ := newTestEngine(t, pushpaRecords...)
	keys, err := engine.GroupKeys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Pushpa - 1080P", "Pushpa - 720P", "Mahabharat - 1080P"}, keys)
}
