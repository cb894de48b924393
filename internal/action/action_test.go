package action

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		name string
		in   Action
		data string
	}{
		{name: "single", in: Action{Kind: Single, MessageID: 267}, data: "s:267"},
		{name: "bulk keeps spaces", in: Action{Kind: Bulk, GroupKey: "Mahabharat - 1080P"}, data: "b:Mahabharat - 1080P"},
		{name: "refine keeps underscores", in: Action{Kind: RefineEpisode, GroupKey: "My_Show - 720P"}, data: "r:My_Show - 720P"},
		{name: "colon inside key", in: Action{Kind: Bulk, GroupKey: "Re:Zero - 720P"}, data: "b:Re:Zero - 720P"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := Encode(tt.in)
			assert.Equal(t, tt.data, data)
			got, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, tt.in, got)
		})
	}
}

func TestEncodeLongKeyUsesDigest(t *testing.T) {
	// 50 runes of Devanagari is 150 bytes, far past the callback limit.
	key := strings.Repeat("म", 50)
	data := Encode(Action{Kind: RefineEpisode, GroupKey: key})
	assert.LessOrEqual(t, len(data), MaxCallbackData)
	assert.True(t, strings.HasPrefix(data, "r#"))

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, RefineEpisode, got.Kind)
	assert.Empty(t, got.GroupKey)
	assert.Equal(t, Digest(key), got.Digest)
}

func TestEncodeKeyAtLimit(t *testing.T) {
	key := strings.Repeat("x", MaxCallbackData-2)
	assert.Equal(t, "b:"+key, Encode(Action{Kind: Bulk, GroupKey: key}))
	key += "x"
	assert.Equal(t, "b#"+Digest(key), Encode(Action{Kind: Bulk, GroupKey: key}))
}

func TestDecodeMalformed(t *testing.T) {
	for _, data := range []string{"", "s", "s:", "s:abc", "s:-1", "x:1", "b:", "b#short", "single_12", "close"} {
		_, err := Decode(data)
		assert.ErrorIs(t, err, ErrMalformed, "data %q", data)
	}
}

func TestDigestIsStable(t *testing.T) {
	assert.Equal(t, Digest("Pushpa - 1080P"), Digest("Pushpa - 1080P"))
	assert.NotEqual(t, Digest("Pushpa - 1080P"), Digest("Pushpa - 720P"))
	assert.Len(t, Digest("anything"), 16)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "single", Single.String())
	assert.Equal(t, "bulk", Bulk.String())
	assert.Equal(t, "refine", RefineEpisode.String())
	assert.Equal(t, "unknown", Kind(0).String())
}
