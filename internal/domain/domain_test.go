package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevelFor(t *testing.T) {
	cases := map[int]int{
		-20:  1,
		0:    1,
		99:   1,
		100:  2,
		249:  2,
		250:  3,
		999:  4,
		1000: 5,
		5000: 5,
	}
	for points, want := range cases {
		require.Equal(t, want, LevelFor(points), "points=%d", points)
	}
	require.Equal(t, "Leyenda 360", LevelName(5))
	require.Equal(t, "Turista", LevelName(42))
}

func TestParseActionKind(t *testing.T) {
	for _, k := range AllActionKinds() {
		got, err := ParseActionKind(string(k))
		require.NoError(t, err)
		require.Equal(t, k, got)
	}
	_, err := ParseActionKind("share_pin")
	require.Error(t, err)

	require.True(t, ActionCommentPin.Counted())
	require.False(t, ActionReceiveLike.Counted())
}
