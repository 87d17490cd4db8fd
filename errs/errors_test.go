package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorMatchesSentinel(t *testing.T) {
	err := New(KindOutOfBounds, 17, "need 4 bytes")
	require.ErrorIs(t, err, ErrOutOfBounds)
	require.NotErrorIs(t, err, ErrUnknownTag)
}

func TestWrappedErrorKeepsIdentity(t *testing.T) {
	err := fmt.Errorf("decoding row 3: %w", New(KindDuplicateKey, 9, "key \"a\" repeats"))
	require.ErrorIs(t, err, ErrDuplicateKey)
	require.Equal(t, KindDuplicateKey, KindOf(err))
	require.Equal(t, 9, OffsetOf(err))
}

func TestKindOfForeignError(t *testing.T) {
	require.Equal(t, Kind(0), KindOf(errors.New("not ours")))
	require.Equal(t, -1, OffsetOf(errors.New("not ours")))
}

func TestErrorString(t *testing.T) {
	err := New(KindLengthMismatch, 42, "declared 10, got 3")
	require.Equal(t, "LengthMismatch at offset 42: declared 10, got 3", err.Error())

	err = New(KindUnknownTag, 0, "tag byte 0xc1")
	require.Equal(t, "UnknownTag: tag byte 0xc1", err.Error())
}

func TestKindStrings(t *testing.T) {
	kinds := []Kind{
		KindOutOfBounds, KindUnknownTag, KindInvalidUTF8, KindDepthExceeded,
		KindKeyOrder, KindDuplicateKey, KindLengthMismatch, KindUnsupportedVersion,
		KindUnsupportedAlgorithm, KindDecompressionBomb, KindInvalidExtension, KindTrailingBytes,
	}
	seen := make(map[string]bool)
	for _, k := range kinds {
		s := k.String()
		require.NotEqual(t, "Unknown", s)
		require.False(t, seen[s], "duplicate kind name %q", s)
		seen[s] = true
	}
	require.Equal(t, "Unknown", Kind(99).String())
}
