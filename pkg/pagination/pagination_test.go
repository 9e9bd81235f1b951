package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	createdAt := time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)
	id := uuid.New()

	encoded := EncodeCursor(Cursor{CreatedAt: createdAt, ID: id})
	decoded, err := ParseCursor(encoded)
	require.NoError(t, err)
	require.NotNil(t, decoded)
	require.True(t, decoded.CreatedAt.Equal(createdAt))
	require.Equal(t, id, decoded.ID)
}

func TestParseCursorEmptyMeansFirstPage(t *testing.T) {
	decoded, err := ParseCursor("   ")
	require.NoError(t, err)
	require.Nil(t, decoded)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	_, err := ParseCursor("not-base64!!")
	require.Error(t, err)

	_, err = ParseCursor("bm8gcGlwZSBoZXJl") // valid base64, no separator
	require.Error(t, err)
}

func TestNormalizeLimitBounds(t *testing.T) {
	require.Equal(t, DefaultLimit, NormalizeLimit(0))
	require.Equal(t, DefaultLimit, NormalizeLimit(-3))
	require.Equal(t, 10, NormalizeLimit(10))
	require.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+50))
	require.Equal(t, 11, LimitWithBuffer(10))
}
