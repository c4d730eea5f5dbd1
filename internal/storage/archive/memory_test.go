package archive

import (
	"context"
	"errors"
	"testing"

	"github.com/newthinker/nseetl/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_RoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Write(ctx, "interim/ma_report_combined.csv", []byte("SECTOR\n")))

	got, err := m.Read(ctx, "interim/ma_report_combined.csv")
	require.NoError(t, err)
	assert.Equal(t, "SECTOR\n", string(got))

	ok, err := m.Exists(ctx, "interim/ma_report_combined.csv")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemory_ReadMissing(t *testing.T) {
	_, err := NewMemory().Read(context.Background(), "nope.csv")
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestMemory_ListByDirectory(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	m.Write(ctx, "raw/ma_report/MA040423.csv", nil)
	m.Write(ctx, "raw/ma_report/MA030423.csv", nil)
	m.Write(ctx, "raw/ma_report_old/MA010423.csv", nil)

	paths, err := m.List(ctx, "raw/ma_report")
	require.NoError(t, err)
	assert.Equal(t, []string{"raw/ma_report/MA030423.csv", "raw/ma_report/MA040423.csv"}, paths)
}

func TestMemory_WriteCopiesData(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	buf := []byte("abc")

	m.Write(ctx, "f", buf)
	buf[0] = 'x'

	got, _ := m.Read(ctx, "f")
	assert.Equal(t, "abc", string(got))
}

func TestMemory_Delete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	m.Write(ctx, "f", []byte("1"))
	require.NoError(t, m.Delete(ctx, "f"))

	ok, _ := m.Exists(ctx, "f")
	assert.False(t, ok)
}
