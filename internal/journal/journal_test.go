package journal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordLookup(t *testing.T) {
	j := openTest(t)
	at := time.Date(2024, 4, 19, 12, 30, 0, 0, time.UTC)

	e := &Entry{
		SourceName:  "1904_sample.rofl",
		SHA256:      "abc",
		OutputPath:  "/out/1904_sample.json",
		Patch:       "14.8.1",
		Tier:        1,
		GameID:      4512345678,
		ConvertedAt: at,
	}
	require.NoError(t, j.Record(e))

	got, err := j.Lookup("1904_sample.rofl")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "abc", got.SHA256)
	assert.Equal(t, "/out/1904_sample.json", got.OutputPath)
	assert.Equal(t, "14.8.1", got.Patch)
	assert.Equal(t, 1, got.Tier)
	assert.Equal(t, int64(4512345678), got.GameID)
	assert.True(t, at.Equal(got.ConvertedAt), "got %v", got.ConvertedAt)

	missing, err := j.Lookup("other.rofl")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRecord_Upsert(t *testing.T) {
	j := openTest(t)
	require.NoError(t, j.Record(&Entry{SourceName: "a.rofl", SHA256: "one", OutputPath: "a.json"}))
	require.NoError(t, j.Record(&Entry{SourceName: "a.rofl", SHA256: "two", OutputPath: "a.json", Tier: 3, GameID: 7}))

	got, err := j.Lookup("a.rofl")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "two", got.SHA256)
	assert.Equal(t, 3, got.Tier)
	assert.Equal(t, int64(7), got.GameID)
	assert.False(t, got.ConvertedAt.IsZero(), "zero time is filled in")
}

func TestConverted(t *testing.T) {
	j := openTest(t)
	require.NoError(t, j.Record(&Entry{SourceName: "a.rofl", SHA256: "same", OutputPath: "a.json"}))

	ok, err := j.Converted("a.rofl", "same")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = j.Converted("a.rofl", "changed")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = j.Converted("b.rofl", "same")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j.Record(&Entry{SourceName: "a.rofl", SHA256: "x", OutputPath: "a.json"}))
	require.NoError(t, j.Close())

	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()
	got, err := j.Lookup("a.rofl")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.rofl")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	sum, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", sum)

	_, err = HashFile(path + ".missing")
	assert.Error(t, err)
}
