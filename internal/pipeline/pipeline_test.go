package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/roflconv/internal/config"
	"github.com/backmassage/roflconv/internal/journal"
	"github.com/backmassage/roflconv/internal/logging"
	"github.com/backmassage/roflconv/internal/rofl"
	"github.com/backmassage/roflconv/internal/sink"
)

const sampleMetadata = `{"gameLength":1834123,"gameVersion":"14.8.581.1234","lastGameChunkId":62,"lastKeyFrameId":30,` +
	`"statsJson":"[{\"NAME\":\"a\",\"WIN\":\"Win\"},{\"NAME\":\"b\",\"WIN\":\"Fail\"}]"}`

// --- helpers ---

func writeContainer(t *testing.T, dir, name string) []byte {
	t.Helper()
	data, err := rofl.Encode(rofl.FormatV2, []byte(sampleMetadata))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	return data
}

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
}

type fixture struct {
	cfg    config.Config
	source string
	target string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		cfg:    config.DefaultConfig(),
		source: filepath.Join(root, "in"),
		target: filepath.Join(root, "out"),
	}
	require.NoError(t, os.MkdirAll(f.source, 0o755))
	require.NoError(t, os.MkdirAll(f.target, 0o755))
	f.cfg.SourceDir = f.source
	f.cfg.TargetDir = f.target
	f.cfg.ColorMode = config.ColorNever
	return f
}

func (f *fixture) run(t *testing.T) RunStats {
	t.Helper()
	return f.runWith(t, context.Background(), rofl.Reader{})
}

func (f *fixture) runWith(t *testing.T, ctx context.Context, p Parser) RunStats {
	t.Helper()
	log, err := logging.NewLogger(&f.cfg)
	require.NoError(t, err)
	defer log.Close()

	stats, err := Run(ctx, &f.cfg, log, p)
	require.NoError(t, err)
	return stats
}

func readDoc(t *testing.T, path string) map[string]any {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(b, &doc))
	return doc
}

func listNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// --- Discover tests ---

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "b.rofl")
	touch(t, dir, "a.rofl")
	touch(t, dir, "notes.txt")
	touch(t, dir, "UPPER.ROFL")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.rofl"), 0o755))

	entries, err := Discover(dir)
	require.NoError(t, err)

	got := map[string]bool{}
	var order []string
	for _, e := range entries {
		got[e.Name] = e.Container
		order = append(order, e.Name)
	}
	assert.Equal(t, []string{"UPPER.ROFL", "a.rofl", "b.rofl", "dir.rofl", "notes.txt"}, order)
	assert.Equal(t, map[string]bool{
		"UPPER.ROFL": false,
		"a.rofl":     true,
		"b.rofl":     true,
		"dir.rofl":   false,
		"notes.txt":  false,
	}, got)
	assert.Equal(t, "a", entries[1].BaseName())
}

func TestDiscover_MissingDir(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

// --- Run tests ---

func TestRun_EndToEnd(t *testing.T) {
	f := newFixture(t)
	writeContainer(t, f.source, "1904_sample.rofl")
	touch(t, f.source, "notes.txt")

	stats := f.run(t)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Converted)
	assert.Equal(t, 1, stats.Ignored)
	assert.Zero(t, stats.Failed)
	assert.Positive(t, stats.BytesOut)

	assert.Equal(t, []string{"1904_sample.json"}, listNames(t, f.target))
	assert.ElementsMatch(t, []string{"1904_sample.rofl", "notes.txt"}, listNames(t, f.source))

	doc := readDoc(t, filepath.Join(f.target, "1904_sample.json"))
	assert.Equal(t, "1904_sample", doc["jsonFileName"])
	assert.EqualValues(t, 1, doc["officialMatch"])
	assert.Equal(t, "14.8.58", doc["patchVersion"])
	assert.EqualValues(t, 1834123, doc["gameDuration"])
	assert.NotContains(t, doc, "gameLength")
	assert.NotContains(t, doc, "statsJson")

	participants, ok := doc["participants"].([]any)
	require.True(t, ok)
	require.Len(t, participants, 2)
	assert.Equal(t, "TOP", participants[0].(map[string]any)["TRUE_POSITION"])
	assert.Equal(t, "JUNGLE", participants[1].(map[string]any)["TRUE_POSITION"])
}

func TestRun_Idempotent(t *testing.T) {
	f := newFixture(t)
	writeContainer(t, f.source, "2004_game.rofl")
	out := filepath.Join(f.target, "2004_game.json")

	f.run(t)
	first, err := os.ReadFile(out)
	require.NoError(t, err)

	f.run(t)
	second, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRun_FailureDoesNotAbortBatch(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.source, "0000_broken.rofl"), []byte("not a replay"), 0o644))
	writeContainer(t, f.source, "1705_ok.rofl")

	stats := f.run(t)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Converted)
	assert.Equal(t, []string{"1705_ok.json"}, listNames(t, f.target))

	doc := readDoc(t, filepath.Join(f.target, "1705_ok.json"))
	assert.EqualValues(t, 3, doc["officialMatch"])
}

func TestRun_BackupAndDelete(t *testing.T) {
	f := newFixture(t)
	orig := writeContainer(t, f.source, "1904_sample.rofl")
	f.cfg.BackupDir = t.TempDir()
	f.cfg.BackupCodec = config.BackupCodecZstd
	f.cfg.DeleteSource = true

	stats := f.run(t)
	assert.Equal(t, 1, stats.BackedUp)
	assert.Equal(t, 1, stats.Deleted)
	assert.Empty(t, listNames(t, f.source))

	backup := filepath.Join(f.cfg.BackupDir, "1904_sample.rofl.zst")
	var restored bytes.Buffer
	require.NoError(t, sink.Restore(&restored, backup, config.BackupCodecZstd))
	assert.Equal(t, orig, restored.Bytes())
}

func TestRun_DeleteSkippedWhenBackupFails(t *testing.T) {
	f := newFixture(t)
	writeContainer(t, f.source, "1904_sample.rofl")
	f.cfg.BackupDir = filepath.Join(t.TempDir(), "missing")
	f.cfg.DeleteSource = true

	stats := f.run(t)
	assert.Equal(t, 1, stats.Converted)
	assert.Zero(t, stats.BackedUp)
	assert.Zero(t, stats.Deleted)
	assert.Equal(t, []string{"1904_sample.rofl"}, listNames(t, f.source))
}

func TestRun_DeleteSkippedWhenVerifyFails(t *testing.T) {
	f := newFixture(t)
	writeContainer(t, f.source, "1904_sample.rofl")
	f.cfg.BackupDir = t.TempDir()
	f.cfg.DeleteSource = true

	saved := verifyBackup
	t.Cleanup(func() { verifyBackup = saved })
	var checked []string
	verifyBackup = func(src, backup string, codec config.BackupCodec) error {
		checked = append(checked, filepath.Base(backup))
		return sink.ErrBackupMismatch
	}

	stats := f.run(t)
	assert.Equal(t, 1, stats.BackedUp)
	assert.Zero(t, stats.Deleted)
	assert.Equal(t, []string{"1904_sample.rofl"}, checked)
	assert.Equal(t, []string{"1904_sample.rofl"}, listNames(t, f.source))
}

func TestRun_BackupNotVerifiedWithoutDelete(t *testing.T) {
	f := newFixture(t)
	writeContainer(t, f.source, "1904_sample.rofl")
	f.cfg.BackupDir = t.TempDir()

	saved := verifyBackup
	t.Cleanup(func() { verifyBackup = saved })
	verifyBackup = func(string, string, config.BackupCodec) error {
		t.Error("verify called without --delete")
		return nil
	}

	stats := f.run(t)
	assert.Equal(t, 1, stats.BackedUp)
}

func TestRun_DryRun(t *testing.T) {
	f := newFixture(t)
	writeContainer(t, f.source, "1904_sample.rofl")
	f.cfg.DryRun = true
	f.cfg.DeleteSource = true
	f.cfg.JournalPath = filepath.Join(t.TempDir(), "journal.db")

	stats := f.run(t)
	assert.Equal(t, 1, stats.Converted)
	assert.Empty(t, listNames(t, f.target))
	assert.Equal(t, []string{"1904_sample.rofl"}, listNames(t, f.source))
	_, err := os.Stat(f.cfg.JournalPath)
	assert.True(t, os.IsNotExist(err), "dry run does not create the journal")
}

func TestRun_SkipExisting(t *testing.T) {
	f := newFixture(t)
	writeContainer(t, f.source, "1904_sample.rofl")
	out := filepath.Join(f.target, "1904_sample.json")
	require.NoError(t, os.WriteFile(out, []byte("{}\n"), 0o644))
	f.cfg.SkipExisting = true

	stats := f.run(t)
	assert.Equal(t, 1, stats.Skipped)
	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(b))
}

func TestRun_JournalSkipConverted(t *testing.T) {
	f := newFixture(t)
	writeContainer(t, f.source, "1904_sample.rofl")
	f.cfg.JournalPath = filepath.Join(t.TempDir(), "journal.db")

	stats := f.run(t)
	require.Equal(t, 1, stats.Converted)

	out := filepath.Join(f.target, "1904_sample.json")
	require.NoError(t, os.Remove(out))
	f.cfg.SkipConverted = true

	stats = f.run(t)
	assert.Equal(t, 1, stats.Skipped)
	assert.Zero(t, stats.Converted)
	assert.NoFileExists(t, out)

	// A changed container is converted again.
	require.NoError(t, os.WriteFile(filepath.Join(f.source, "1904_sample.rofl"), mustEncode(t), 0o644))
	stats = f.run(t)
	assert.Equal(t, 1, stats.Converted)
	assert.Zero(t, stats.Skipped)
	assert.FileExists(t, out)
}

func TestRun_Cancelled(t *testing.T) {
	f := newFixture(t)
	writeContainer(t, f.source, "1904_sample.rofl")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stats := f.runWith(t, ctx, rofl.Reader{})
	assert.Zero(t, stats.Converted)
	assert.Empty(t, listNames(t, f.target))
}

func TestRun_ListingFailure(t *testing.T) {
	f := newFixture(t)
	f.cfg.SourceDir = filepath.Join(t.TempDir(), "missing")

	log, err := logging.NewLogger(&f.cfg)
	require.NoError(t, err)
	defer log.Close()

	_, err = Run(context.Background(), &f.cfg, log, rofl.Reader{})
	assert.Error(t, err)
}

type stubParser struct {
	c   *rofl.Container
	err error
}

func (s stubParser) ParseFile(string) (*rofl.Container, error) { return s.c, s.err }

func TestRun_ParserVariants(t *testing.T) {
	f := newFixture(t)
	touch(t, f.source, "3105_custom.rofl")

	stats := f.runWith(t, context.Background(), stubParser{err: errors.New("boom")})
	assert.Equal(t, 1, stats.Failed)

	stats = f.runWith(t, context.Background(), stubParser{})
	assert.Equal(t, 1, stats.Failed, "nil container is a failure")

	stats = f.runWith(t, context.Background(), stubParser{c: &rofl.Container{Format: rofl.FormatV2}})
	assert.Equal(t, 1, stats.Failed, "nil metadata is a failure")

	md := &rofl.Metadata{Extra: map[string]any{"custom": "kept"}}
	stats = f.runWith(t, context.Background(), stubParser{c: &rofl.Container{Format: rofl.FormatV2, Metadata: md}})
	require.Equal(t, 1, stats.Converted)
	doc := readDoc(t, filepath.Join(f.target, "3105_custom.json"))
	assert.Equal(t, map[string]any{
		"custom":        "kept",
		"jsonFileName":  "3105_custom",
		"officialMatch": float64(4),
	}, doc, "no patch, no renames when fields are absent")
}

func TestRun_NullStatsStayNull(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"bare null", `{"statsJson":null}`},
		{"encoded null", `{"statsJson":"null"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			data, err := rofl.Encode(rofl.FormatV2, []byte(tt.raw))
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(filepath.Join(f.source, "0305_null.rofl"), data, 0o644))

			stats := f.run(t)
			require.Equal(t, 1, stats.Converted)

			doc := readDoc(t, filepath.Join(f.target, "0305_null.json"))
			v, ok := doc["participants"]
			assert.True(t, ok, "renamed key is present")
			assert.Nil(t, v)
			assert.NotContains(t, doc, "statsJson")
		})
	}
}

func TestRun_JournalRecordsGameID(t *testing.T) {
	f := newFixture(t)
	touch(t, f.source, "1904_sample.rofl")
	f.cfg.JournalPath = filepath.Join(t.TempDir(), "journal.db")

	c := &rofl.Container{
		Format:        rofl.FormatV1,
		PayloadHeader: &rofl.PayloadHeader{GameID: 6612345678},
		Metadata:      &rofl.Metadata{},
	}
	stats := f.runWith(t, context.Background(), stubParser{c: c})
	require.Equal(t, 1, stats.Converted)

	jr, err := journal.Open(f.cfg.JournalPath)
	require.NoError(t, err)
	defer jr.Close()
	e, err := jr.Lookup("1904_sample.rofl")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, int64(6612345678), e.GameID)
}

func TestRun_UnusablePayloadHeaderStillConverts(t *testing.T) {
	f := newFixture(t)
	touch(t, f.source, "1904_sample.rofl")

	c := &rofl.Container{
		Format:           rofl.FormatV1,
		Metadata:         &rofl.Metadata{},
		PayloadHeaderErr: errors.Wrap(rofl.ErrTruncated, "payload header"),
	}
	stats := f.runWith(t, context.Background(), stubParser{c: c})
	assert.Equal(t, 1, stats.Converted)
	assert.Zero(t, stats.Failed)
}

func TestDumpContainer(t *testing.T) {
	tests := []struct {
		name    string
		format  rofl.Format
		want    []string
		without []string
	}{
		{"format 1", rofl.FormatV1, []string{"format 1, ", "payload at", "game 0:", "GameLength", "1834123"}, nil},
		{"format 2", rofl.FormatV2, []string{"format 2\n", "GameLength"}, []string{"game "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := rofl.Encode(tt.format, []byte(sampleMetadata))
			require.NoError(t, err)
			c, err := rofl.Decode(data)
			require.NoError(t, err)

			out := DumpContainer(c)
			for _, s := range tt.want {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.without {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func mustEncode(t *testing.T) []byte {
	t.Helper()
	data, err := rofl.Encode(rofl.FormatV1, []byte(sampleMetadata))
	require.NoError(t, err)
	return data
}
