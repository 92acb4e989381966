package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"

	"github.com/backmassage/roflconv/internal/classify"
	"github.com/backmassage/roflconv/internal/config"
	"github.com/backmassage/roflconv/internal/display"
	"github.com/backmassage/roflconv/internal/journal"
	"github.com/backmassage/roflconv/internal/logging"
	"github.com/backmassage/roflconv/internal/patch"
	"github.com/backmassage/roflconv/internal/rofl"
	"github.com/backmassage/roflconv/internal/sink"
	"github.com/backmassage/roflconv/internal/transform"
)

// Parser decodes a replay container. rofl.Reader is the production
// implementation.
type Parser interface {
	ParseFile(path string) (*rofl.Container, error)
}

// dumper renders decoded metadata in verbose mode. Depth is capped so the
// participant list does not flood the log.
var dumper = spew.ConfigState{Indent: "  ", MaxDepth: 2, DisablePointerAddresses: true, SortKeys: true}

// verifyBackup checks a fresh backup before its source is deleted.
var verifyBackup = sink.Verify

// Run is the top-level batch entry point. It lists cfg.SourceDir, converts
// each container sequentially and returns aggregate stats. The error is
// non-nil only when the source folder cannot be listed.
func Run(ctx context.Context, cfg *config.Config, log *logging.Logger, parser Parser) (RunStats, error) {
	var stats RunStats

	entries, err := Discover(cfg.SourceDir)
	if err != nil {
		return stats, err
	}
	stats.Total = len(entries)

	jr := openJournal(cfg, log)
	if jr != nil {
		defer jr.Close()
	}

	logBatchHeader(cfg, log, &stats)

	for i, e := range entries {
		stats.Current = i + 1

		if ctx.Err() != nil {
			log.Warn("Interrupted")
			break
		}

		if !e.Container {
			log.Info("[%d/%d] Ignored (not a %s file): %s", stats.Current, stats.Total, config.ContainerExt, e.Name)
			stats.Ignored++
			continue
		}
		processFile(cfg, log, parser, jr, e, &stats)
	}

	logSummary(cfg, log, &stats)
	return stats, nil
}

// openJournal opens the configured journal. A journal that cannot be opened
// is reported and conversion proceeds without it. In dry-run mode a journal
// that does not exist yet is not created.
func openJournal(cfg *config.Config, log *logging.Logger) *journal.Journal {
	if cfg.JournalPath == "" {
		return nil
	}
	if cfg.DryRun {
		if _, err := os.Stat(cfg.JournalPath); err != nil {
			return nil
		}
	}
	jr, err := journal.Open(cfg.JournalPath)
	if err != nil {
		log.Fail(err, "Journal unavailable, continuing without it")
		return nil
	}
	return jr
}

// processFile handles one container: skip checks → patch → parse →
// transform → write → backup → delete → journal.
func processFile(
	cfg *config.Config,
	log *logging.Logger,
	parser Parser,
	jr *journal.Journal,
	e Entry,
	stats *RunStats,
) {
	log.Info("[%d/%d] %s", stats.Current, stats.Total, e.Name)
	defer fmt.Println()

	base := e.BaseName()
	outputPath := cfg.OutputPath(base)

	// --- Skip checks ---
	if cfg.SkipExisting {
		if _, err := os.Stat(outputPath); err == nil {
			log.Warn("Skip (exists): %s", filepath.Base(outputPath))
			stats.Skipped++
			return
		}
	}

	var sum string
	if jr != nil {
		var err error
		if sum, err = journal.HashFile(e.Path); err != nil {
			log.Fail(err, "Cannot read container")
			stats.Failed++
			return
		}
		if cfg.SkipConverted {
			done, err := jr.Converted(e.Name, sum)
			if err != nil {
				log.Fail(err, "Journal lookup failed")
			} else if done {
				log.Warn("Skip (already converted): %s", e.Name)
				stats.Skipped++
				return
			}
		}
	}

	// --- Convert ---
	start := time.Now()
	rec, c, version, err := convert(parser, e.Path, base)
	if err != nil {
		log.Fail(err, "Conversion failed: %s", e.Name)
		stats.Failed++
		return
	}
	if cfg.Verbose {
		log.Debug(true, "  Container: %s", DumpContainer(c))
	}
	if c.PayloadHeaderErr != nil {
		log.Warn("  Payload header unusable: %v", c.PayloadHeaderErr)
	}
	if version == "" {
		log.Warn("  No patch version found")
	} else {
		log.Debug(cfg.Verbose, "  Patch: %s", version)
	}
	tier := classify.Classify(base)
	log.Debug(cfg.Verbose, "  Official match: %d (%s)", int(tier), tier)

	var inSize int64
	if fi, err := os.Stat(e.Path); err == nil {
		inSize = fi.Size()
	}
	if c.Header != nil && int64(c.Header.FileLength) != inSize {
		log.Warn("  Header declares %d bytes, file has %d", c.Header.FileLength, inSize)
	}

	// --- Dry-run ---
	if cfg.DryRun {
		log.Success("[DRY] Would write %s", filepath.Base(outputPath))
		if cfg.BackupDir != "" {
			log.Info("[DRY] Would back up to %s", filepath.Join(cfg.BackupDir, sink.BackupName(e.Name, cfg.BackupCodec)))
		}
		if cfg.DeleteSource {
			log.Info("[DRY] Would delete %s", e.Name)
		}
		stats.Converted++
		return
	}

	// --- Write ---
	n, err := sink.WriteJSON(outputPath, rec)
	if err != nil {
		log.Fail(err, "Cannot write %s", filepath.Base(outputPath))
		stats.Failed++
		return
	}
	stats.Converted++
	stats.BytesIn += inSize
	stats.BytesOut += n
	log.Success("Wrote %s (%s) in %dms", filepath.Base(outputPath), display.FormatBytes(n), time.Since(start).Milliseconds())

	// --- Archive ---
	backupOK := true
	if cfg.BackupDir != "" {
		dst, err := sink.Backup(e.Path, cfg.BackupDir, cfg.BackupCodec)
		if err != nil {
			log.Fail(err, "Backup failed, keeping source")
			backupOK = false
		} else {
			stats.BackedUp++
			log.Info("  Backed up -> %s", dst)
			if cfg.DeleteSource {
				if err := verifyBackup(e.Path, dst, cfg.BackupCodec); err != nil {
					log.Fail(err, "Backup verification failed, keeping source")
					backupOK = false
				}
			}
		}
	}
	if cfg.DeleteSource && backupOK {
		if err := sink.Remove(e.Path); err != nil {
			log.Fail(err, "Cannot delete %s", e.Name)
		} else {
			stats.Deleted++
			log.Info("  Deleted %s", e.Name)
		}
	}

	// --- Journal ---
	if jr != nil {
		entry := &journal.Entry{
			SourceName: e.Name,
			SHA256:     sum,
			OutputPath: outputPath,
			Patch:      version,
			Tier:       int(tier),
			GameID:     int64(c.GameID()),
		}
		if err := jr.Record(entry); err != nil {
			log.Fail(err, "Journal update failed")
		}
	}
}

// convert produces the output document for one container. The patch
// version is "" when none was found.
func convert(parser Parser, path, base string) (transform.Record, *rofl.Container, string, error) {
	version, hasPatch := patch.FromFile(path)

	c, err := parser.ParseFile(path)
	if err != nil {
		return nil, nil, "", errors.Wrap(err, "parse")
	}
	if c == nil || c.Metadata == nil {
		return nil, nil, "", errors.New("parser returned no metadata")
	}

	rec := transform.Record(c.Metadata.Fields())
	transform.Transform(rec, base, version, hasPatch)
	return rec, c, version, nil
}

// DumpContainer renders c for debug output: the layout line, the payload
// header when there is one, then the metadata record.
func DumpContainer(c *rofl.Container) string {
	var b strings.Builder
	fmt.Fprintf(&b, "format %d", c.Format)
	if h := c.Header; h != nil {
		fmt.Fprintf(&b, ", %d bytes, metadata %d+%d, payload at %d",
			h.FileLength, h.MetadataOffset, h.MetadataLength, h.PayloadOffset)
	}
	b.WriteByte('\n')
	if p := c.PayloadHeader; p != nil {
		fmt.Fprintf(&b, "game %d: %dms, %d chunks, %d keyframes every %dms\n",
			p.GameID, p.GameLength, p.ChunkCount, p.KeyframeCount, p.KeyframeInterval)
	}
	b.WriteString(dumper.Sdump(c.Metadata))
	return b.String()
}

// --- Logging helpers ---

func logBatchHeader(cfg *config.Config, log *logging.Logger, stats *RunStats) {
	log.Info("Found %d entries in %s", stats.Total, cfg.SourceDir)
	log.Info("Output: %s", cfg.TargetDir)
	if cfg.BackupDir != "" {
		log.Info("Backup: %s (codec: %s)", cfg.BackupDir, cfg.BackupCodec)
	}
	if cfg.DeleteSource {
		log.Info("Sources: delete after conversion")
	}
	if cfg.JournalPath != "" {
		mode := "record"
		if cfg.SkipConverted {
			mode = "record, skip converted"
		}
		log.Info("Journal: %s (%s)", cfg.JournalPath, mode)
	}
	if cfg.DryRun {
		log.Info("Dry run: nothing will be written")
	}
	fmt.Println()
}

func logSummary(cfg *config.Config, log *logging.Logger, stats *RunStats) {
	log.Info("==============================")
	log.Info("Done: %d converted, %d skipped, %d failed, %d ignored",
		stats.Converted, stats.Skipped, stats.Failed, stats.Ignored)
	log.Info("Summary report:")
	log.Info("  Containers seen: %d", stats.Containers())

	if cfg.DryRun {
		log.Info("  Output size: n/a (dry run)")
		return
	}
	if cfg.BackupDir != "" {
		log.Info("  Backed up: %d", stats.BackedUp)
	}
	if cfg.DeleteSource {
		log.Info("  Deleted: %d", stats.Deleted)
	}
	if stats.Converted > 0 {
		log.Success("  Read %s of replays, wrote %s of JSON",
			display.FormatBytes(stats.BytesIn),
			display.FormatBytes(stats.BytesOut))
	}
}
