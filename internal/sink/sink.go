// Package sink writes converted records and manages the source containers
// afterwards (backup copy and delete).
package sink

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"

	"github.com/backmassage/roflconv/internal/config"
)

const indent = "  "

// ErrBackupMismatch is returned by Verify when a backup does not restore to
// the bytes of its source.
var ErrBackupMismatch = errors.New("backup does not match source")

// WriteJSON encodes v with two-space indentation and a trailing newline.
// HTML characters are written as-is. The document is staged in a temp file
// next to path and renamed into place, so a crash never leaves a
// half-written output. It returns the number of bytes written.
func WriteJSON(path string, v any) (int64, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(v); err != nil {
		return 0, errors.Wrap(err, "encode json")
	}
	b := buf.Bytes()

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return 0, errors.Wrapf(err, "write %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		return 0, errors.Wrapf(err, "close %s", tmpName)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return 0, errors.Wrap(err, "chmod temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		return 0, errors.Wrapf(err, "rename to %s", path)
	}
	return int64(len(b)), nil
}

// BackupName returns the file name a backup of base gets under codec.
func BackupName(base string, codec config.BackupCodec) string {
	switch codec {
	case config.BackupCodecZstd:
		return base + ".zst"
	case config.BackupCodecLZ4:
		return base + ".lz4"
	default:
		return base
	}
}

// Backup copies src into dir, compressing it when codec asks for it. The
// returned path is the backup written.
func Backup(src, dir string, codec config.BackupCodec) (string, error) {
	dst := filepath.Join(dir, BackupName(filepath.Base(src), codec))

	in, err := os.Open(src)
	if err != nil {
		return "", errors.Wrap(err, "open backup source")
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return "", errors.Wrap(err, "create backup")
	}

	if err := copyEncoded(out, in, codec); err != nil {
		out.Close()
		os.Remove(dst)
		return "", errors.Wrapf(err, "backup %s", filepath.Base(src))
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return "", errors.Wrap(err, "close backup")
	}
	return dst, nil
}

func copyEncoded(w io.Writer, r io.Reader, codec config.BackupCodec) error {
	switch codec {
	case config.BackupCodecZstd:
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return err
		}
		if _, err := io.Copy(enc, r); err != nil {
			enc.Close()
			return err
		}
		return enc.Close()
	case config.BackupCodecLZ4:
		enc := lz4.NewWriter(w)
		if _, err := io.Copy(enc, r); err != nil {
			enc.Close()
			return err
		}
		return enc.Close()
	case config.BackupCodecNone, "":
		_, err := io.Copy(w, r)
		return err
	default:
		return errors.Errorf("unknown backup codec %q", codec)
	}
}

// Restore reverses Backup, writing the original bytes of a backup to w.
func Restore(w io.Writer, backup string, codec config.BackupCodec) error {
	f, err := os.Open(backup)
	if err != nil {
		return errors.Wrap(err, "open backup")
	}
	defer f.Close()

	switch codec {
	case config.BackupCodecZstd:
		dec, err := zstd.NewReader(f)
		if err != nil {
			return errors.Wrap(err, "zstd reader")
		}
		defer dec.Close()
		_, err = io.Copy(w, dec)
		return errors.Wrap(err, "zstd decode")
	case config.BackupCodecLZ4:
		_, err = io.Copy(w, lz4.NewReader(f))
		return errors.Wrap(err, "lz4 decode")
	default:
		_, err = io.Copy(w, f)
		return errors.Wrap(err, "copy backup")
	}
}

// Verify restores backup and checks that it hashes to the same SHA-256 as
// src. A backup that decodes to different bytes yields ErrBackupMismatch.
func Verify(src, backup string, codec config.BackupCodec) error {
	f, err := os.Open(src)
	if err != nil {
		return errors.Wrap(err, "open backup source")
	}
	defer f.Close()

	want := sha256.New()
	if _, err := io.Copy(want, f); err != nil {
		return errors.Wrap(err, "hash backup source")
	}
	got := sha256.New()
	if err := Restore(got, backup, codec); err != nil {
		return errors.Wrapf(err, "verify %s", filepath.Base(backup))
	}
	if !bytes.Equal(want.Sum(nil), got.Sum(nil)) {
		return errors.Wrapf(ErrBackupMismatch, "verify %s", filepath.Base(backup))
	}
	return nil
}

// Remove deletes the source container. It returns only once the file is
// gone.
func Remove(path string) error {
	if err := os.Remove(path); err != nil {
		return errors.Wrap(err, "delete source")
	}
	return nil
}
