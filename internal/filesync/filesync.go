// Package filesync decides whether freshly retrieved content should create,
// update or leave alone a destination file.
//
// Candidate content is always fully written to a staging file before any
// decision is taken, so a destination is never left half written by a
// failed fetch. There is no locking: a single writer is assumed.
package filesync

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
)

// Outcome is the sync decision for one destination.
type Outcome int

const (
	Unchanged Outcome = iota
	Created
	Updated
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Updated:
		return "updated"
	default:
		return "unchanged"
	}
}

// Changed reports whether the outcome modified the filesystem.
func (o Outcome) Changed() bool {
	return o == Created || o == Updated
}

// FileMode is the permission of a created destination. An updated
// destination keeps its own.
const FileMode os.FileMode = 0644

// Syncer stages candidates and moves them into place.
type Syncer struct {
	stagingDir string
}

// New creates a Syncer staging candidates in dir. An empty dir selects the
// system temporary directory.
func New(dir string) *Syncer {
	return &Syncer{stagingDir: dir}
}

// Stage writes content to a new staging file and returns its path.
func (s *Syncer) Stage(content []byte) (string, error) {
	f, err := os.CreateTemp(s.stagingDir, "exodep-*")
	if err != nil {
		return "", fmt.Errorf("stage candidate: %w", err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("stage candidate: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("stage candidate: %w", err)
	}
	return f.Name(), nil
}

// Sync moves the staged candidate to dst unless dst already holds the same
// bytes, in which case the candidate is discarded. The candidate never
// survives the call.
func (s *Syncer) Sync(candidate, dst string) (Outcome, error) {
	info, err := os.Stat(dst)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if dir := filepath.Dir(dst); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				os.Remove(candidate)
				return Unchanged, fmt.Errorf("create directory for %s: %w", dst, err)
			}
		}
		if err := placeAs(candidate, dst, FileMode); err != nil {
			return Unchanged, err
		}
		return Created, nil
	case err != nil:
		os.Remove(candidate)
		return Unchanged, fmt.Errorf("stat %s: %w", dst, err)
	case info.IsDir():
		os.Remove(candidate)
		return Unchanged, fmt.Errorf("destination %s is a directory", dst)
	}

	same, err := sameContent(candidate, dst)
	if err != nil {
		os.Remove(candidate)
		return Unchanged, err
	}
	if same {
		if err := os.Remove(candidate); err != nil {
			return Unchanged, fmt.Errorf("discard candidate: %w", err)
		}
		return Unchanged, nil
	}
	if err := placeAs(candidate, dst, info.Mode().Perm()); err != nil {
		return Unchanged, err
	}
	return Updated, nil
}

// placeAs sets the candidate's permissions and moves it to dst.
func placeAs(candidate, dst string, perm os.FileMode) error {
	if err := os.Chmod(candidate, perm); err != nil {
		os.Remove(candidate)
		return fmt.Errorf("set mode of %s: %w", dst, err)
	}
	if err := move(candidate, dst); err != nil {
		os.Remove(candidate)
		return err
	}
	return nil
}

// SyncBytes stages content and syncs it to dst.
func (s *Syncer) SyncBytes(content []byte, dst string) (Outcome, error) {
	candidate, err := s.Stage(content)
	if err != nil {
		return Unchanged, err
	}
	return s.Sync(candidate, dst)
}

// Digest returns the hex BLAKE3 digest of content.
func Digest(content []byte) string {
	sum := blake3.Sum256(content)
	return hex.EncodeToString(sum[:])
}

const compareChunk = 32 * 1024

func sameContent(a, b string) (bool, error) {
	ia, err := os.Stat(a)
	if err != nil {
		return false, fmt.Errorf("compare: %w", err)
	}
	ib, err := os.Stat(b)
	if err != nil {
		return false, fmt.Errorf("compare: %w", err)
	}
	if ia.Size() != ib.Size() {
		return false, nil
	}

	fa, err := os.Open(a)
	if err != nil {
		return false, fmt.Errorf("compare: %w", err)
	}
	defer fa.Close()
	fb, err := os.Open(b)
	if err != nil {
		return false, fmt.Errorf("compare: %w", err)
	}
	defer fb.Close()

	bufA := make([]byte, compareChunk)
	bufB := make([]byte, compareChunk)
	for {
		na, errA := io.ReadFull(fa, bufA)
		nb, errB := io.ReadFull(fb, bufB)
		if !bytes.Equal(bufA[:na], bufB[:nb]) {
			return false, nil
		}
		doneA := errA == io.EOF || errA == io.ErrUnexpectedEOF
		doneB := errB == io.EOF || errB == io.ErrUnexpectedEOF
		if doneA || doneB {
			return doneA && doneB, nil
		}
		if errA != nil {
			return false, fmt.Errorf("compare: %w", errA)
		}
		if errB != nil {
			return false, fmt.Errorf("compare: %w", errB)
		}
	}
}
