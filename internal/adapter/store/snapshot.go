package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"docqa/internal/domain"
)

const (
	VectorsFile = "vectors.bin"
	ChunksFile  = "chunks.db"
)

// Snapshot is everything a persisted index holds.
type Snapshot struct {
	Manifest domain.Manifest
	Chunks   []domain.Chunk
	Vectors  []byte
}

// Write persists snap into dir, replacing whatever was there. The new index
// is assembled in a staging directory beside dir and renamed into place, so
// a failed write leaves the previous index untouched and no staging files.
func Write(dir string, snap *Snapshot) (err error) {
	dir = filepath.Clean(dir)
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	staging, err := os.MkdirTemp(parent, "."+filepath.Base(dir)+".staging-*")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer func() {
		if err != nil {
			os.RemoveAll(staging)
		}
	}()

	m := snap.Manifest
	m.SchemaVersion = CurrentSchemaVersion
	m.ChunkCount = len(snap.Chunks)
	m.VectorChecksum = Checksum(snap.Vectors)

	if err := writeSynced(filepath.Join(staging, VectorsFile), snap.Vectors); err != nil {
		return fmt.Errorf("failed to write vectors: %w", err)
	}

	cs, err := CreateChunkStore(filepath.Join(staging, ChunksFile))
	if err != nil {
		return err
	}
	if err := cs.PutChunks(snap.Chunks); err != nil {
		cs.Close()
		return fmt.Errorf("failed to write chunks: %w", err)
	}
	if err := cs.PutManifest(m); err != nil {
		cs.Close()
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := cs.Close(); err != nil {
		return err
	}

	if err := swap(staging, dir); err != nil {
		return fmt.Errorf("failed to install index: %w", err)
	}
	snap.Manifest = m
	return nil
}

func writeSynced(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// swap moves staging to dir. An existing dir is parked under a backup name
// and restored if the final rename fails.
func swap(staging, dir string) error {
	backup := ""
	info, err := os.Stat(dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return fmt.Errorf("%s exists and is not a directory", dir)
		}
		backup = fmt.Sprintf("%s.old-%d", dir, time.Now().UnixNano())
		if err := os.Rename(dir, backup); err != nil {
			return err
		}
	case !os.IsNotExist(err):
		return err
	}

	if err := os.Rename(staging, dir); err != nil {
		if backup != "" {
			os.Rename(backup, dir)
		}
		return err
	}

	if backup != "" {
		return os.RemoveAll(backup)
	}
	return nil
}

// Read loads and verifies the index persisted in dir. Every failure wraps
// domain.ErrIndexNotFound.
func Read(dir string) (snap *Snapshot, err error) {
	defer func() {
		// bbolt panics on some corrupt page layouts
		if r := recover(); r != nil {
			snap = nil
			err = fmt.Errorf("%w: %s: corrupt index: %v", domain.ErrIndexNotFound, dir, r)
		}
	}()

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, dir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrIndexNotFound, dir)
	}

	m, chunks, err := readChunkStore(filepath.Join(dir, ChunksFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrIndexNotFound, dir, err)
	}

	vectors, err := os.ReadFile(filepath.Join(dir, VectorsFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrIndexNotFound, dir, err)
	}

	if err := CheckManifest(m, chunks, vectors); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrIndexNotFound, dir, err)
	}

	return &Snapshot{Manifest: m, Chunks: chunks, Vectors: vectors}, nil
}

// ReadManifest loads only the manifest, for inspection.
func ReadManifest(dir string) (domain.Manifest, error) {
	path := filepath.Join(dir, ChunksFile)
	if _, err := os.Stat(path); err != nil {
		return domain.Manifest{}, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, dir)
	}
	cs, err := OpenChunkStore(path)
	if err != nil {
		return domain.Manifest{}, fmt.Errorf("%w: %s: %v", domain.ErrIndexNotFound, dir, err)
	}
	defer cs.Close()

	m, err := cs.Manifest()
	if err != nil {
		return domain.Manifest{}, fmt.Errorf("%w: %s: %v", domain.ErrIndexNotFound, dir, err)
	}
	return m, nil
}

func readChunkStore(path string) (domain.Manifest, []domain.Chunk, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Manifest{}, nil, fmt.Errorf("missing %s", ChunksFile)
		}
		return domain.Manifest{}, nil, err
	}

	cs, err := OpenChunkStore(path)
	if err != nil {
		return domain.Manifest{}, nil, err
	}
	defer cs.Close()

	m, err := cs.Manifest()
	if err != nil {
		return domain.Manifest{}, nil, err
	}
	chunks, err := cs.Chunks()
	if err != nil {
		return domain.Manifest{}, nil, err
	}
	return m, chunks, nil
}
