package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"docqa/internal/domain"
)

var (
	bucketChunks = []byte("chunks")
	bucketMeta   = []byte("meta")
	keyManifest  = []byte("manifest")
)

// ChunkStore holds chunk payloads and the index manifest in a bbolt file.
// Chunks are keyed by big-endian sequence index so iteration is in order.
type ChunkStore struct {
	db *bbolt.DB
}

type chunkRecord struct {
	Text string `json:"text"`
}

// CreateChunkStore creates a new, writable store at path.
func CreateChunkStore(path string) (*ChunkStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketChunks, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &ChunkStore{db: db}, nil
}

// OpenChunkStore opens an existing store read-only.
func OpenChunkStore(path string) (*ChunkStore, error) {
	db, err := bbolt.Open(path, 0400, &bbolt.Options{Timeout: time.Second, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}
	return &ChunkStore{db: db}, nil
}

func seqKey(seq int) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(seq))
	return key
}

// PutChunks writes all chunks in one transaction.
func (s *ChunkStore) PutChunks(chunks []domain.Chunk) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketChunks)
		for _, chunk := range chunks {
			if chunk.SequenceIndex < 0 {
				return fmt.Errorf("negative sequence index %d", chunk.SequenceIndex)
			}
			data, err := json.Marshal(chunkRecord{Text: chunk.Text})
			if err != nil {
				return err
			}
			if err := b.Put(seqKey(chunk.SequenceIndex), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Chunks returns every chunk ordered by sequence index.
func (s *ChunkStore) Chunks() ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketChunks)
		if b == nil {
			return fmt.Errorf("chunks bucket not found")
		}
		return b.ForEach(func(k, v []byte) error {
			if len(k) != 8 {
				return fmt.Errorf("malformed chunk key %x", k)
			}
			var rec chunkRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("chunk %x: %w", k, err)
			}
			chunks = append(chunks, domain.Chunk{
				Text:          rec.Text,
				SequenceIndex: int(binary.BigEndian.Uint64(k)),
			})
			return nil
		})
	})
	return chunks, err
}

func (s *ChunkStore) PutManifest(m domain.Manifest) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put(keyManifest, data)
	})
}

func (s *ChunkStore) Manifest() (domain.Manifest, error) {
	var m domain.Manifest
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if b == nil {
			return fmt.Errorf("meta bucket not found")
		}
		data := b.Get(keyManifest)
		if data == nil {
			return fmt.Errorf("manifest not found")
		}
		return json.Unmarshal(data, &m)
	})
	return m, err
}

func (s *ChunkStore) Close() error {
	return s.db.Close()
}
