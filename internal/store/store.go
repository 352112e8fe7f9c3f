// Package store holds the documents uploaded during one session.
package store

import (
	"bytes"
	"sync"
	"time"

	"github.com/joseph-ayodele/notas-reader/internal/common"
)

// Document is one uploaded invoice file. The payload is never mutated after Add.
type Document struct {
	Name      string
	Data      []byte
	MediaType string
	AddedAt   time.Time
}

// Size returns the payload length in bytes.
func (d Document) Size() int { return len(d.Data) }

func (d Document) clone() Document {
	d.Data = bytes.Clone(d.Data)
	return d
}

// Store is an append-only, name-deduplicated sequence of documents.
type Store struct {
	mu     sync.RWMutex
	docs   []Document
	byName map[string]struct{}
	now    func() time.Time
}

func New() *Store {
	return &Store{
		byName: make(map[string]struct{}),
		now:    time.Now,
	}
}

// Add appends a document unless one with the same name already exists.
// It reports whether the store grew; a duplicate name is a no-op.
func (s *Store) Add(name string, data []byte, mediaType string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.byName[name]; dup {
		return false
	}
	s.docs = append(s.docs, Document{
		Name:      name,
		Data:      bytes.Clone(data),
		MediaType: mediaType,
		AddedAt:   s.now().UTC(),
	})
	s.byName[name] = struct{}{}
	return true
}

// Latest returns a copy of the most recently added document.
func (s *Store) Latest() (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.docs) == 0 {
		return Document{}, common.EmptyStoreError()
	}
	return s.docs[len(s.docs)-1].clone(), nil
}

// All returns copies of the documents in insertion order.
func (s *Store) All() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Document, len(s.docs))
	for i, d := range s.docs {
		out[i] = d.clone()
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
