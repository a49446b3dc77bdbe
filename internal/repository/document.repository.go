package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

// collections held per user
const (
	CollectionCurrentPositions  = "currentPositions"
	CollectionJournalEntries    = "journalEntries"
	CollectionDailySnapshots    = "dailySnapshots"
	CollectionDividendHistory   = "dividendHistory"
	CollectionRealizedPLByDate  = "realizedPLByDate"
	CollectionStats             = "stats"
	CollectionPriceRefetchQueue = "priceRefetchQueue"
)

type Document struct {
	Key       string
	Data      json.RawMessage
	UpdatedAt time.Time
}

// ListOptions bounds a key range. both bounds are inclusive and
// empty means unbounded
type ListOptions struct {
	StartKey   string
	EndKey     string
	Limit      int
	Descending bool
}

func (o ListOptions) contains(key string) bool {
	if o.StartKey != "" && key < o.StartKey {
		return false
	}
	if o.EndKey != "" && key > o.EndKey {
		return false
	}
	return true
}

// DocumentRepository is a per-user key/document store. writes are
// per document; nothing is transactional across documents
type DocumentRepository interface {
	// Get returns nil, nil if the document does not exist
	Get(ctx context.Context, userID, collection, key string) (*Document, error)
	Put(ctx context.Context, userID, collection, key string, data []byte) error
	Delete(ctx context.Context, userID, collection, key string) error
	List(ctx context.Context, userID, collection string, opts ListOptions) ([]Document, error)
	ListUserIDs(ctx context.Context, collection string) ([]string, error)
}

type memoryDocumentRepositoryHandler struct {
	mutex *sync.RWMutex
	// user -> collection -> key
	docs map[string]map[string]map[string]Document
	now  func() time.Time
}

func NewMemoryDocumentRepository() DocumentRepository {
	return &memoryDocumentRepositoryHandler{
		mutex: &sync.RWMutex{},
		docs:  map[string]map[string]map[string]Document{},
		now:   time.Now,
	}
}

func (h *memoryDocumentRepositoryHandler) Get(ctx context.Context, userID, collection, key string) (*Document, error) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	doc, ok := h.docs[userID][collection][key]
	if !ok {
		return nil, nil
	}
	out := copyDocument(doc)
	return &out, nil
}

func (h *memoryDocumentRepositoryHandler) Put(ctx context.Context, userID, collection, key string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("failed to put %s/%s: invalid json", collection, key)
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.docs[userID]; !ok {
		h.docs[userID] = map[string]map[string]Document{}
	}
	if _, ok := h.docs[userID][collection]; !ok {
		h.docs[userID][collection] = map[string]Document{}
	}
	h.docs[userID][collection][key] = copyDocument(Document{
		Key:       key,
		Data:      data,
		UpdatedAt: h.now().UTC(),
	})
	return nil
}

func (h *memoryDocumentRepositoryHandler) Delete(ctx context.Context, userID, collection, key string) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if c, ok := h.docs[userID][collection]; ok {
		delete(c, key)
	}
	return nil
}

func (h *memoryDocumentRepositoryHandler) List(ctx context.Context, userID, collection string, opts ListOptions) ([]Document, error) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	out := []Document{}
	for key, doc := range h.docs[userID][collection] {
		if opts.contains(key) {
			out = append(out, copyDocument(doc))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if opts.Descending {
			return out[i].Key > out[j].Key
		}
		return out[i].Key < out[j].Key
	})
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (h *memoryDocumentRepositoryHandler) ListUserIDs(ctx context.Context, collection string) ([]string, error) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	out := []string{}
	for userID, collections := range h.docs {
		if len(collections[collection]) > 0 {
			out = append(out, userID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func copyDocument(doc Document) Document {
	data := make([]byte, len(doc.Data))
	copy(data, doc.Data)
	return Document{
		Key:       doc.Key,
		Data:      data,
		UpdatedAt: doc.UpdatedAt,
	}
}

// getJSON decodes a document into out. returns false if absent
func getJSON(ctx context.Context, store DocumentRepository, userID, collection, key string, out interface{}) (bool, error) {
	doc, err := store.Get(ctx, userID, collection, key)
	if err != nil {
		return false, fmt.Errorf("failed to get %s/%s: %w", collection, key, err)
	}
	if doc == nil {
		return false, nil
	}
	if err := json.Unmarshal(doc.Data, out); err != nil {
		return false, fmt.Errorf("failed to decode %s/%s: %w", collection, key, err)
	}
	return true, nil
}

func putJSON(ctx context.Context, store DocumentRepository, userID, collection, key string, in interface{}) error {
	bytes, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", collection, key, err)
	}
	if err := store.Put(ctx, userID, collection, key, bytes); err != nil {
		return fmt.Errorf("failed to put %s/%s: %w", collection, key, err)
	}
	return nil
}
