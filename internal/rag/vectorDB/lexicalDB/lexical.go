package lexicalDB

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/akolanti/CyberScholar/internal/domain/commonModels"
	"github.com/akolanti/CyberScholar/internal/rag/vectorDB"
	"github.com/akolanti/CyberScholar/pkg/logger_i"
)

// snapshot is immutable once published. Writers build a new one and swap it in,
// so readers never see half of an add or delete.
type snapshot struct {
	ids       []string
	documents []string
	metadatas []map[string]any
	wordSets  []map[string]struct{}
}

type collection struct {
	writeMu sync.Mutex
	current atomic.Pointer[snapshot]
}

// Store keeps one collection per owner. Owners never share a lock.
type Store struct {
	collections sync.Map // ownerId -> *collection
	logger      *logger_i.Logger
}

var _ vectorDB.Index = (*Store)(nil)

func NewStore() *Store {
	return &Store{logger: logger_i.NewLogger("Lexical Index")}
}

func (s *Store) collectionFor(ownerId string) *collection {
	if c, ok := s.collections.Load(ownerId); ok {
		return c.(*collection)
	}
	fresh := &collection{}
	fresh.current.Store(&snapshot{})
	c, _ := s.collections.LoadOrStore(ownerId, fresh)
	return c.(*collection)
}

// Add appends chunks as source_position. Re-adding a source without deleting it first duplicates ids.
func (s *Store) Add(ownerId string, source string, chunks []string, extra map[string]any) int {
	if len(chunks) == 0 {
		return 0
	}
	c := s.collectionFor(ownerId)
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	old := c.current.Load()
	next := &snapshot{
		ids:       append(make([]string, 0, len(old.ids)+len(chunks)), old.ids...),
		documents: append(make([]string, 0, len(old.documents)+len(chunks)), old.documents...),
		metadatas: append(make([]map[string]any, 0, len(old.metadatas)+len(chunks)), old.metadatas...),
		wordSets:  append(make([]map[string]struct{}, 0, len(old.wordSets)+len(chunks)), old.wordSets...),
	}

	for i, chunk := range chunks {
		meta := make(map[string]any, len(extra)+3)
		for k, v := range extra {
			meta[k] = v
		}
		meta[vectorDB.MetaSource] = source
		meta[vectorDB.MetaPosition] = i
		meta[vectorDB.MetaOwner] = ownerId

		next.ids = append(next.ids, fmt.Sprintf("%s_%d", source, i))
		next.documents = append(next.documents, chunk)
		next.metadatas = append(next.metadatas, meta)
		next.wordSets = append(next.wordSets, wordSet(chunk))
	}

	c.current.Store(next)
	s.logger.Debug("Added chunks", "ownerId", ownerId, "source", source, "count", len(chunks), "total", len(next.ids))
	return len(chunks)
}

// Query ranks every chunk of the owner by word-set Jaccard similarity and returns at most k.
// Ties keep insertion order.
func (s *Store) Query(ownerId string, text string, k int) []commonModels.RetrievalRecord {
	if k <= 0 {
		return []commonModels.RetrievalRecord{}
	}
	c, ok := s.collections.Load(ownerId)
	if !ok {
		return []commonModels.RetrievalRecord{}
	}
	snap := c.(*collection).current.Load()
	if len(snap.ids) == 0 {
		return []commonModels.RetrievalRecord{}
	}

	query := wordSet(text)
	records := make([]commonModels.RetrievalRecord, len(snap.ids))
	for i := range snap.ids {
		score := jaccard(query, snap.wordSets[i])
		records[i] = commonModels.RetrievalRecord{
			Chunk:    snap.chunkAt(i),
			Score:    score,
			Distance: 1 - score,
		}
	}

	sort.SliceStable(records, func(a, b int) bool {
		return records[a].Score > records[b].Score
	})

	if len(records) > k {
		records = records[:k]
	}
	return records
}

// GetByMetadata returns chunks whose metadata holds every filter key with an equal value.
func (s *Store) GetByMetadata(ownerId string, filter map[string]any) []commonModels.DocChunk {
	c, ok := s.collections.Load(ownerId)
	if !ok {
		return []commonModels.DocChunk{}
	}
	snap := c.(*collection).current.Load()

	matches := []commonModels.DocChunk{}
	for i, meta := range snap.metadatas {
		if matchesFilter(meta, filter) {
			matches = append(matches, snap.chunkAt(i))
		}
	}
	return matches
}

// Delete removes chunks by id. Unknown ids are ignored.
func (s *Store) Delete(ownerId string, ids []string) {
	if len(ids) == 0 {
		return
	}
	c, ok := s.collections.Load(ownerId)
	if !ok {
		return
	}
	col := c.(*collection)
	col.writeMu.Lock()
	defer col.writeMu.Unlock()

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	s.deleteLocked(col, func(i int, snap *snapshot) bool {
		_, found := drop[snap.ids[i]]
		return found
	})
}

// DeleteSource drops every chunk of one upload and reports how many went.
// The lookup and the delete happen under one write lock.
func (s *Store) DeleteSource(ownerId string, source string) int {
	c, ok := s.collections.Load(ownerId)
	if !ok {
		return 0
	}
	col := c.(*collection)
	col.writeMu.Lock()
	defer col.writeMu.Unlock()

	filter := map[string]any{vectorDB.MetaSource: source}
	removed := s.deleteLocked(col, func(i int, snap *snapshot) bool {
		return matchesFilter(snap.metadatas[i], filter)
	})
	s.logger.Debug("Deleted source", "ownerId", ownerId, "source", source, "removed", removed)
	return removed
}

func (s *Store) deleteLocked(col *collection, remove func(i int, snap *snapshot) bool) int {
	old := col.current.Load()
	next := &snapshot{}
	removed := 0
	for i := range old.ids {
		if remove(i, old) {
			removed++
			continue
		}
		next.ids = append(next.ids, old.ids[i])
		next.documents = append(next.documents, old.documents[i])
		next.metadatas = append(next.metadatas, old.metadatas[i])
		next.wordSets = append(next.wordSets, old.wordSets[i])
	}
	if removed > 0 {
		col.current.Store(next)
	}
	return removed
}

func (snap *snapshot) chunkAt(i int) commonModels.DocChunk {
	meta := make(map[string]any, len(snap.metadatas[i]))
	for k, v := range snap.metadatas[i] {
		meta[k] = v
	}
	source, _ := meta[vectorDB.MetaSource].(string)
	position, _ := meta[vectorDB.MetaPosition].(int)
	return commonModels.DocChunk{
		Id:       snap.ids[i],
		Source:   source,
		Position: position,
		Content:  snap.documents[i],
		Metadata: meta,
	}
}

func matchesFilter(meta map[string]any, filter map[string]any) bool {
	for key, want := range filter {
		got, ok := meta[key]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}
