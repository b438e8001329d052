package lexicalDB

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/akolanti/CyberScholar/internal/rag/vectorDB"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimilarity_WordSetJaccard(t *testing.T) {
	assert.Equal(t, 1.0, similarity("SQL injection lab", "sql injection LAB"))
	assert.Equal(t, 0.0, similarity("", ""))
	assert.Equal(t, 0.0, similarity("nmap", ""))
	assert.InDelta(t, 1.0/3.0, similarity("a b", "b c"), 1e-9)
}

func TestQuery_EmptyOwner(t *testing.T) {
	s := NewStore()
	got := s.Query("nobody", "anything", 5)
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAdd_IdsAndMetadata(t *testing.T) {
	s := NewStore()
	n := s.Add("owner-1", "guide.txt_abc", []string{"first chunk", "second chunk"}, map[string]any{"filename": "guide.txt"})
	require.Equal(t, 2, n)

	chunks := s.GetByMetadata("owner-1", map[string]any{vectorDB.MetaSource: "guide.txt_abc"})
	require.Len(t, chunks, 2)
	assert.Equal(t, "guide.txt_abc_0", chunks[0].Id)
	assert.Equal(t, "guide.txt_abc_1", chunks[1].Id)
	assert.Equal(t, 1, chunks[1].Position)
	assert.Equal(t, "guide.txt", chunks[1].Metadata["filename"])
	assert.Equal(t, "owner-1", chunks[1].Metadata[vectorDB.MetaOwner])
}

func TestQuery_RankingAndLimit(t *testing.T) {
	s := NewStore()
	s.Add("o", "doc", []string{
		"burp suite proxy intercept",
		"sql injection union select payload",
		"sql injection basics",
		"wireshark capture filters",
	}, nil)

	got := s.Query("o", "sql injection", 2)
	require.Len(t, got, 2)
	assert.Equal(t, "doc_2", got[0].Chunk.Id)
	assert.Equal(t, "doc_1", got[1].Chunk.Id)
	assert.GreaterOrEqual(t, got[0].Score, got[1].Score)
	assert.InDelta(t, 1-got[0].Score, got[0].Distance, 1e-9)

	all := s.Query("o", "sql injection", 10)
	require.Len(t, all, 4)
	for i := 1; i < len(all); i++ {
		assert.GreaterOrEqual(t, all[i-1].Score, all[i].Score)
	}
}

func TestQuery_TiesKeepInsertionOrder(t *testing.T) {
	s := NewStore()
	s.Add("o", "a", []string{"alpha", "beta"}, nil)
	s.Add("o", "b", []string{"gamma"}, nil)

	got := s.Query("o", "unrelated words", 3)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"a_0", "a_1", "b_0"}, []string{got[0].Chunk.Id, got[1].Chunk.Id, got[2].Chunk.Id})
}

func TestQuery_OwnersAreIsolated(t *testing.T) {
	s := NewStore()
	s.Add("alice", "a", []string{"xss payloads"}, nil)
	assert.Empty(t, s.Query("bob", "xss payloads", 5))
	assert.Len(t, s.Query("alice", "xss payloads", 5), 1)
}

func TestGetByMetadata_ExactConjunction(t *testing.T) {
	s := NewStore()
	s.Add("o", "a", []string{"one", "two"}, map[string]any{"lang": "en"})
	s.Add("o", "b", []string{"three"}, map[string]any{"lang": "de"})

	assert.Len(t, s.GetByMetadata("o", map[string]any{"lang": "en"}), 2)
	assert.Len(t, s.GetByMetadata("o", map[string]any{"lang": "en", vectorDB.MetaPosition: 1}), 1)
	assert.Empty(t, s.GetByMetadata("o", map[string]any{"lang": "en", "missing": "x"}))
	assert.Len(t, s.GetByMetadata("o", map[string]any{}), 3)
}

func TestDelete_Idempotent(t *testing.T) {
	s := NewStore()
	s.Add("o", "a", []string{"one", "two"}, nil)

	s.Delete("o", []string{"a_0", "ghost"})
	s.Delete("o", []string{"a_0"})
	s.Delete("nobody", []string{"a_1"})

	left := s.GetByMetadata("o", nil)
	require.Len(t, left, 1)
	assert.Equal(t, "a_1", left[0].Id)
}

func TestDeleteSource(t *testing.T) {
	s := NewStore()
	s.Add("o", "a", []string{"one", "two"}, nil)
	s.Add("o", "b", []string{"three"}, nil)

	assert.Equal(t, 2, s.DeleteSource("o", "a"))
	assert.Equal(t, 0, s.DeleteSource("o", "a"))
	left := s.GetByMetadata("o", nil)
	require.Len(t, left, 1)
	assert.Equal(t, "b", left[0].Source)
}

func TestReturnedMetadataIsACopy(t *testing.T) {
	s := NewStore()
	s.Add("o", "a", []string{"one"}, nil)
	got := s.GetByMetadata("o", nil)
	got[0].Metadata[vectorDB.MetaSource] = "changed"
	assert.Len(t, s.GetByMetadata("o", map[string]any{vectorDB.MetaSource: "a"}), 1)
}

func TestConcurrentAddAndQuery(t *testing.T) {
	s := NewStore()
	const writers = 8
	const perWriter = 20

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				s.Add("o", fmt.Sprintf("src-%d-%d", w, i), []string{"chunk one", "chunk two"}, nil)
			}
		}(w)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				got := s.Query("o", "chunk", 1000)
				// whole adds only: always an even number of chunks
				if len(got)%2 != 0 {
					t.Errorf("observed a partial add: %d chunks", len(got))
				}
			}
		}()
	}
	wg.Wait()

	assert.Len(t, s.GetByMetadata("o", nil), writers*perWriter*2)
}

func TestQuery_ExactChunkComesFirst(t *testing.T) {
	s := NewStore()
	chunks := []string{
		strings.Repeat("alpha ", 20),
		"the quick brown fox jumps over the lazy dog",
		strings.Repeat("gamma ", 20),
	}
	s.Add("o", "doc", chunks, nil)
	got := s.Query("o", "quick brown fox jumps", 1)
	require.Len(t, got, 1)
	assert.Equal(t, "doc_1", got[0].Chunk.Id)
}

func TestConcurrentAddAndDeleteSource_NoLostWrites(t *testing.T) {
	s := NewStore()
	const sources = 40
	for i := range sources {
		s.Add("o", fmt.Sprintf("old-%d", i), []string{"stale chunk"}, nil)
	}

	var wg sync.WaitGroup
	for i := range sources {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Add("o", fmt.Sprintf("new-%d", i), []string{"fresh chunk"}, nil)
		}()
		go func() {
			defer wg.Done()
			s.DeleteSource("o", fmt.Sprintf("old-%d", i))
		}()
	}
	wg.Wait()

	all := s.GetByMetadata("o", nil)
	require.Len(t, all, sources)
	for _, c := range all {
		assert.True(t, strings.HasPrefix(c.Source, "new-"), "unexpected chunk %s", c.Id)
	}
}
