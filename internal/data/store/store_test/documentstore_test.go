package store_test

import (
	"testing"
	"time"

	"github.com/akolanti/CyberScholar/internal/data/store"
	"github.com/akolanti/CyberScholar/internal/domain/commonModels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func documentStores(t *testing.T) map[string]commonModels.DocumentStore {
	_, rs := newTestRedis(t)
	return map[string]commonModels.DocumentStore{
		"redis":    store.NewRedisDocumentStore(rs),
		"inMemory": store.InitInMemoryDocumentStore(),
	}
}

func TestDocumentStore_Lifecycle(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	older := commonModels.Document{OwnerId: "o", Source: "a.txt_1", Filename: "a.txt", ContentType: commonModels.TXT, Digest: "d1", ChunkCount: 2, IngestedAt: base}
	newer := commonModels.Document{OwnerId: "o", Source: "b.md_2", Filename: "b.md", ContentType: commonModels.MD, Digest: "d2", ChunkCount: 1, IngestedAt: base.Add(time.Minute)}
	other := commonModels.Document{OwnerId: "someone-else", Source: "c.pdf_3", IngestedAt: base}

	for name, ds := range documentStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := testContext()
			require.NoError(t, ds.SaveDocument(ctx, older))
			require.NoError(t, ds.SaveDocument(ctx, newer))
			require.NoError(t, ds.SaveDocument(ctx, other))

			got, found, err := ds.GetDocument(ctx, "o", "a.txt_1")
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, "d1", got.Digest)
			assert.True(t, got.IngestedAt.Equal(base))

			_, found, err = ds.GetDocument(ctx, "someone-else", "a.txt_1")
			require.NoError(t, err)
			assert.False(t, found)

			list, err := ds.ListDocuments(ctx, "o")
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "b.md_2", list[0].Source)
			assert.Equal(t, "a.txt_1", list[1].Source)

			require.NoError(t, ds.DeleteDocument(ctx, "o", "a.txt_1"))
			require.NoError(t, ds.DeleteDocument(ctx, "o", "a.txt_1"))
			list, err = ds.ListDocuments(ctx, "o")
			require.NoError(t, err)
			require.Len(t, list, 1)

			empty, err := ds.ListDocuments(ctx, "nobody")
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}
