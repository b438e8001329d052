package ingest

import (
	"strings"

	"github.com/akolanti/CyberScholar/internal/config"
)

//splitter

// Chunk splits text into word-bounded chunks of config.ChunkSize words, each seeded with the
// trailing config.ChunkOverlap words of the previous one. Same text, same chunks.
func Chunk(text string) []string {
	return splitTextIntoChunks(text, config.ChunkSize, config.ChunkOverlap)
}

func splitTextIntoChunks(text string, limit int, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 || limit <= 0 {
		return []string{}
	}
	if overlap < 0 || overlap >= limit {
		overlap = 0
	}

	var chunks []string
	current := make([]string, 0, limit)
	// words in current that were carried over from the previous chunk
	seeded := 0

	for _, word := range words {
		current = append(current, word)
		if len(current) < limit {
			continue
		}
		chunks = append(chunks, strings.Join(current, " "))

		seed := current[len(current)-overlap:]
		next := make([]string, 0, limit)
		current = append(next, seed...)
		seeded = len(seed)
	}

	// a bare overlap seed holds no new words and is not emitted on its own
	if len(current) > seeded {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}
