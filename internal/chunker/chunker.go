// Package chunker splits raw document text into overlapping fixed-size
// windows for embedding and retrieval.
package chunker

import "github.com/satyajitsk27/zania/internal/models"

// Split cuts content into windows of size chars with overlap chars shared
// between consecutive windows. Offsets are counted in runes so multi-byte
// text never gets cut mid-character. The final window may be shorter; text
// no longer than one window yields exactly one chunk. Pure and
// deterministic.
func Split(content, source string, size, overlap int) []models.Chunk {
	if size <= 0 {
		size = models.ChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}

	runes := []rune(content)
	if len(runes) == 0 {
		return nil
	}

	stride := size - overlap
	chunks := make([]models.Chunk, 0, len(runes)/stride+1)
	for start := 0; start < len(runes); start += stride {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, models.Chunk{
			Content: string(runes[start:end]),
			Ordinal: len(chunks),
			Source:  source,
		})
		if end == len(runes) {
			break
		}
	}
	return chunks
}
