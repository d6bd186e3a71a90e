package analyzer

import (
	"github.com/hexborne/vulndetective/api/schemas"
)

// Chunk is a contiguous line window of a SourceUnit handed to the model.
// Line numbers are absolute unit coordinates, 1-based and inclusive.
type Chunk struct {
	Index     int
	StartLine int
	EndLine   int
	Text      string
}

// chunkUnit splits the unit into windows of at most maxLines lines where
// consecutive windows share overlap trailing lines. Findings near a window
// boundary are then visible to both windows and deduplicated afterwards.
// A unit that fits in one window produces exactly one chunk.
func chunkUnit(unit *schemas.SourceUnit, maxLines, overlap int) []Chunk {
	if maxLines < 1 {
		maxLines = 1
	}
	if overlap < 0 {
		overlap = 0
	}
	// The window must always advance.
	if overlap >= maxLines {
		overlap = maxLines - 1
	}

	numLines := unit.NumLines()
	if numLines == 0 {
		return nil
	}

	var chunks []Chunk
	start := 1
	for {
		end := start + maxLines - 1
		if end > numLines {
			end = numLines
		}
		chunks = append(chunks, Chunk{
			Index:     len(chunks),
			StartLine: start,
			EndLine:   end,
			Text:      unit.LineRange(start, end),
		})
		if end == numLines {
			return chunks
		}
		start = end - overlap + 1
	}
}
