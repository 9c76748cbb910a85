package chunker

import "errors"

// ErrInvalidArgument is returned when chunking parameters are out of range.
var ErrInvalidArgument = errors.New("chunker: chunk size must be > 0 and overlap must be >= 0")

// Chunk is one window of a document's text. ID is the zero-based position
// in emission order and doubles as the chunk's identity in the vector store.
type Chunk struct {
	ID   int
	Text string
}

// Split partitions text into overlapping fixed-size windows.
//
// Windows are rune-position based: chunk i covers text[i*step : i*step+chunkSize]
// with step = max(chunkSize-overlap, 1), so the loop makes progress even when
// overlap >= chunkSize. The final chunk may be shorter than chunkSize. Empty
// text yields no chunks and no error. Split is a pure function: identical
// inputs always produce the identical sequence.
func Split(text string, chunkSize, overlap int) ([]Chunk, error) {
	if text == "" {
		return nil, nil
	}
	if chunkSize <= 0 || overlap < 0 {
		return nil, ErrInvalidArgument
	}

	runes := []rune(text)

	step := chunkSize - overlap
	if step < 1 {
		step = 1
	}

	var chunks []Chunk
	for start := 0; start < len(runes); start += step {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{
			ID:   len(chunks),
			Text: string(runes[start:end]),
		})
	}

	return chunks, nil
}
