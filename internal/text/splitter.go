package text

import "strings"

// Splitter cuts a document into bounded-length windows with overlap,
// preferring to break at paragraph, then line, then word boundaries.
// Chunks at or below MinChunkLength are dropped.
type Splitter struct {
	ChunkSize      int
	ChunkOverlap   int
	MinChunkLength int
}

const (
	DefaultChunkSize      = 4000
	DefaultChunkOverlap   = 200
	DefaultMinChunkLength = 10
)

func NewSplitter() Splitter {
	return Splitter{
		ChunkSize:      DefaultChunkSize,
		ChunkOverlap:   DefaultChunkOverlap,
		MinChunkLength: DefaultMinChunkLength,
	}
}

var separators = []string{"\n\n", "\n", " ", ""}

func (s Splitter) Split(text string) []string {
	raw := s.splitRecursive(text, separators)

	chunks := make([]string, 0, len(raw))
	for _, c := range raw {
		c = strings.TrimSpace(c)
		if len(c) > s.MinChunkLength {
			chunks = append(chunks, c)
		}
	}
	return chunks
}

func (s Splitter) splitRecursive(text string, seps []string) []string {
	if len(text) <= s.ChunkSize {
		return []string{text}
	}

	// Pick the coarsest separator that actually occurs in the text.
	sep := seps[len(seps)-1]
	rest := seps
	for i, candidate := range seps {
		if candidate == "" || strings.Contains(text, candidate) {
			sep = candidate
			rest = seps[i+1:]
			break
		}
	}

	var pieces []string
	if sep == "" {
		pieces = splitEvery(text, s.ChunkSize)
	} else {
		pieces = strings.Split(text, sep)
	}

	// Oversized pieces get split again at the next finer boundary.
	var sized []string
	for _, piece := range pieces {
		if len(piece) > s.ChunkSize && len(rest) > 0 {
			sized = append(sized, s.splitRecursive(piece, rest)...)
		} else {
			sized = append(sized, piece)
		}
	}

	return s.merge(sized, sep)
}

// merge packs pieces back into chunks up to ChunkSize, carrying the trailing
// ChunkOverlap characters of each chunk into the next one.
func (s Splitter) merge(pieces []string, sep string) []string {
	var chunks []string
	var window []string
	total := 0

	joinedLen := func() int {
		if len(window) == 0 {
			return 0
		}
		return total + len(sep)*(len(window)-1)
	}

	for _, piece := range pieces {
		if piece == "" {
			continue
		}

		if joinedLen()+len(sep)+len(piece) > s.ChunkSize && len(window) > 0 {
			chunks = append(chunks, strings.Join(window, sep))

			// Shrink the window to the configured overlap.
			for len(window) > 0 && (joinedLen() > s.ChunkOverlap || joinedLen()+len(sep)+len(piece) > s.ChunkSize) {
				total -= len(window[0])
				window = window[1:]
			}
		}

		window = append(window, piece)
		total += len(piece)
	}

	if len(window) > 0 {
		chunks = append(chunks, strings.Join(window, sep))
	}
	return chunks
}

func splitEvery(text string, size int) []string {
	var out []string
	for len(text) > size {
		out = append(out, text[:size])
		text = text[size:]
	}
	if text != "" {
		out = append(out, text)
	}
	return out
}
