package text

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	s := NewSplitter()
	chunks := s.Split("A short paragraph about nothing in particular.")
	assert.Len(t, chunks, 1)
}

func TestSplit_DropsUndersizedChunks(t *testing.T) {
	s := Splitter{ChunkSize: 100, ChunkOverlap: 0, MinChunkLength: 10}
	chunks := s.Split("tiny")
	assert.Empty(t, chunks)
}

func TestSplit_BreaksAtParagraphs(t *testing.T) {
	s := Splitter{ChunkSize: 60, ChunkOverlap: 0, MinChunkLength: 10}

	para1 := "The first paragraph talks about indexing pipelines."
	para2 := "The second paragraph talks about retrieval agents."
	chunks := s.Split(para1 + "\n\n" + para2)

	assert.Equal(t, []string{para1, para2}, chunks)
}

func TestSplit_RespectsChunkSize(t *testing.T) {
	s := Splitter{ChunkSize: 80, ChunkOverlap: 20, MinChunkLength: 10}

	var sb strings.Builder
	for i := 0; i < 50; i++ {
		sb.WriteString("some repeated filler words here ")
	}

	chunks := s.Split(sb.String())
	assert.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 80)
	}
}

func TestSplit_OverlapCarriesTail(t *testing.T) {
	s := Splitter{ChunkSize: 40, ChunkOverlap: 15, MinChunkLength: 1}

	chunks := s.Split("alpha beta gamma delta epsilon zeta eta theta iota kappa")
	assert.Greater(t, len(chunks), 1)

	// Each chunk after the first starts with words from the previous chunk's tail.
	for i := 1; i < len(chunks); i++ {
		firstWord := strings.Fields(chunks[i])[0]
		assert.Contains(t, chunks[i-1], firstWord)
	}
}

func TestSplit_UnbrokenTextFallsBackToHardCut(t *testing.T) {
	s := Splitter{ChunkSize: 50, ChunkOverlap: 0, MinChunkLength: 1}

	long := strings.Repeat("x", 120)
	chunks := s.Split(long)
	assert.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 50)
	}
}

func TestSplit_Deterministic(t *testing.T) {
	s := NewSplitter()
	input := strings.Repeat("A paragraph of text.\n\n", 500)
	assert.Equal(t, s.Split(input), s.Split(input))
}
