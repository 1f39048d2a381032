// -----------------------------------------------------------------------
// Chunker Service - Recursive character text splitting
// Splits on the coarsest separator present, recursing into finer ones,
// then greedily merges pieces up to the chunk size with a trailing
// overlap window carried into the next chunk
// -----------------------------------------------------------------------

package chunker

import (
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docquery/internal/models"
)

// DefaultSeparators orders split points from paragraph breaks down to
// single characters. Includes Thai and CJK sentence terminators so
// non-Latin prose still splits on sentence boundaries.
var DefaultSeparators = []string{"\n\n", "\n", ". ", "! ", "? ", "ฯ ", "。", "；", "，", " ", ""}

// Service splits document text into overlapping chunks sized in runes.
type Service struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
	logger       arbor.ILogger
}

// NewService creates a chunker. chunkOverlap must be smaller than chunkSize.
func NewService(chunkSize, chunkOverlap int, logger arbor.ILogger) (*Service, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, chunk size), got %d", chunkOverlap)
	}
	return &Service{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   DefaultSeparators,
		logger:       logger,
	}, nil
}

// ChunkText splits unpaginated text. Chunk indexes start at 0 and the
// page number is 0 for every chunk.
func (s *Service) ChunkText(text string) []models.TextChunk {
	pieces := s.splitText(text, s.separators)

	chunks := make([]models.TextChunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, models.TextChunk{
			Content: piece,
			Index:   i,
		})
	}
	return chunks
}

// ChunkPages splits paginated text, tagging each chunk with its 1-based
// page number. Chunk indexes run continuously across pages, so an empty
// page contributes no chunks but never breaks index continuity.
// A nil slice means the source had no page content at all.
func (s *Service) ChunkPages(pages []string) ([]models.TextChunk, error) {
	if pages == nil {
		return nil, models.ErrMissingPageContent
	}

	var chunks []models.TextChunk
	index := 0
	for pageIdx, page := range pages {
		for _, piece := range s.splitText(page, s.separators) {
			chunks = append(chunks, models.TextChunk{
				Content:    piece,
				Index:      index,
				PageNumber: pageIdx + 1,
			})
			index++
		}
	}
	return chunks, nil
}

// splitText picks the first separator that occurs in the text (the empty
// separator always matches), splits on it, and recurses into oversized
// pieces with the remaining finer separators.
func (s *Service) splitText(text string, separators []string) []string {
	var finalChunks []string

	separator := separators[len(separators)-1]
	var newSeparators []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			newSeparators = separators[i+1:]
			break
		}
	}

	splits := splitOnSeparator(text, separator)

	// Pieces under the limit accumulate until an oversized piece forces a
	// merge; oversized pieces recurse with the finer separators.
	var goodSplits []string
	for _, piece := range splits {
		if runeLen(piece) < s.chunkSize {
			goodSplits = append(goodSplits, piece)
			continue
		}
		if len(goodSplits) > 0 {
			finalChunks = append(finalChunks, s.mergeSplits(goodSplits, separator)...)
			goodSplits = nil
		}
		if len(newSeparators) == 0 {
			finalChunks = append(finalChunks, piece)
		} else {
			finalChunks = append(finalChunks, s.splitText(piece, newSeparators)...)
		}
	}
	if len(goodSplits) > 0 {
		finalChunks = append(finalChunks, s.mergeSplits(goodSplits, separator)...)
	}

	return finalChunks
}

// mergeSplits greedily joins pieces with the separator up to the chunk
// size. When a chunk closes, pieces are evicted from the front until the
// remainder fits under the overlap budget; the survivors seed the next
// chunk.
func (s *Service) mergeSplits(splits []string, separator string) []string {
	sepLen := runeLen(separator)

	var docs []string
	var currentDoc []string
	total := 0

	for _, piece := range splits {
		pieceLen := runeLen(piece)
		join := 0
		if len(currentDoc) > 0 {
			join = sepLen
		}
		if total+pieceLen+join > s.chunkSize {
			if total > s.chunkSize {
				s.logger.Warn().
					Int("size", total).
					Int("limit", s.chunkSize).
					Msg("Created a chunk larger than the configured size")
			}
			if len(currentDoc) > 0 {
				if doc := joinPieces(currentDoc, separator); doc != "" {
					docs = append(docs, doc)
				}
				for total > s.chunkOverlap || (total+pieceLen+join > s.chunkSize && total > 0) {
					evicted := runeLen(currentDoc[0])
					if len(currentDoc) > 1 {
						evicted += sepLen
					}
					total -= evicted
					currentDoc = currentDoc[1:]
					join = 0
					if len(currentDoc) > 0 {
						join = sepLen
					}
				}
			}
		}
		currentDoc = append(currentDoc, piece)
		total += pieceLen
		if len(currentDoc) > 1 {
			total += sepLen
		}
	}

	if doc := joinPieces(currentDoc, separator); doc != "" {
		docs = append(docs, doc)
	}

	return docs
}

// splitOnSeparator consumes the separator and drops empty pieces. The
// empty separator degrades to a per-rune split.
func splitOnSeparator(text, separator string) []string {
	var parts []string
	if separator != "" {
		parts = strings.Split(text, separator)
	} else {
		runes := []rune(text)
		parts = make([]string, 0, len(runes))
		for _, r := range runes {
			parts = append(parts, string(r))
		}
	}

	filtered := parts[:0]
	for _, p := range parts {
		if p != "" {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

func joinPieces(pieces []string, separator string) string {
	return strings.TrimSpace(strings.Join(pieces, separator))
}

func runeLen(s string) int {
	return len([]rune(s))
}
