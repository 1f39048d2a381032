package rag

import (
	"fmt"
	"strings"

	"github.com/ternarybob/docquery/internal/models"
)

// NoContextAnswer is returned verbatim, without invoking the generation
// provider, when retrieval finds nothing above the similarity threshold.
const NoContextAnswer = "No relevant information was found in the uploaded documents. Please upload a document before asking a question."

// notFoundPhrase is the fixed sentence the model must use when the
// retrieved excerpts do not contain the answer.
const notFoundPhrase = "No information found in the documents."

// groundedSystemPrompt constrains the model to the retrieved excerpts.
const groundedSystemPrompt = `You are a document question-answering assistant. You answer questions using only the numbered document excerpts provided in the context.

Rules:
1. Base your answer strictly on the provided excerpts. Do not use outside knowledge.
2. Cite the excerpts you used with bracketed numbers, for example [1] or [2].
3. If the excerpts do not contain the information needed to answer, reply exactly: "` + notFoundPhrase + `"
4. Answer in the same language as the question.
5. Be concise and factual.`

// buildContextBlock renders the retrieved chunks as numbered excerpts,
// 1-indexed in rank order, separated by blank lines. The page reference is
// omitted for sources without page structure.
func buildContextBlock(sources []models.SourceChunk) string {
	blocks := make([]string, 0, len(sources))
	for i, src := range sources {
		var header string
		if src.PageNumber > 0 {
			header = fmt.Sprintf("[%d] from %q (page %d): ", i+1, src.DocumentTitle, src.PageNumber)
		} else {
			header = fmt.Sprintf("[%d] from %q: ", i+1, src.DocumentTitle)
		}
		blocks = append(blocks, header+src.Content)
	}
	return strings.Join(blocks, "\n\n")
}

// buildUserPrompt combines the context block with the question.
func buildUserPrompt(contextBlock, question string) string {
	return "Context:\n\n" + contextBlock + "\n\nQuestion: " + question
}
