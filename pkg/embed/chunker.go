// Package embed chunks report text and stores one embedding vector per
// chunk, so uploaded documents become retrievable by similarity.
package embed

import (
	"regexp"
	"strings"
)

const (
	DefaultChunkSize = 700
	DefaultOverlap   = 100

	// Chunks shorter than this carry too little signal to embed.
	minChunkChars = 50

	abstractCharLimit = 200
	maxFastFacts      = 3
)

// Chunk is one slice of a document, sized in words with overlap so
// sentences spanning a boundary appear in both neighbors.
type Chunk struct {
	Index      int
	Text       string
	TokenCount int
}

// SplitText cuts text into overlapping word-window chunks. Windows
// whose content trims below the minimum length are skipped without
// consuming an index.
func SplitText(text string, size, overlap int) []Chunk {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultOverlap
	}
	words := strings.Fields(text)
	var chunks []Chunk
	index := 0
	step := size - overlap
	for i := 0; i < len(words); i += step {
		end := i + size
		if end > len(words) {
			end = len(words)
		}
		window := words[i:end]
		chunkText := strings.Join(window, " ")
		if len(strings.TrimSpace(chunkText)) > minChunkChars {
			chunks = append(chunks, Chunk{Index: index, Text: chunkText, TokenCount: len(window)})
			index++
		}
		if end == len(words) {
			break
		}
	}
	return chunks
}

// Metadata is a best-effort structural summary of one chunk.
type Metadata struct {
	Company   string
	Section   string
	Abstract  string
	FastFacts []string
	Quote     string
}

var (
	companyRes = []*regexp.Regexp{
		regexp.MustCompile(`(?:Company|Corporation|Inc\.|LLC|Ltd\.?)\s+([A-Z][A-Za-z\s&]+)`),
		regexp.MustCompile(`([A-Z][A-Za-z]+(?:\s+[A-Z][A-Za-z]+){0,2})\s+(?:Inc|LLC|Corp|Ltd)`),
	}
	sectionRes = []*regexp.Regexp{
		regexp.MustCompile(`(?m)^([A-Z][A-Za-z\s]+(?:Overview|Summary|Analysis|Findings|Conclusion)):`),
		regexp.MustCompile(`(?m)^(?:Section|Chapter)\s+\d+[:\s]+([A-Z][A-Za-z\s]+)`),
	}
	sentenceSplitRe = regexp.MustCompile(`[.!?]\s+`)
	bulletRe        = regexp.MustCompile(`(?m)^[-•*]\s+(.+)$`)
	quoteRe         = regexp.MustCompile(`"([^"]{20,150})"`)
)

// ExtractMetadata pulls company, section, abstract, bullet facts, and
// a representative quote from one chunk. The report title is the
// company fallback.
func ExtractMetadata(chunkText, reportTitle string) Metadata {
	var meta Metadata
	for _, re := range companyRes {
		if m := re.FindStringSubmatch(chunkText); m != nil {
			meta.Company = strings.TrimSpace(m[1])
			break
		}
	}
	if meta.Company == "" && reportTitle != "" {
		if before, _, found := strings.Cut(reportTitle, "-"); found {
			meta.Company = strings.TrimSpace(before)
		} else {
			meta.Company = reportTitle
		}
	}
	for _, re := range sectionRes {
		if m := re.FindStringSubmatch(chunkText); m != nil {
			meta.Section = strings.TrimSpace(m[1])
			break
		}
	}
	if sentences := sentenceSplitRe.Split(chunkText, 2); len(sentences) > 0 && sentences[0] != "" {
		abstract := sentences[0]
		if runes := []rune(abstract); len(runes) > abstractCharLimit {
			abstract = string(runes[:abstractCharLimit])
		}
		meta.Abstract = abstract
	}
	for _, m := range bulletRe.FindAllStringSubmatch(chunkText, maxFastFacts) {
		meta.FastFacts = append(meta.FastFacts, strings.TrimSpace(m[1]))
	}
	if m := quoteRe.FindStringSubmatch(chunkText); m != nil {
		meta.Quote = m[1]
	}
	return meta
}
