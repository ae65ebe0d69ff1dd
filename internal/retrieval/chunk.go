package retrieval

import "strings"

// DefaultChunkSize is the soft character limit for a chunk.
const DefaultChunkSize = 1200

// Chunk splits a markdown document into chunks of roughly maxChars.
// Headings start a new chunk and the heading line is kept with its body.
// Paragraphs are never split unless a single paragraph exceeds maxChars.
func Chunk(doc string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultChunkSize
	}

	var (
		chunks []string
		cur    strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			chunks = append(chunks, s)
		}
		cur.Reset()
	}

	for _, para := range paragraphs(doc) {
		if strings.HasPrefix(para, "#") {
			flush()
		}
		if cur.Len() > 0 && cur.Len()+len(para)+2 > maxChars {
			flush()
		}
		for len(para) > maxChars {
			cut := splitPoint(para, maxChars)
			cur.WriteString(para[:cut])
			flush()
			para = strings.TrimSpace(para[cut:])
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(para)
	}
	flush()
	return chunks
}

func paragraphs(doc string) []string {
	doc = strings.ReplaceAll(doc, "\r\n", "\n")
	var out []string
	for _, p := range strings.Split(doc, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitPoint prefers the last whitespace before limit.
func splitPoint(s string, limit int) int {
	if i := strings.LastIndexAny(s[:limit], " \n\t"); i > 0 {
		return i
	}
	return limit
}
