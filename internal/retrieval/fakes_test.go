package retrieval

import (
	"context"
	"errors"
	"strings"
)

// letterEmbedder embeds text as letter frequencies.
type letterEmbedder struct {
	err error
}

func (e letterEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	v := make([]float32, 27)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	// Keep the vector non-zero for texts without letters.
	v[26] = 1
	return v, nil
}

func (e letterEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.EmbedQuery(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

var errEmbedDown = errors.New("embedding server unavailable")
