package embedding

import (
	"context"
	"hash/fnv"
	"math"

	"docqa/internal/lexical"

	"github.com/philippgille/chromem-go"
)

// NewHashing returns an offline embedding function: a bag of words hashed
// into dim buckets, L2-normalized. Texts sharing terms get a positive
// cosine similarity. The last bucket is a constant bias so no vector is
// ever zero.
func NewHashing(dim int) chromem.EmbeddingFunc {
	if dim < 2 {
		dim = 2
	}
	return func(ctx context.Context, text string) ([]float32, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		v := make([]float32, dim)
		for _, tok := range lexical.Tokenize(text) {
			h := fnv.New32a()
			h.Write([]byte(tok))
			v[int(h.Sum32()%uint32(dim-1))]++
		}
		v[dim-1] = 0.5

		var norm float64
		for _, x := range v {
			norm += float64(x) * float64(x)
		}
		scale := float32(1 / math.Sqrt(norm))
		for i := range v {
			v[i] *= scale
		}
		return v, nil
	}
}
