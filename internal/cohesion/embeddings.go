package cohesion

import (
	"context"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	openai "github.com/sashabaranov/go-openai"

	"github.com/sibyllinesoft/valknut/internal/config"
)

// EmbeddingProvider turns entity text into unit vectors, 
// step 2's "local embedding provider (dimension D, returns unit vectors)".
type EmbeddingProvider interface {
	Dimension() int
	EmbedOne(text string) ([]float32, error)
	EmbedBatch(texts []string) ([][]float32, error)
}

// NewEmbeddingProvider builds the provider named by cfg.Provider. "local" (the
// default, per the Open Question decision in DESIGN.md) needs no network
// access and is deterministic; "openai" is the optional external provider,
// gated on an API key being configured.
func NewEmbeddingProvider(cfg config.CohesionEmbedding, apiKey string) (EmbeddingProvider, error) {
	switch cfg.Provider {
	case "", "local":
		dim := cfg.Dimension
		if dim <= 0 {
			dim = 64
		}
		return &localHashProvider{dimension: dim}, nil
	case "openai":
		if apiKey == "" {
			return nil, fmt.Errorf("cohesion: openai embedding provider configured without an API key")
		}
		model := cfg.Model
		if model == "" {
			model = string(openai.SmallEmbedding3)
		}
		return &openaiProvider{client: openai.NewClient(apiKey), model: openai.EmbeddingModel(model)}, nil
	default:
		return nil, fmt.Errorf("cohesion: unknown embedding provider %q", cfg.Provider)
	}
}

// localHashProvider is a deterministic feature-hashing embedding: each
// stemmed word contributes a signed unit to one of D buckets (the hashing
// trick), and the resulting vector is L2-normalized. No network dependency,
// no training data, fully reproducible across runs on the same text.
type localHashProvider struct {
	dimension int
}

func (p *localHashProvider) Dimension() int { return p.dimension }

func (p *localHashProvider) EmbedOne(text string) ([]float32, error) {
	vec := make([]float32, p.dimension)
	words := strings.Fields(text)
	if len(words) == 0 {
		return vec, nil
	}
	for _, w := range words {
		h := xxhash.Sum64String(w)
		bucket := int(h % uint64(p.dimension))
		sign := float32(1.0)
		if (h>>1)&1 == 1 {
			sign = -1.0
		}
		vec[bucket] += sign
	}
	return Normalize(vec), nil
}

func (p *localHashProvider) EmbedBatch(texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := p.EmbedOne(t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// openaiProvider delegates embedding to the OpenAI embeddings API, the
// "optional external embedding calls" suspension point allows.
type openaiProvider struct {
	client *openai.Client
	model  openai.EmbeddingModel
	dim    int
}

func (p *openaiProvider) Dimension() int { return p.dim }

func (p *openaiProvider) EmbedOne(text string) ([]float32, error) {
	vecs, err := p.EmbedBatch([]string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (p *openaiProvider) EmbedBatch(texts []string) ([][]float32, error) {
	resp, err := p.client.CreateEmbeddings(context.Background(), openai.EmbeddingRequest{
		Input: texts,
		Model: p.model,
	})
	if err != nil {
		return nil, fmt.Errorf("cohesion: openai embedding request failed: %w", err)
	}
	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		if p.dim == 0 {
			p.dim = len(d.Embedding)
		}
		out[i] = Normalize(d.Embedding)
	}
	return out, nil
}
