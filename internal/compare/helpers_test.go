package compare

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/doITmagic/repo-similarity/internal/llm"
)

var identRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

var pythonKeywords = map[string]bool{
	"def": true, "return": true, "class": true, "if": true, "else": true,
	"for": true, "in": true, "async": true, "await": true, "pass": true,
}

// structuralEncoder renames identifiers by order of first appearance before
// hashing, so code that differs only in naming encodes identically.
type structuralEncoder struct {
	hashing *llm.HashingProvider

	mu      sync.Mutex
	calls   int
	encoded []string
	fail    bool
}

func newStructuralEncoder() *structuralEncoder {
	p, err := llm.NewHashingProvider(256)
	if err != nil {
		panic(err)
	}
	return &structuralEncoder{hashing: p}
}

func (e *structuralEncoder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.encoded = append(e.encoded, texts...)
	fail := e.fail
	e.mu.Unlock()

	if fail {
		return nil, errors.New("model server unavailable")
	}

	canonical := make([]string, len(texts))
	for i, text := range texts {
		canonical[i] = canonicalize(text)
	}
	return e.hashing.EmbedBatch(ctx, canonical)
}

func (e *structuralEncoder) stats() (calls int, encoded []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls, append([]string(nil), e.encoded...)
}

func canonicalize(text string) string {
	names := map[string]string{}
	return identRe.ReplaceAllStringFunc(text, func(id string) string {
		if pythonKeywords[id] {
			return id
		}
		if _, ok := names[id]; !ok {
			names[id] = fmt.Sprintf("v%d", len(names))
		}
		return names[id]
	})
}

func uniqueCount(texts []string) int {
	seen := map[string]bool{}
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			seen[t] = true
		}
	}
	return len(seen)
}
