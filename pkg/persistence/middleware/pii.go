package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/petri/pkg/domain"
	"github.com/aretw0/petri/pkg/ports"
)

type piiMiddleware struct {
	next     ports.SubjectStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks attribute values whose
// keys match the patterns before they reach the underlying store.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.SubjectStore) ports.SubjectStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Write(ctx context.Context, subjects []domain.Subject) error {
	// Clone before masking so the batch held by the engine keeps its values.
	masked := make([]domain.Subject, len(subjects))
	for i := range subjects {
		clone := subjects[i].Clone()
		maskMap(clone.Attributes, m.patterns)
		masked[i] = *clone
	}
	return m.next.Write(ctx, masked)
}

func (m *piiMiddleware) Fetch(ctx context.Context) ([]domain.Subject, error) {
	return m.next.Fetch(ctx)
}

func (m *piiMiddleware) Get(ctx context.Context, id string) (*domain.Subject, error) {
	return m.next.Get(ctx, id)
}

func (m *piiMiddleware) Delete(ctx context.Context, id string) error {
	return m.next.Delete(ctx, id)
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = "***"
				break
			}
		}

		// Recurse if map
		if subMap, ok := v.(map[string]any); ok {
			maskMap(subMap, patterns)
		}
	}
}
