package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/manifold/pkg/domain"
	"github.com/aretw0/manifold/pkg/ports"
)

// Mask replaces the value of every masked custom field.
const Mask = "***"

type piiMiddleware struct {
	next     ports.EntityStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks custom field values whose
// keys match any of the patterns before they reach the store.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.EntityStore) ports.EntityStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, entity *domain.Entity, expectedVersion string) (string, error) {
	// Clone so the caller's snapshot is left untouched.
	cloned := entity.Clone()
	cloned.Snapshot.CustomFields = deepCopyMap(entity.Snapshot.CustomFields)
	maskMap(cloned.Snapshot.CustomFields, m.patterns)

	return m.next.Save(ctx, cloned, expectedVersion)
}

func (m *piiMiddleware) Load(ctx context.Context, id string) (*domain.Entity, error) {
	return m.next.Load(ctx, id)
}

func (m *piiMiddleware) Delete(ctx context.Context, id string) error {
	return m.next.Delete(ctx, id)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// Helpers

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if subMap, ok := v.(map[string]any); ok {
			out[k] = deepCopyMap(subMap)
		} else {
			out[k] = v
		}
	}
	return out
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		masked := false
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = Mask
				masked = true
				break
			}
		}

		if subMap, ok := v.(map[string]any); ok && !masked {
			maskMap(subMap, patterns)
		}
	}
}
