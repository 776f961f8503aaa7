// Package tenant carries the caller's academy id through the request
// context. Every store call asserts the id is present and ANDs it into its
// queries, so cross-academy reads are indistinguishable from not-found.
package tenant

import (
	"context"

	"github.com/AdhamEssa01/accademy/internal/domain"
)

type ctxKey struct{}

var ctxKeyAcademy = ctxKey{}

// WithAcademy returns a context scoped to the given academy id.
func WithAcademy(ctx context.Context, academyID string) context.Context {
	return context.WithValue(ctx, ctxKeyAcademy, academyID)
}

// FromContext returns the academy id set on the context, if any.
func FromContext(ctx context.Context) string {
	if v := ctx.Value(ctxKeyAcademy); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Require returns the academy id or ErrForbidden when the context carries
// no academy scope.
func Require(ctx context.Context) (string, error) {
	id := FromContext(ctx)
	if id == "" {
		return "", domain.Forbiddenf("no academy scope")
	}
	return id, nil
}
