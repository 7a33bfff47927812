package paramstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Resolver looks up secrets that were not supplied through the environment.
// Parameter names are <prefix>/<name>.
type Resolver struct {
	getter Getter
	prefix string
}

// NewResolver returns a Resolver. A nil getter yields a Resolver that only
// passes explicit values through.
func NewResolver(getter Getter, prefix string) *Resolver {
	return &Resolver{
		getter: getter,
		prefix: strings.TrimRight(strings.TrimSpace(prefix), "/"),
	}
}

// ParameterName joins prefix and name the way Resolve does.
func (r *Resolver) ParameterName(name string) string {
	name = strings.Trim(strings.TrimSpace(name), "/")
	if r.prefix == "" {
		return "/" + name
	}
	return r.prefix + "/" + name
}

// Resolve returns explicit when it is set, otherwise the value of the
// parameter name under the prefix.
func (r *Resolver) Resolve(ctx context.Context, explicit, name string) (string, error) {
	if v := strings.TrimSpace(explicit); v != "" {
		return v, nil
	}
	if r == nil || r.getter == nil || r.prefix == "" {
		return "", fmt.Errorf("paramstore: %s: %w", name, errNoSource)
	}
	v, err := r.getter.GetParameter(ctx, r.ParameterName(name))
	if err != nil {
		return "", err
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", fmt.Errorf("paramstore: %s: parameter is empty", r.ParameterName(name))
	}
	return v, nil
}

type batchGetter interface {
	Lookup(ctx context.Context, names ...string) (map[string]string, error)
}

// Prefetch loads names under the prefix in one round trip when the getter
// supports batching, so the Resolve calls that follow are served from cache.
func (r *Resolver) Prefetch(ctx context.Context, names ...string) error {
	if r == nil {
		return nil
	}
	bg, ok := r.getter.(batchGetter)
	if !ok || r.prefix == "" || len(names) == 0 {
		return nil
	}
	full := make([]string, len(names))
	for i, n := range names {
		full[i] = r.ParameterName(n)
	}
	_, err := bg.Lookup(ctx, full...)
	return err
}

var errNoSource = errors.New("not set and no parameter prefix configured")
