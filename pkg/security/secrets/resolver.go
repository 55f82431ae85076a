package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// refPattern matches ${secret:name}.
var refPattern = regexp.MustCompile(`\$\{secret:([^}]+)\}`)

// Resolver looks secrets up across sources in priority order.
type Resolver struct {
	sources []Source
	logger  *slog.Logger
}

// NewResolver creates a resolver trying sources in the given order.
func NewResolver(logger *slog.Logger, sources ...Source) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{sources: sources, logger: logger}
}

// HasReference reports whether s contains a ${secret:name} reference.
func HasReference(s string) bool {
	return refPattern.MatchString(s)
}

// Lookup returns the value of name from the first source that has it.
// Sources reporting ErrNotFound are skipped; any other failure stops the
// search.
func (r *Resolver) Lookup(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("empty secret name")
	}

	for _, src := range r.sources {
		value, err := src.Lookup(ctx, name)
		if err == nil {
			r.logger.Debug("secret resolved", "source", src.Name(), "name", redactName(name))
			return value, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", fmt.Errorf("secret %q from %s: %w", name, src.Name(), err)
		}
	}
	return "", fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Expand replaces every ${secret:name} in s with its value. Unresolvable
// references are left in place and reported together.
func (r *Resolver) Expand(ctx context.Context, s string) (string, error) {
	var errs []error

	out := refPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := refPattern.FindStringSubmatch(match)[1]
		value, err := r.Lookup(ctx, name)
		if err != nil {
			errs = append(errs, err)
			return match
		}
		return value
	})

	return out, errors.Join(errs...)
}

// redactName keeps log lines useful without printing the whole name.
func redactName(name string) string {
	if len(name) <= 4 {
		return "***"
	}
	return name[:2] + "..." + name[len(name)-2:]
}
