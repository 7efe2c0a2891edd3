package publisher

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Registry maps platform identifiers to publishing capabilities. Aliases
// ("x" -> "twitter_x", "youtube" -> "youtube_shorts") are resolved before
// lookup, so every caller-facing identifier funnels into one slug.
type Registry struct {
	publishers map[string]Publisher
	aliases    map[string]string
	logger     *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		publishers: make(map[string]Publisher),
		aliases:    make(map[string]string),
		logger:     logger,
	}
}

// Register adds a publisher under its slug. The slug itself always resolves.
func (r *Registry) Register(p Publisher) error {
	slug := p.Slug()
	if _, exists := r.publishers[slug]; exists {
		return fmt.Errorf("publisher for platform %s already registered", slug)
	}

	r.publishers[slug] = p
	r.aliases[slug] = slug
	r.logger.Info("Publisher registered", zap.String("platform", slug))
	return nil
}

// Alias routes an alternate identifier to a registered slug.
func (r *Registry) Alias(alias, slug string) {
	r.aliases[normalizeKey(alias)] = slug
}

// Normalize resolves a raw platform identifier to its canonical slug.
func (r *Registry) Normalize(platform string) (string, error) {
	key := normalizeKey(platform)
	slug, ok := r.aliases[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platform)
	}
	if _, ok := r.publishers[slug]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platform)
	}
	return slug, nil
}

// Resolve returns the publisher for a platform identifier or alias.
func (r *Registry) Resolve(platform string) (Publisher, error) {
	slug, err := r.Normalize(platform)
	if err != nil {
		return nil, err
	}
	return r.publishers[slug], nil
}

// List returns publisher metadata ordered by slug, for discovery endpoints.
func (r *Registry) List() []Info {
	infos := make([]Info, 0, len(r.publishers))
	for _, p := range r.publishers {
		infos = append(infos, p.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Slug < infos[j].Slug })
	return infos
}

func normalizeKey(platform string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(platform)), "-", "_")
}
