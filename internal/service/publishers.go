package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/teamops/teamops/internal/config"
	"github.com/teamops/teamops/internal/service/publisher"
	"github.com/teamops/teamops/internal/service/publisher/reddit"
	"github.com/teamops/teamops/internal/service/publisher/tiktok"
	"github.com/teamops/teamops/internal/service/publisher/twitter"
	"github.com/teamops/teamops/internal/service/publisher/youtube"
)

// NewPublisherRegistry builds the closed set of supported platforms and
// their alias table. Registration happens once at startup; no runtime
// discovery.
func NewPublisherRegistry(cfg *config.PublisherConfig, logger *zap.Logger) *publisher.Registry {
	ttl, err := time.ParseDuration(cfg.CredentialTTL)
	if err != nil {
		logger.Warn("Invalid credential TTL, using default",
			zap.String("credential_ttl", cfg.CredentialTTL), zap.Error(err))
		ttl = 5 * time.Minute
	}
	creds := publisher.NewCredentials(cfg.EnvFile, ttl)

	registry := publisher.NewRegistry(logger)
	for _, p := range []publisher.Publisher{
		reddit.New(creds),
		twitter.New(creds),
		youtube.New(creds),
		tiktok.New(creds),
	} {
		if err := registry.Register(p); err != nil {
			logger.Error("Failed to register publisher",
				zap.String("platform", p.Slug()), zap.Error(err))
		}
	}

	registry.Alias("reddit_script", reddit.Slug)
	registry.Alias("twitter", twitter.Slug)
	registry.Alias("x", twitter.Slug)
	registry.Alias("youtube", youtube.Slug)

	return registry
}
