package twitter

import (
	"context"
	"fmt"
	"strings"

	"github.com/teamops/teamops/internal/models"
	"github.com/teamops/teamops/internal/service/publisher"
)

const Slug = "twitter_x"

var requiredEnv = []string{
	"PUBLISHER_TWITTER_API_KEY",
	"PUBLISHER_TWITTER_API_SECRET",
	"PUBLISHER_TWITTER_ACCESS_TOKEN",
	"PUBLISHER_TWITTER_ACCESS_SECRET",
	"PUBLISHER_TWITTER_BEARER_TOKEN",
}

// Publisher posts tweets or threads through the v2 API with OAuth 1.0a user
// context. Live API calls are simulated.
type Publisher struct {
	creds *publisher.Credentials
}

func New(creds *publisher.Credentials) *Publisher {
	return &Publisher{creds: creds}
}

func (p *Publisher) Slug() string { return Slug }

func (p *Publisher) Info() publisher.Info {
	return publisher.Info{
		Slug:        Slug,
		DisplayName: "Twitter / X (API v2)",
		Description: "Publishes threads or tweets using the v2 API and OAuth 1.0a user context.",
		RequiredEnv: requiredEnv,
		Notes:       "Provide `handle` in schedule metadata to target the posting account.",
	}
}

func (p *Publisher) HealthCheck() publisher.Result {
	if missing := p.creds.Missing(requiredEnv); len(missing) > 0 {
		return publisher.Result{
			Success:  false,
			Platform: Slug,
			Message:  (&publisher.ConfigError{Platform: "Twitter/X", Missing: missing}).Error(),
		}
	}
	return publisher.Result{
		Success:  true,
		Platform: Slug,
		Message:  "Twitter/X credentials loaded",
	}
}

func (p *Publisher) PreparePayload(job *models.ContentJob) map[string]interface{} {
	return map[string]interface{}{
		"title": job.Title,
		"text":  strings.TrimSpace(job.GeneratedContent),
	}
}

func (p *Publisher) Publish(ctx context.Context, job *models.ContentJob, entry *models.ScheduleEntry) (*publisher.Result, error) {
	if missing := p.creds.Missing(requiredEnv); len(missing) > 0 {
		return nil, &publisher.ConfigError{Platform: "Twitter/X", Missing: missing}
	}

	handle := publisher.MetaString(entry.DeliveryMeta, "handle", "account")
	if handle == "" {
		return nil, fmt.Errorf("schedule metadata must include `handle` for Twitter/X publishing")
	}

	body := strings.TrimSpace(job.GeneratedContent)
	if body == "" {
		return nil, fmt.Errorf("job has no generated content for Twitter/X publishing")
	}

	return &publisher.Result{
		Success:  true,
		Platform: Slug,
		Message:  "Simulated Twitter/X publish (dry run)",
		Payload: map[string]interface{}{
			"handle":  handle,
			"preview": preview(body),
		},
	}, nil
}

// preview keeps the first line of the thread, capped at tweet length.
func preview(body string) string {
	line := body
	if idx := strings.IndexByte(body, '\n'); idx >= 0 {
		line = body[:idx]
	}
	if len(line) > 240 {
		line = line[:240]
	}
	return line
}
