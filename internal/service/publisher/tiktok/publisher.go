package tiktok

import (
	"context"
	"fmt"
	"strings"

	"github.com/teamops/teamops/internal/models"
	"github.com/teamops/teamops/internal/service/publisher"
)

const Slug = "tiktok"

var requiredEnv = []string{
	"PUBLISHER_TIKTOK_CLIENT_ID",
	"PUBLISHER_TIKTOK_CLIENT_SECRET",
	"PUBLISHER_TIKTOK_ACCESS_TOKEN",
}

// Publisher uploads short-form videos / captions to TikTok. Live API calls
// are simulated.
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
		DisplayName: "TikTok (Upload)",
		Description: "Publishes short-form videos / captions to TikTok (dry-run placeholder).",
		RequiredEnv: requiredEnv,
		Notes:       "Provide `handle` or `channel_id` in schedule metadata for targeting.",
	}
}

func (p *Publisher) HealthCheck() publisher.Result {
	if missing := p.creds.Missing(requiredEnv); len(missing) > 0 {
		return publisher.Result{
			Success:  false,
			Platform: Slug,
			Message:  (&publisher.ConfigError{Platform: "TikTok", Missing: missing}).Error(),
		}
	}
	return publisher.Result{
		Success:  true,
		Platform: Slug,
		Message:  "TikTok credentials loaded",
	}
}

func (p *Publisher) PreparePayload(job *models.ContentJob) map[string]interface{} {
	title := job.Title
	if strings.TrimSpace(title) == "" {
		title = "Untitled"
	}
	return map[string]interface{}{
		"title":       title,
		"description": strings.TrimSpace(job.GeneratedContent),
	}
}

func (p *Publisher) Publish(ctx context.Context, job *models.ContentJob, entry *models.ScheduleEntry) (*publisher.Result, error) {
	if missing := p.creds.Missing(requiredEnv); len(missing) > 0 {
		return nil, &publisher.ConfigError{Platform: "TikTok", Missing: missing}
	}

	description := strings.TrimSpace(job.GeneratedContent)
	if description == "" {
		return nil, fmt.Errorf("job has no generated content for TikTok upload")
	}

	title := publisher.MetaString(entry.DeliveryMeta, "title")
	if title == "" {
		title = job.Title
	}
	if strings.TrimSpace(title) == "" {
		title = "Untitled"
	}

	preview := description
	if len(preview) > 200 {
		preview = preview[:200]
	}

	return &publisher.Result{
		Success:  true,
		Platform: Slug,
		Message:  "Simulated TikTok publish (dry run)",
		Payload: map[string]interface{}{
			"target":              publisher.MetaString(entry.DeliveryMeta, "handle", "channel_id"),
			"title":               title,
			"description_preview": preview,
		},
	}, nil
}
