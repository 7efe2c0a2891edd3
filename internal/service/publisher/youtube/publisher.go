package youtube

import (
	"context"
	"fmt"
	"strings"

	"github.com/teamops/teamops/internal/models"
	"github.com/teamops/teamops/internal/service/publisher"
)

const Slug = "youtube_shorts"

var requiredEnv = []string{
	"PUBLISHER_YOUTUBE_CLIENT_ID",
	"PUBLISHER_YOUTUBE_CLIENT_SECRET",
	"PUBLISHER_YOUTUBE_REFRESH_TOKEN",
	"PUBLISHER_YOUTUBE_CHANNEL_ID",
}

// Publisher uploads scripted Shorts via the YouTube Data API. Live API calls
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
		DisplayName: "YouTube Shorts",
		Description: "Uploads scripted Shorts via the YouTube Data API.",
		RequiredEnv: requiredEnv,
		Notes:       "Schedule metadata may include `privacy_status` and `tags` for Shorts uploads.",
	}
}

func (p *Publisher) HealthCheck() publisher.Result {
	if missing := p.creds.Missing(requiredEnv); len(missing) > 0 {
		return publisher.Result{
			Success:  false,
			Platform: Slug,
			Message:  (&publisher.ConfigError{Platform: "YouTube", Missing: missing}).Error(),
		}
	}
	return publisher.Result{
		Success:  true,
		Platform: Slug,
		Message:  "YouTube Shorts credentials loaded",
		Payload: map[string]interface{}{
			"channel": p.creds.Get("PUBLISHER_YOUTUBE_CHANNEL_ID"),
		},
	}
}

func (p *Publisher) PreparePayload(job *models.ContentJob) map[string]interface{} {
	return map[string]interface{}{
		"title":         job.Title,
		"description":   strings.TrimSpace(job.GeneratedContent),
		"privacyStatus": "unlisted",
	}
}

func (p *Publisher) Publish(ctx context.Context, job *models.ContentJob, entry *models.ScheduleEntry) (*publisher.Result, error) {
	if missing := p.creds.Missing(requiredEnv); len(missing) > 0 {
		return nil, &publisher.ConfigError{Platform: "YouTube", Missing: missing}
	}

	description := strings.TrimSpace(job.GeneratedContent)
	if description == "" {
		return nil, fmt.Errorf("job has no generated script to upload to YouTube Shorts")
	}

	title := publisher.MetaString(entry.DeliveryMeta, "title")
	if title == "" {
		title = job.Title
	}
	if strings.TrimSpace(title) == "" {
		title = "Untitled Short"
	}

	privacy := publisher.MetaString(entry.DeliveryMeta, "privacy_status")
	if privacy == "" {
		privacy = "unlisted"
	}

	preview := description
	if len(preview) > 200 {
		preview = preview[:200]
	}

	return &publisher.Result{
		Success:  true,
		Platform: Slug,
		Message:  "Simulated YouTube Shorts publish (dry run)",
		Payload: map[string]interface{}{
			"channel":             p.creds.Get("PUBLISHER_YOUTUBE_CHANNEL_ID"),
			"title":               title,
			"privacy_status":      privacy,
			"tags":                metaTags(entry.DeliveryMeta),
			"description_preview": preview,
		},
	}, nil
}

// metaTags accepts either a JSON list or a comma-separated string.
func metaTags(meta models.JSONMap) []string {
	var tags []string
	switch v := meta["tags"].(type) {
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				tags = append(tags, strings.TrimSpace(s))
			}
		}
	case string:
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				tags = append(tags, part)
			}
		}
	}
	return tags
}
