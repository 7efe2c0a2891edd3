package reddit

import (
	"context"
	"fmt"
	"strings"

	"github.com/teamops/teamops/internal/models"
	"github.com/teamops/teamops/internal/service/publisher"
)

const Slug = "reddit"

var requiredEnv = []string{
	"PUBLISHER_REDDIT_CLIENT_ID",
	"PUBLISHER_REDDIT_CLIENT_SECRET",
	"PUBLISHER_REDDIT_USERNAME",
	"PUBLISHER_REDDIT_PASSWORD",
	"PUBLISHER_REDDIT_USER_AGENT",
}

// Publisher posts text submissions through a personal script-type OAuth app.
// Live API calls are simulated; the payload it would submit is returned in
// the result.
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
		DisplayName: "Reddit (OAuth script app)",
		Description: "Publishes text posts using a personal script-type OAuth application.",
		RequiredEnv: requiredEnv,
		Notes:       "Set target subreddit via schedule metadata `subreddit`.",
	}
}

func (p *Publisher) HealthCheck() publisher.Result {
	if missing := p.creds.Missing(requiredEnv); len(missing) > 0 {
		return publisher.Result{
			Success:  false,
			Platform: Slug,
			Message:  (&publisher.ConfigError{Platform: "Reddit", Missing: missing}).Error(),
		}
	}
	return publisher.Result{
		Success:  true,
		Platform: Slug,
		Message:  "Reddit credentials loaded",
		Payload: map[string]interface{}{
			"identity": p.creds.Get("PUBLISHER_REDDIT_USERNAME"),
		},
	}
}

func (p *Publisher) PreparePayload(job *models.ContentJob) map[string]interface{} {
	return map[string]interface{}{
		"title": titleOrDefault(job),
		"text":  strings.TrimSpace(job.GeneratedContent),
	}
}

func (p *Publisher) Publish(ctx context.Context, job *models.ContentJob, entry *models.ScheduleEntry) (*publisher.Result, error) {
	if missing := p.creds.Missing(requiredEnv); len(missing) > 0 {
		return nil, &publisher.ConfigError{Platform: "Reddit", Missing: missing}
	}

	subreddit := publisher.MetaString(entry.DeliveryMeta, "subreddit", "target")
	if subreddit == "" {
		return nil, fmt.Errorf("schedule metadata is missing `subreddit` for Reddit publish")
	}

	body := strings.TrimSpace(job.GeneratedContent)
	if body == "" {
		return nil, fmt.Errorf("job has no generated content to post to Reddit")
	}

	title := publisher.MetaString(entry.DeliveryMeta, "title")
	if title == "" {
		title = titleOrDefault(job)
	}

	return &publisher.Result{
		Success:  true,
		Platform: Slug,
		Message:  "Simulated Reddit publish (dry run)",
		Payload: map[string]interface{}{
			"subreddit": subreddit,
			"title":     title,
			"preview":   preview(body),
			"username":  p.creds.Get("PUBLISHER_REDDIT_USERNAME"),
		},
	}, nil
}

func titleOrDefault(job *models.ContentJob) string {
	if strings.TrimSpace(job.Title) != "" {
		return job.Title
	}
	return "Untitled"
}

// preview collapses whitespace and truncates to a submission teaser.
func preview(body string) string {
	flat := strings.Join(strings.Fields(body), " ")
	if len(flat) > 180 {
		flat = flat[:180]
	}
	return flat
}
