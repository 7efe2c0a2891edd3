package publisher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/teamops/teamops/internal/models"
)

// ErrUnsupportedPlatform is returned when a platform identifier resolves to
// no registered publisher, even after alias normalization.
var ErrUnsupportedPlatform = errors.New("unsupported publishing platform")

// ConfigError signals missing publisher credentials. The dispatcher records
// it as a failed attempt; it never crashes the loop.
type ConfigError struct {
	Platform string
	Missing  []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing %s credentials: %s", e.Platform, strings.Join(e.Missing, ", "))
}

// Result represents the outcome of a health check or publish operation.
type Result struct {
	Success  bool                   `json:"success"`
	Platform string                 `json:"platform,omitempty"`
	Message  string                 `json:"message"`
	Payload  map[string]interface{} `json:"payload,omitempty"`
}

// Info describes a publisher for discovery endpoints.
type Info struct {
	Slug        string   `json:"slug"`
	DisplayName string   `json:"display_name"`
	Description string   `json:"description"`
	RequiredEnv []string `json:"required_env"`
	Notes       string   `json:"notes,omitempty"`
}

// Publisher is the capability the dispatcher resolves per platform.
// Implementations are stateless: they validate configuration, format a
// payload from the job and schedule entry, and report a result. Failure is
// signaled either through Result.Success=false or a returned error; callers
// treat both identically.
type Publisher interface {
	Slug() string
	Info() Info

	HealthCheck() Result
	PreparePayload(job *models.ContentJob) map[string]interface{}
	Publish(ctx context.Context, job *models.ContentJob, entry *models.ScheduleEntry) (*Result, error)
}

// MetaString returns the first non-empty string found in the delivery
// metadata map under any of the given keys.
func MetaString(meta models.JSONMap, keys ...string) string {
	for _, key := range keys {
		v, ok := meta[key]
		if !ok {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
