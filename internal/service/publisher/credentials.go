package publisher

import (
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Credentials resolves publisher secrets, checking process environment
// variables first and falling back to a dotenv file. The file snapshot is
// cached for a TTL; Refresh forces a reload regardless of age.
type Credentials struct {
	path string
	ttl  time.Duration

	mu       sync.Mutex
	values   map[string]string
	loadedAt time.Time
}

// NewCredentials creates a credential source backed by the dotenv file at
// path. An empty path disables the file fallback.
func NewCredentials(path string, ttl time.Duration) *Credentials {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Credentials{path: path, ttl: ttl}
}

// Get returns the credential value, or "" when unset everywhere.
func (c *Credentials) Get(name string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return c.fileValues()[name]
}

// Missing returns the subset of names with no resolvable value.
func (c *Credentials) Missing(names []string) []string {
	var missing []string
	for _, name := range names {
		if c.Get(name) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// Refresh reloads the dotenv file immediately.
func (c *Credentials) Refresh() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reloadLocked()
}

func (c *Credentials) fileValues() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.values == nil || time.Since(c.loadedAt) > c.ttl {
		// A missing file just means no fallback values.
		_ = c.reloadLocked()
	}
	return c.values
}

func (c *Credentials) reloadLocked() error {
	c.loadedAt = time.Now()
	if c.values == nil {
		c.values = map[string]string{}
	}
	if c.path == "" {
		return nil
	}

	vals, err := godotenv.Read(c.path)
	if err != nil {
		return err
	}
	c.values = vals
	return nil
}
