package service

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/teamops/teamops/internal/models"
)

type fakeThrottleStore struct {
	postedToday int64
	lastPosted  *time.Time
}

func (f *fakeThrottleStore) CountPostedToday(uint, time.Time) (int64, error) {
	return f.postedToday, nil
}

func (f *fakeThrottleStore) LastPostedAt(uint) (*time.Time, error) {
	return f.lastPosted, nil
}

func intPtr(v int) *int { return &v }

func TestCanPublish(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	recently := now.Add(-30 * time.Second)
	aWhileAgo := now.Add(-10 * time.Minute)

	tests := []struct {
		name    string
		channel *models.Channel
		store   fakeThrottleStore
		want    bool
	}{
		{
			name:    "nil channel is unthrottled",
			channel: nil,
			want:    true,
		},
		{
			name:    "no limits configured",
			channel: &models.Channel{Name: "main"},
			store:   fakeThrottleStore{postedToday: 100, lastPosted: &recently},
			want:    true,
		},
		{
			name:    "under daily cap",
			channel: &models.Channel{Name: "main", MaxPerDay: intPtr(5)},
			store:   fakeThrottleStore{postedToday: 4},
			want:    true,
		},
		{
			name:    "daily cap reached",
			channel: &models.Channel{Name: "main", MaxPerDay: intPtr(5)},
			store:   fakeThrottleStore{postedToday: 5},
			want:    false,
		},
		{
			name:    "min interval not elapsed",
			channel: &models.Channel{Name: "main", MinIntervalSeconds: intPtr(120)},
			store:   fakeThrottleStore{lastPosted: &recently},
			want:    false,
		},
		{
			name:    "min interval elapsed",
			channel: &models.Channel{Name: "main", MinIntervalSeconds: intPtr(120)},
			store:   fakeThrottleStore{lastPosted: &aWhileAgo},
			want:    true,
		},
		{
			name:    "min interval with no prior post",
			channel: &models.Channel{Name: "main", MinIntervalSeconds: intPtr(120)},
			store:   fakeThrottleStore{},
			want:    true,
		},
		{
			name:    "cap ok but interval blocks",
			channel: &models.Channel{Name: "main", MaxPerDay: intPtr(10), MinIntervalSeconds: intPtr(120)},
			store:   fakeThrottleStore{postedToday: 1, lastPosted: &recently},
			want:    false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			policy := NewThrottlePolicy(&tt.store, zap.NewNop())
			got, err := policy.CanPublish(tt.channel, now)
			if err != nil {
				t.Fatalf("CanPublish(): %v", err)
			}
			if got != tt.want {
				t.Errorf("CanPublish() = %v, want %v", got, tt.want)
			}
		})
	}
}
