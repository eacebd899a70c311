package location

import (
	"context"
	"sync"
	"time"

	"agent-fleettrack/internal/track"
)

// Fixture is a scripted provider for running the agent without GPS
// hardware. It cycles through a fixed route and always grants
// permission on request.
type Fixture struct {
	mu      sync.Mutex
	granted bool
	route   []track.Sample
	idx     int
}

// DefaultRoute is a short loop through the Cartagena old town.
func DefaultRoute() []track.Sample {
	return []track.Sample{
		{Latitude: 10.4236, Longitude: -75.5518, Accuracy: 8},
		{Latitude: 10.4241, Longitude: -75.5503, Accuracy: 6},
		{Latitude: 10.4252, Longitude: -75.5489, Accuracy: 7},
		{Latitude: 10.4266, Longitude: -75.5478, Accuracy: 5},
	}
}

func NewFixture(route []track.Sample) *Fixture {
	if len(route) == 0 {
		route = DefaultRoute()
	}
	return &Fixture{route: route}
}

func (f *Fixture) Permission() track.Permission {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.granted {
		return track.PermissionGranted
	}
	return track.PermissionUndetermined
}

func (f *Fixture) RequestPermission(_ context.Context) (track.Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.granted = true
	return track.PermissionGranted, nil
}

func (f *Fixture) Current(_ context.Context) (track.Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.route[f.idx%len(f.route)]
	f.idx++
	s.Timestamp = time.Now()
	return s, nil
}

func (f *Fixture) Watch(opts track.WatchOptions, fn func(track.Sample)) (track.Subscription, error) {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	quit := make(chan struct{})
	go func() {
		ticker := time.NewTicker(opts.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-quit:
				return
			case <-ticker.C:
				s, _ := f.Current(context.Background())
				fn(s)
			}
		}
	}()
	return &watchSub{quit: quit}, nil
}
