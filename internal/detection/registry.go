// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package detection

import (
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/cadence/internal/metrics"
	"github.com/tomtom215/cadence/internal/models"
)

// deviceEntry is the in-memory state for one active device. mu is held for
// the whole ingest pipeline; every other field is guarded by the registry
// lock.
type deviceEntry struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	inflight int

	firstSeen   time.Time
	lastSeen    time.Time
	batches     int64
	lastScore   float64
	lastAnomaly bool
}

// DeviceRegistry tracks active devices. Entries are created by Acquire on
// first ingest, never by lookups, and removed by Sweep once idle.
type DeviceRegistry struct {
	mu      sync.Mutex
	devices map[string]*deviceEntry
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

// NewDeviceRegistry creates a registry. A perSecond of 0 disables the
// per-device batch rate limit.
func NewDeviceRegistry(perSecond float64, burst int) *DeviceRegistry {
	if burst < 1 {
		burst = 1
	}
	return &DeviceRegistry{
		devices: make(map[string]*deviceEntry),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		now:     time.Now,
	}
}

// DeviceLease is exclusive access to one device's pipeline. Release must be
// called exactly once.
type DeviceLease struct {
	registry *DeviceRegistry
	deviceID string
	entry    *deviceEntry
	released bool
}

// Acquire registers deviceID if needed, applies the rate limit and blocks
// until no other batch for the device is in progress.
func (r *DeviceRegistry) Acquire(deviceID string) (*DeviceLease, error) {
	r.mu.Lock()
	entry, ok := r.devices[deviceID]
	now := r.now()
	if !ok {
		entry = &deviceEntry{firstSeen: now}
		if r.limit > 0 {
			entry.limiter = rate.NewLimiter(r.limit, r.burst)
		}
		r.devices[deviceID] = entry
		metrics.RegistryDevices.Set(float64(len(r.devices)))
	}
	entry.lastSeen = now
	if entry.limiter != nil && !entry.limiter.AllowN(now, 1) {
		r.mu.Unlock()
		return nil, ErrRateLimited
	}
	entry.inflight++
	r.mu.Unlock()

	entry.mu.Lock()
	return &DeviceLease{registry: r, deviceID: deviceID, entry: entry}, nil
}

// Release ends the lease. A non-nil result updates the device's last score.
func (l *DeviceLease) Release(result *models.ScoreResult) {
	if l == nil || l.released {
		return
	}
	l.released = true

	r := l.registry
	r.mu.Lock()
	l.entry.inflight--
	l.entry.lastSeen = r.now()
	if result != nil {
		l.entry.batches++
		l.entry.lastScore = result.Score
		l.entry.lastAnomaly = result.Anomaly
	}
	r.mu.Unlock()

	l.entry.mu.Unlock()
}

// Lookup returns the tracked state of deviceID without creating an entry.
func (r *DeviceRegistry) Lookup(deviceID string) (models.DeviceInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.devices[deviceID]
	if !ok {
		return models.DeviceInfo{}, false
	}
	return entry.info(deviceID), true
}

// Devices returns every tracked device sorted by ID.
func (r *DeviceRegistry) Devices() []models.DeviceInfo {
	r.mu.Lock()
	out := make([]models.DeviceInfo, 0, len(r.devices))
	for id, entry := range r.devices {
		out = append(out, entry.info(id))
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}

// Len returns the number of tracked devices.
func (r *DeviceRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.devices)
}

// Sweep removes devices idle for longer than idle and returns how many were
// removed. Devices with a batch in progress are never removed.
func (r *DeviceRegistry) Sweep(idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-idle)
	removed := 0
	for id, entry := range r.devices {
		if entry.inflight == 0 && entry.lastSeen.Before(cutoff) {
			delete(r.devices, id)
			removed++
		}
	}
	if removed > 0 {
		metrics.RegistryEvictions.Add(float64(removed))
		metrics.RegistryDevices.Set(float64(len(r.devices)))
	}
	return removed
}

func (e *deviceEntry) info(id string) models.DeviceInfo {
	return models.DeviceInfo{
		DeviceID:   id,
		FirstSeen:  e.firstSeen,
		LastSeen:   e.lastSeen,
		Batches:    e.batches,
		LastScore:  e.lastScore,
		LastResult: e.lastAnomaly,
	}
}
