// Package usage keeps per-entry launch statistics: how often an entry is
// launched, how often its delayed launch is abandoned, and how recently.
package usage

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chess10kp/vibe/internal/apps"
)

const maxRecentLaunches = 10

type Record struct {
	LaunchCount    int       `json:"launch_count"`
	CancelCount    int       `json:"cancel_count"`
	FirstLaunched  time.Time `json:"first_launched"`
	LastLaunched   time.Time `json:"last_launched"`
	RecentLaunches []int64   `json:"recent_launches"`
}

func (r *Record) clone() *Record {
	c := *r
	c.RecentLaunches = append([]int64(nil), r.RecentLaunches...)
	return &c
}

// Match is one entry of the Top ranking.
type Match struct {
	Key    string  `json:"key"`
	Score  float64 `json:"score"`
	Record *Record `json:"record"`
}

type Tracker struct {
	mu       sync.RWMutex
	records  map[string]*Record
	file     string
	halfLife time.Duration
	now      func() time.Time
	log      *zap.Logger
}

// NewTracker loads usage.json from dataDir. A missing or unreadable file
// starts an empty history.
func NewTracker(dataDir string, log *zap.Logger) (*Tracker, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	t := &Tracker{
		records:  make(map[string]*Record),
		file:     filepath.Join(dataDir, "usage.json"),
		halfLife: 7 * 24 * time.Hour,
		now:      time.Now,
		log:      log.Named("usage"),
	}
	if err := t.load(); err != nil {
		t.log.Warn("failed to load usage data", zap.Error(err))
	}
	return t, nil
}

func (t *Tracker) record(key apps.Key) *Record {
	id := key.String()
	r, ok := t.records[id]
	if !ok {
		r = &Record{RecentLaunches: []int64{}}
		t.records[id] = r
	}
	return r
}

func (t *Tracker) RecordLaunch(key apps.Key) {
	if key.Package == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	r := t.record(key)
	if r.FirstLaunched.IsZero() {
		r.FirstLaunched = now
	}
	r.LaunchCount++
	r.LastLaunched = now
	r.RecentLaunches = append(r.RecentLaunches, now.Unix())
	if len(r.RecentLaunches) > maxRecentLaunches {
		r.RecentLaunches = r.RecentLaunches[len(r.RecentLaunches)-maxRecentLaunches:]
	}

	t.saveLogged()
	t.log.Debug("recorded launch", zap.Stringer("entry", key), zap.Int("count", r.LaunchCount))
}

// RecordCancel counts a delayed launch the user abandoned.
func (t *Tracker) RecordCancel(key apps.Key) {
	if key.Package == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	r := t.record(key)
	r.CancelCount++

	t.saveLogged()
	t.log.Debug("recorded cancel", zap.Stringer("entry", key), zap.Int("count", r.CancelCount))
}

func (t *Tracker) Stats(key apps.Key) (*Record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	r, ok := t.records[key.String()]
	if !ok {
		return nil, false
	}
	return r.clone(), true
}

// Top ranks entries by frecency, highest first. limit <= 0 returns all.
func (t *Tracker) Top(limit int) []Match {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := t.now()
	out := make([]Match, 0, len(t.records))
	for key, r := range t.records {
		out = append(out, Match{Key: key, Score: t.score(r, now), Record: r.clone()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Key < out[j].Key
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (t *Tracker) score(r *Record, now time.Time) float64 {
	frequency := float64(r.LaunchCount)
	recency := 0.0
	if !r.LastLaunched.IsZero() {
		halfLives := float64(now.Sub(r.LastLaunched)) / float64(t.halfLife)
		recency = math.Pow(0.5, halfLives) * 100
	}
	return frequency*0.4 + recency*0.4 + trend(r.RecentLaunches)*0.2
}

// trend scores launch rate over the recent window, capped at 10 per day.
func trend(recent []int64) float64 {
	if len(recent) < 2 {
		return 0
	}
	span := recent[len(recent)-1] - recent[0]
	if span <= 0 {
		return 0
	}
	perDay := 24 * 3600 / (float64(span) / float64(len(recent)-1))
	return min(perDay, 10) / 10 * 100
}

func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.records = make(map[string]*Record)
	t.saveLogged()
	t.log.Info("cleared usage records")
}

func (t *Tracker) load() error {
	data, err := os.ReadFile(t.file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var records map[string]*Record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to unmarshal usage data: %w", err)
	}
	if records == nil {
		records = make(map[string]*Record)
	}

	t.mu.Lock()
	t.records = records
	t.mu.Unlock()

	t.log.Debug("loaded usage records", zap.Int("count", len(records)))
	return nil
}

// saveLogged must be called with mu held. Failures are logged only.
func (t *Tracker) saveLogged() {
	data, err := json.MarshalIndent(t.records, "", "  ")
	if err == nil {
		err = os.WriteFile(t.file, data, 0644)
	}
	if err != nil {
		t.log.Warn("failed to save usage data", zap.String("file", t.file), zap.Error(err))
	}
}
