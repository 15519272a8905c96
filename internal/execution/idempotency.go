package execution

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Key is a stable fingerprint of a logical order. Two orders with the
// same symbol, side, quantity, type and price produce the same key;
// equality is structural.
type Key string

// KeyFor hashes the canonical order identity. The field order matches
// the dedupe contract and must not change.
func KeyFor(symbol string, side Side, qty float64, typ OrderType, price float64) Key {
	canon := strings.Join([]string{
		symbol,
		string(side),
		formatFloat(qty),
		string(typ),
		formatFloat(price),
	}, "|")
	sum := sha256.Sum256([]byte(canon))
	return Key(hex.EncodeToString(sum[:]))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

const (
	DefaultDedupeWindow  = 10 * time.Second
	dedupePruneThreshold = 4096
)

// Deduper suppresses resubmission of the same logical order inside a
// sliding window. Expired entries are pruned once the table grows past
// a soft cap, so it does not grow without bound.
type Deduper struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[Key]time.Time
}

func NewDeduper(window time.Duration) *Deduper {
	if window <= 0 {
		window = DefaultDedupeWindow
	}
	return &Deduper{
		window: window,
		seen:   make(map[Key]time.Time),
	}
}

func (d *Deduper) Window() time.Duration { return d.window }

// ShouldReject reports whether key was accepted less than one window
// before now.
func (d *Deduper) ShouldReject(key Key, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	last, ok := d.seen[key]
	return ok && now.Sub(last) < d.window
}

// RecordAccepted marks key as accepted at now.
func (d *Deduper) RecordAccepted(key Key, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen[key] = now
	if len(d.seen) >= dedupePruneThreshold {
		d.pruneLocked(now)
	}
}

// Prune drops every entry older than the window.
func (d *Deduper) Prune(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pruneLocked(now)
}

func (d *Deduper) pruneLocked(now time.Time) {
	for key, last := range d.seen {
		if now.Sub(last) >= d.window {
			delete(d.seen, key)
		}
	}
}

func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
