package domain

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Span times one named step, e.g. one backfill walk or one price batch
type Span struct {
	Name      string `json:"name"`
	ElapsedMs *int64 `json:"elapsedMs"`
	startTs   time.Time
}

func (s *Span) End() {
	if s.ElapsedMs == nil {
		t := time.Since(s.startTs).Milliseconds()
		s.ElapsedMs = &t
	}
}

type profileKey struct{}

// Profile collects the spans of one request, job run or cli command.
// repair workers share the run's profile, so every method locks
type Profile struct {
	mutex   sync.Mutex
	spans   []*Span
	startTs time.Time
	totalMs *int64
}

func NewProfile() (newProfile *Profile, endNewProfile func()) {
	newProfile = &Profile{
		spans:   []*Span{},
		startTs: time.Now(),
	}
	return newProfile, newProfile.End
}

func WithProfile(ctx context.Context, p *Profile) context.Context {
	return context.WithValue(ctx, profileKey{}, p)
}

// GetProfile never returns nil. callers with no profile on the
// context get a throwaway one
func GetProfile(ctx context.Context) (profile *Profile, endProfile func()) {
	if p, ok := ctx.Value(profileKey{}).(*Profile); ok && p != nil {
		return p, p.End
	}
	return NewProfile()
}

func (p *Profile) End() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.totalMs == nil {
		t := time.Since(p.startTs).Milliseconds()
		p.totalMs = &t
	}
}

// StartNewSpan opens a span that stays open until endSpan is called.
// spans from different goroutines may overlap
func (p *Profile) StartNewSpan(name string) (newSpan *Span, endSpan func()) {
	newSpan = &Span{
		Name:    name,
		startTs: time.Now(),
	}
	p.mutex.Lock()
	p.spans = append(p.spans, newSpan)
	p.mutex.Unlock()

	return newSpan, func() {
		p.mutex.Lock()
		defer p.mutex.Unlock()
		newSpan.End()
	}
}

type ProfileSummary struct {
	TotalMs *int64 `json:"totalMs,omitempty"`
	Spans   []Span `json:"spans"`
	// unfinished spans are left out of Slowest
	Slowest *Span `json:"slowest,omitempty"`
}

// Summary copies the spans, slowest last so a truncated log line
// keeps the interesting part
func (p *Profile) Summary() ProfileSummary {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	out := ProfileSummary{
		TotalMs: p.totalMs,
		Spans:   make([]Span, 0, len(p.spans)),
	}
	for _, s := range p.spans {
		out.Spans = append(out.Spans, *s)
	}
	sort.SliceStable(out.Spans, func(i, j int) bool {
		return elapsed(out.Spans[i]) < elapsed(out.Spans[j])
	})
	for i := len(out.Spans) - 1; i >= 0; i-- {
		if out.Spans[i].ElapsedMs != nil {
			slowest := out.Spans[i]
			out.Slowest = &slowest
			break
		}
	}
	return out
}

func elapsed(s Span) int64 {
	if s.ElapsedMs == nil {
		return -1
	}
	return *s.ElapsedMs
}
