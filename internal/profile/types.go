// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

// Package profile holds per-user preference and behavior history. Behavior
// events are a tagged union dispatched by kind; logs are bounded and the
// newest entries win.
package profile

import "time"

// Log caps. Appending past a cap evicts the oldest entries.
const (
	MaxViewHistory   = 1000
	MaxInteractions  = 1000
	MaxSearchHistory = 500
	MaxFeedback      = 1000

	// DeriveWindow is how many recent views feed preference derivation.
	DeriveWindow = 100

	// DeriveTopCategories and DeriveTopTags bound how many derived values
	// are unioned into explicit preferences.
	DeriveTopCategories = 10
	DeriveTopTags       = 20
)

// ReadingLevel is the user's self-reported expertise.
type ReadingLevel string

// Reading levels.
const (
	LevelBeginner     ReadingLevel = "beginner"
	LevelIntermediate ReadingLevel = "intermediate"
	LevelAdvanced     ReadingLevel = "advanced"
)

// UpdateFrequency is how often the user wants fresh content.
type UpdateFrequency string

// Update frequencies.
const (
	FrequencyRealtime UpdateFrequency = "realtime"
	FrequencyDaily    UpdateFrequency = "daily"
	FrequencyWeekly   UpdateFrequency = "weekly"
)

// ViewSource identifies where a view originated.
type ViewSource string

// View sources.
const (
	SourceFeed           ViewSource = "feed"
	SourceSearch         ViewSource = "search"
	SourceRecommendation ViewSource = "recommendation"
	SourceDirect         ViewSource = "direct"
)

// Device identifies the viewing device class.
type Device string

// Devices.
const (
	DeviceDesktop Device = "desktop"
	DeviceMobile  Device = "mobile"
	DeviceTablet  Device = "tablet"
)

// InteractionType classifies explicit content interactions.
type InteractionType string

// Interaction types.
const (
	InteractionLike     InteractionType = "like"
	InteractionShare    InteractionType = "share"
	InteractionBookmark InteractionType = "bookmark"
	InteractionComment  InteractionType = "comment"
	InteractionDownload InteractionType = "download"
)

// FeedbackType classifies explicit feedback signals.
type FeedbackType string

// Feedback types. Rating carries a 1-5 value; the boolean kinds carry 0 or 1.
const (
	FeedbackRating      FeedbackType = "rating"
	FeedbackRelevant    FeedbackType = "relevant"
	FeedbackNotRelevant FeedbackType = "not_relevant"
	FeedbackHelpful     FeedbackType = "helpful"
	FeedbackNotHelpful  FeedbackType = "not_helpful"
)

// EventKind discriminates the behavior event union.
type EventKind string

// Event kinds.
const (
	KindView        EventKind = "view"
	KindInteraction EventKind = "interaction"
	KindSearch      EventKind = "search"
	KindFeedback    EventKind = "feedback"
)

// Event is a behavior event. Exactly the four concrete types below implement
// it; dispatch is by Kind, not by probing fields.
type Event interface {
	Kind() EventKind
}

// ViewEvent records a content view.
type ViewEvent struct {
	ContentID       string     `json:"content_id"`
	Timestamp       time.Time  `json:"timestamp"`
	DurationSeconds int        `json:"duration_seconds"`
	Source          ViewSource `json:"source"`
	Device          Device     `json:"device"`
	Completed       bool       `json:"completed"`
}

// Kind implements Event.
func (ViewEvent) Kind() EventKind { return KindView }

// InteractionEvent records an explicit interaction.
type InteractionEvent struct {
	ContentID string          `json:"content_id"`
	Type      InteractionType `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
}

// Kind implements Event.
func (InteractionEvent) Kind() EventKind { return KindInteraction }

// SearchEvent records a search.
type SearchEvent struct {
	Query       string    `json:"query"`
	Timestamp   time.Time `json:"timestamp"`
	ResultCount int       `json:"result_count"`
	ClickedIDs  []string  `json:"clicked_ids,omitempty"`
}

// Kind implements Event.
func (SearchEvent) Kind() EventKind { return KindSearch }

// FeedbackEvent records explicit feedback. Value is the rating for
// FeedbackRating (1-5) and 0/1 for the boolean kinds.
type FeedbackEvent struct {
	ContentID string       `json:"content_id"`
	Type      FeedbackType `json:"type"`
	Value     float64      `json:"value"`
	Timestamp time.Time    `json:"timestamp"`
}

// Kind implements Event.
func (FeedbackEvent) Kind() EventKind { return KindFeedback }

// Preferences are the user's explicit plus derived preferences. Derivation
// only adds values, never removes explicit ones.
type Preferences struct {
	Topics          []string        `json:"topics,omitempty"`
	Categories      []string        `json:"categories,omitempty"`
	Tags            []string        `json:"tags,omitempty"`
	Languages       []string        `json:"languages,omitempty"`
	ContentTypes    []string        `json:"content_types,omitempty"`
	ReadingLevel    ReadingLevel    `json:"reading_level,omitempty"`
	UpdateFrequency UpdateFrequency `json:"update_frequency,omitempty"`
}

// Behavior holds the bounded behavior logs.
type Behavior struct {
	// ViewHistory keeps the most recent MaxViewHistory views, oldest first.
	ViewHistory []ViewEvent `json:"view_history,omitempty"`

	// ReadingSeconds accumulates view duration per content id.
	ReadingSeconds map[string]int `json:"reading_seconds,omitempty"`

	Interactions  []InteractionEvent `json:"interactions,omitempty"`
	SearchHistory []SearchEvent      `json:"search_history,omitempty"`
	Feedback      []FeedbackEvent    `json:"feedback,omitempty"`
}

// Profile is one user's preference and behavior record within a tenant.
type Profile struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`

	Preferences Preferences `json:"preferences"`
	Behavior    Behavior    `json:"behavior"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SeenContentIDs returns the set of content ids the user has viewed or
// interacted with. Recommenders exclude these from candidates.
func (p *Profile) SeenContentIDs() map[string]struct{} {
	seen := make(map[string]struct{}, len(p.Behavior.ViewHistory)+len(p.Behavior.Interactions))
	for _, v := range p.Behavior.ViewHistory {
		seen[v.ContentID] = struct{}{}
	}
	for _, i := range p.Behavior.Interactions {
		seen[i.ContentID] = struct{}{}
	}
	return seen
}

// RecentViews returns the most recent n views, newest first.
func (p *Profile) RecentViews(n int) []ViewEvent {
	h := p.Behavior.ViewHistory
	if n > len(h) {
		n = len(h)
	}
	out := make([]ViewEvent, 0, n)
	for i := len(h) - 1; i >= len(h)-n; i-- {
		out = append(out, h[i])
	}
	return out
}

// apply merges a behavior event into the profile, enforcing log caps.
func (p *Profile) apply(ev Event) {
	switch e := ev.(type) {
	case ViewEvent:
		p.Behavior.ViewHistory = append(p.Behavior.ViewHistory, e)
		if len(p.Behavior.ViewHistory) > MaxViewHistory {
			p.Behavior.ViewHistory = trimOldest(p.Behavior.ViewHistory, MaxViewHistory)
		}
		if e.DurationSeconds > 0 {
			if p.Behavior.ReadingSeconds == nil {
				p.Behavior.ReadingSeconds = make(map[string]int)
			}
			p.Behavior.ReadingSeconds[e.ContentID] += e.DurationSeconds
		}
	case InteractionEvent:
		p.Behavior.Interactions = append(p.Behavior.Interactions, e)
		if len(p.Behavior.Interactions) > MaxInteractions {
			p.Behavior.Interactions = trimOldest(p.Behavior.Interactions, MaxInteractions)
		}
	case SearchEvent:
		p.Behavior.SearchHistory = append(p.Behavior.SearchHistory, e)
		if len(p.Behavior.SearchHistory) > MaxSearchHistory {
			p.Behavior.SearchHistory = trimOldest(p.Behavior.SearchHistory, MaxSearchHistory)
		}
	case FeedbackEvent:
		p.Behavior.Feedback = append(p.Behavior.Feedback, e)
		if len(p.Behavior.Feedback) > MaxFeedback {
			p.Behavior.Feedback = trimOldest(p.Behavior.Feedback, MaxFeedback)
		}
	}
	p.UpdatedAt = time.Now()
}

// trimOldest keeps the newest max entries of a log.
func trimOldest[T any](log []T, max int) []T {
	out := make([]T, max)
	copy(out, log[len(log)-max:])
	return out
}
