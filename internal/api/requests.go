// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/coinscope/coinscope/internal/profile"
	"github.com/coinscope/coinscope/internal/recommend"
)

// maxBodyBytes caps request bodies. Behavior events and alerts are small;
// content registrations carry embeddings and need headroom.
const maxBodyBytes = 1 << 20

var validate = validator.New()

// decodeJSON reads and decodes a JSON request body into dst.
func decodeJSON(r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	defer body.Close()

	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty request body")
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// validateRequest runs validator tags and flattens failures into per-field
// messages suitable for the error details payload.
func validateRequest(req interface{}) []string {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
	}
	return msgs
}

// RecommendRequest is the POST /recommendations payload. Identity comes from
// the forwarded headers, not the body.
type RecommendRequest struct {
	Count   int               `json:"count" validate:"min=0,max=100"`
	Filters recommend.Filters `json:"filters"`
}

// PreferencesRequest is the PUT /profile/preferences payload. Empty fields
// leave the stored preference untouched.
type PreferencesRequest struct {
	Topics          []string `json:"topics"`
	Categories      []string `json:"categories"`
	Tags            []string `json:"tags"`
	Languages       []string `json:"languages"`
	ContentTypes    []string `json:"content_types" validate:"dive,oneof=article analysis news tutorial"`
	ReadingLevel    string   `json:"reading_level" validate:"omitempty,oneof=beginner intermediate advanced"`
	UpdateFrequency string   `json:"update_frequency" validate:"omitempty,oneof=realtime daily weekly"`
}

// toPreferences maps the payload onto the domain type.
func (p *PreferencesRequest) toPreferences() profile.Preferences {
	return profile.Preferences{
		Topics:          p.Topics,
		Categories:      p.Categories,
		Tags:            p.Tags,
		Languages:       p.Languages,
		ContentTypes:    p.ContentTypes,
		ReadingLevel:    profile.ReadingLevel(p.ReadingLevel),
		UpdateFrequency: profile.UpdateFrequency(p.UpdateFrequency),
	}
}

// eventEnvelope is the tagged union wrapper for behavior events. Kind
// selects the concrete payload; unknown kinds are rejected.
type eventEnvelope struct {
	Kind profile.EventKind `json:"kind"`
}

// decodeEvent decodes a behavior event body by its kind tag.
func decodeEvent(raw []byte) (profile.Event, error) {
	var env eventEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	switch env.Kind {
	case profile.KindView:
		var ev profile.ViewEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("invalid view event: %w", err)
		}
		if ev.ContentID == "" {
			return nil, fmt.Errorf("view event missing content_id")
		}
		return ev, nil
	case profile.KindInteraction:
		var ev profile.InteractionEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("invalid interaction event: %w", err)
		}
		if ev.ContentID == "" {
			return nil, fmt.Errorf("interaction event missing content_id")
		}
		return ev, nil
	case profile.KindSearch:
		var ev profile.SearchEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("invalid search event: %w", err)
		}
		if ev.Query == "" {
			return nil, fmt.Errorf("search event missing query")
		}
		return ev, nil
	case profile.KindFeedback:
		var ev profile.FeedbackEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("invalid feedback event: %w", err)
		}
		if ev.ContentID == "" {
			return nil, fmt.Errorf("feedback event missing content_id")
		}
		return ev, nil
	case "":
		return nil, fmt.Errorf("missing event kind")
	default:
		return nil, fmt.Errorf("unknown event kind %q", env.Kind)
	}
}
