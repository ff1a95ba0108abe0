package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Well-known image tag keys.
const (
	TagContainsFace    = "contains_face"
	TagCount           = "count"
	TagQuality         = "quality"
	TagMethod          = "method"
	TagAITags          = "ai_tags"
	TagSceneType       = "scene_type"
	TagHasPeople       = "has_people"
	TagHasText         = "has_text"
	TagEmotion         = "emotion"
	TagExtractedText   = "extracted_text"
	TagAutoCaption     = "auto_caption"
	TagDetailedCaption = "detailed_caption"
	TagGPSLatitude     = "gps_latitude"
	TagGPSLongitude    = "gps_longitude"
)

// Tags is the open-ended mapping stored on an image as JSON.
type Tags map[string]any

// Merge returns a copy of t with every key of other added or replaced.
// Keys of t absent from other are kept.
func (t Tags) Merge(other Tags) Tags {
	out := make(Tags, len(t)+len(other))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// String returns the string value at key, or "".
func (t Tags) String(key string) string {
	s, _ := t[key].(string)
	return s
}

// Int returns the integer value at key. Numbers decoded from JSON arrive as
// float64 and are truncated.
func (t Tags) Int(key string) (int, bool) {
	switch v := t[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	}
	return 0, false
}

// FaceCount is the number of faces recorded by face detection.
func (t Tags) FaceCount() int {
	n, _ := t.Int(TagCount)
	return n
}

func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		return "{}", nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (t *Tags) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*t = Tags{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("tags: unsupported type %T", src)
	}
	out := Tags{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("tags: %w", err)
		}
	}
	*t = out
	return nil
}

// StringList is a list persisted as a JSON array. A nil list is NULL.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("string list: unsupported type %T", src)
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("string list: %w", err)
	}
	*l = out
	return nil
}

// ImageFilter narrows an image listing.
type ImageFilter struct {
	Search   string
	Quality  string // good, medium or none
	HasFaces string // yes or no
	SortBy   string
}

// ImageSorts maps the accepted sort_by values to ORDER BY clauses.
var ImageSorts = map[string]string{
	"-created_at": "created_at DESC, id DESC",
	"created_at":  "created_at ASC, id ASC",
	"-id":         "id DESC",
	"id":          "id ASC",
}

// Match reports whether img passes the search, quality and face filters.
func (f ImageFilter) Match(img ImageModel) bool {
	if s := strings.ToLower(strings.TrimSpace(f.Search)); s != "" {
		raw, _ := json.Marshal(img.Tags)
		if !strings.Contains(strconv.FormatInt(img.ID, 10), s) && !strings.Contains(strings.ToLower(string(raw)), s) {
			return false
		}
	}
	switch f.Quality {
	case "good", "medium", "none":
		if img.Tags.String(TagQuality) != f.Quality {
			return false
		}
	}
	noFace := img.Tags.String(TagContainsFace) == "no_face"
	switch f.HasFaces {
	case "yes":
		if noFace {
			return false
		}
	case "no":
		if !noFace {
			return false
		}
	}
	return true
}

// VocalFilter narrows a vocal note listing. "all" disables a field.
type VocalFilter struct {
	Category  string
	Sentiment string
	Search    string
}

// UserFilter narrows the admin user listing. Order is "-date" (newest
// first, the default) or "date".
type UserFilter struct {
	Query string
	Order string
}

type ImageStats struct {
	TotalImages          int     `json:"total_images"`
	GeneratedImages      int     `json:"generated_images"`
	AverageFacesPerImage float64 `json:"average_faces_per_image"`
}

type SentimentBreakdown struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

type VocalStats struct {
	TotalVocals          int                `json:"total_vocals"`
	Transcribed          int                `json:"transcribed"`
	Analyzed             int                `json:"analyzed"`
	SentimentBreakdown   SentimentBreakdown `json:"sentiment_breakdown"`
	TotalDurationSeconds float64            `json:"total_duration_seconds"`
}

// SignupStats feeds the admin dashboard charts.
type SignupStats struct {
	MonthLabels []string `json:"month_labels"`
	MonthCounts []int    `json:"month_counts"`
	RoleLabels  []string `json:"role_labels"`
	RoleCounts  []int    `json:"role_counts"`
	TotalUsers  int      `json:"total_users"`
}
