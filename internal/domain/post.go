package domain

import (
	"strings"
	"time"
)

// PublishDocument is the payload pushed to the content-management backend.
type PublishDocument struct {
	Title       string         `json:"title"`
	BodyHTML    string         `json:"content"`
	Excerpt     string         `json:"excerpt"`
	Status      string         `json:"status"`
	AuthorID    int            `json:"author"`
	CategoryIDs []int          `json:"categories"`
	TagNames    []string       `json:"tags"`
	Metadata    map[string]any `json:"meta"`
}

// UniqueIDs returns ids with duplicates removed, keeping first occurrences.
func UniqueIDs(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// PublishedPost is what the backend reports after a create or update.
type PublishedPost struct {
	ID        int    `json:"post_id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	EditURL   string `json:"edit_url,omitempty"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Post is the full view of a single post.
type Post struct {
	ID         int            `json:"id"`
	Title      string         `json:"title"`
	Content    string         `json:"content"`
	Excerpt    string         `json:"excerpt"`
	Status     string         `json:"status"`
	URL        string         `json:"url"`
	CreatedAt  string         `json:"created_at"`
	UpdatedAt  string         `json:"updated_at"`
	Author     int            `json:"author"`
	Categories []int          `json:"categories"`
	Tags       []int          `json:"tags"`
	Meta       map[string]any `json:"meta"`
}

// DraftSummary is one row of a draft listing.
type DraftSummary struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Excerpt     string `json:"excerpt"`
	Status      string `json:"status"`
	URL         string `json:"url"`
	EditURL     string `json:"edit_url"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
	AIGenerated bool   `json:"is_ai_generated"`
}

// Category is a content-management taxonomy term.
type Category struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
}

// RateWindowState is the call count for one coarse time bucket.
type RateWindowState struct {
	BucketKey string
	Count     int
	ExpiresAt time.Time
}

// ParseTags splits a comma-separated tag list, trimming entries and dropping
// empty ones. It never returns nil.
func ParseTags(s string) []string {
	out := []string{}
	for _, tag := range strings.Split(s, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}
