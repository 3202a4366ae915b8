package models

import (
	"fmt"
	"io"
	"slices"
)

// LocalFile is a client-side file handle held by the authoring session until
// it is committed or discarded. Release frees the underlying resource and is safe
// to call more than once.
type LocalFile interface {
	// Name returns the original file name as chosen by the author
	Name() string
	// ContentType returns the detected MIME type of the file
	ContentType() string
	// Size returns the size of the file in bytes
	Size() int64
	// Path returns a filesystem path that external tools (e.g. ffprobe) can read
	Path() string
	// Open opens the file for reading
	Open() (io.ReadCloser, error)
	// Release frees the file
	Release() error
}

// MediaSource is where the bytes of a lesson video live: a remote reference for
// persisted items or a local file for items added in the current session.
type MediaSource struct {
	Ref  string    `json:"ref,omitempty"`
	File LocalFile `json:"-"`
}

// MediaItem represents a lesson video inside an authoring session
type MediaItem struct {
	LocalID         string      `json:"localId"`
	PersistedID     *int        `json:"persistedId,omitempty"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	DurationSeconds int         `json:"durationSeconds"`
	Thumbnail       ImageRef    `json:"thumbnail"`
	Source          MediaSource `json:"source"`
}

// IsPersisted reports whether the item already exists server-side
func (m MediaItem) IsPersisted() bool {
	return m.PersistedID != nil
}

// DurationFormatted returns the human readable duration of the item
func (m MediaItem) DurationFormatted() string {
	return FormatDuration(m.DurationSeconds)
}

// Clone returns a copy of the item that shares file handles but not the persisted ID pointer
func (m MediaItem) Clone() MediaItem {
	c := m
	if m.PersistedID != nil {
		id := *m.PersistedID
		c.PersistedID = &id
	}
	return c
}

// MediaItemFields holds the editable fields of a media item.
// A nil field keeps the current value.
type MediaItemFields struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Thumbnail   *ImageRef `json:"-"`
}

// FormatDuration renders seconds as "M:SS" below one hour and "H:MM:SS" from one hour on.
// Zero and negative values render as "0:00".
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return "0:00"
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// DurationSummary is the total playback length of a course
type DurationSummary struct {
	TotalSeconds int    `json:"totalSeconds"`
	Hours        int    `json:"hours"`
	Minutes      int    `json:"minutes"`
	Formatted    string `json:"formatted"`
}

// SummarizeDuration sums the durations of all items
func SummarizeDuration(items []MediaItem) DurationSummary {
	total := 0
	for _, item := range items {
		total += item.DurationSeconds
	}
	return DurationSummary{
		TotalSeconds: total,
		Hours:        total / 3600,
		Minutes:      (total % 3600) / 60,
		Formatted:    FormatDuration(total),
	}
}

// CloneMediaItems returns a copy of the item list
func CloneMediaItems(items []MediaItem) []MediaItem {
	out := make([]MediaItem, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return out
}

// MediaListChanged reports whether a media list differs from a baseline in length,
// order, title, description, duration, persisted identity or thumbnail.
func MediaListChanged(current, base []MediaItem) bool {
	return !slices.EqualFunc(current, base, func(a, b MediaItem) bool {
		return a.LocalID == b.LocalID &&
			a.Title == b.Title &&
			a.Description == b.Description &&
			a.DurationSeconds == b.DurationSeconds &&
			equalPtr(a.PersistedID, b.PersistedID) &&
			!a.Thumbnail.ChangedFrom(b.Thumbnail)
	})
}
