package models

import "slices"

// LifecycleStatus represents the persisted lifecycle state of a course
type LifecycleStatus string

const (
	LifecycleStatusDraft     LifecycleStatus = "draft"
	LifecycleStatusPublished LifecycleStatus = "published"
)

// SkillLevel represents the target audience level of a course
type SkillLevel string

const (
	SkillLevelBeginner     SkillLevel = "Beginner"
	SkillLevelIntermediate SkillLevel = "Intermediate"
	SkillLevelAdvanced     SkillLevel = "Advanced"
	SkillLevelAllLevels    SkillLevel = "All levels"
)

// SkillLevelAbbreviation maps abbreviations to full skill levels
var SkillLevelAbbreviation = map[string]SkillLevel{
	"b":   SkillLevelBeginner,
	"i":   SkillLevelIntermediate,
	"a":   SkillLevelAdvanced,
	"all": SkillLevelAllLevels,
}

// DefaultLanguage is used when a course does not specify its language
const DefaultLanguage = "English"

// CourseMetadata holds the semantic fields of a course being authored.
//
// Optional numeric fields are pointers: nil means "not given".
type CourseMetadata struct {
	Title            string     `json:"title"`
	Category         string     `json:"category"`
	SkillLevel       SkillLevel `json:"skillLevel"`
	Price            *float64   `json:"price,omitempty"`
	DurationWeeks    *int       `json:"durationWeeks,omitempty"`
	HoursPerWeek     *int       `json:"hoursPerWeek,omitempty"`
	Description      string     `json:"description"`
	Tags             []string   `json:"tags"`
	WhatYouWillLearn string     `json:"whatYouWillLearn"`
	Requirements     string     `json:"requirements"`
	LearningSchedule string     `json:"learningSchedule"`
	Language         string     `json:"language"`
}

// Clone returns a deep copy of the metadata
func (m CourseMetadata) Clone() CourseMetadata {
	c := m
	if m.Price != nil {
		v := *m.Price
		c.Price = &v
	}
	if m.DurationWeeks != nil {
		v := *m.DurationWeeks
		c.DurationWeeks = &v
	}
	if m.HoursPerWeek != nil {
		v := *m.HoursPerWeek
		c.HoursPerWeek = &v
	}
	c.Tags = slices.Clone(m.Tags)
	return c
}

// Equal reports whether two metadata records are equal field by field.
// A nil tag list and an empty one are considered equal.
func (m CourseMetadata) Equal(o CourseMetadata) bool {
	return m.Title == o.Title &&
		m.Category == o.Category &&
		m.SkillLevel == o.SkillLevel &&
		equalPtr(m.Price, o.Price) &&
		equalPtr(m.DurationWeeks, o.DurationWeeks) &&
		equalPtr(m.HoursPerWeek, o.HoursPerWeek) &&
		m.Description == o.Description &&
		slices.Equal(m.Tags, o.Tags) &&
		m.WhatYouWillLearn == o.WhatYouWillLearn &&
		m.Requirements == o.Requirements &&
		m.LearningSchedule == o.LearningSchedule &&
		m.Language == o.Language
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// ImageRef is a course cover or lesson thumbnail: either a persisted reference,
// a newly chosen local file pending upload, or absent (zero value).
type ImageRef struct {
	Ref  string    `json:"ref,omitempty"`
	File LocalFile `json:"-"`
}

// IsNew reports whether the image is a newly chosen local file
func (c ImageRef) IsNew() bool {
	return c.File != nil
}

// IsPresent reports whether any image is set
func (c ImageRef) IsPresent() bool {
	return c.File != nil || c.Ref != ""
}

// ChangedFrom reports whether the image differs from a baseline.
// A newly chosen local file always counts as a change.
func (c ImageRef) ChangedFrom(base ImageRef) bool {
	if c.IsNew() {
		return true
	}
	return c.Ref != base.Ref
}

// CourseSeed is the course state fetched for editing
type CourseSeed struct {
	CourseID int             `json:"courseId"`
	Status   LifecycleStatus `json:"status"`
	Metadata CourseMetadata  `json:"metadata"`
	CoverRef string          `json:"coverRef,omitempty"`
	Media    []SeedMedia     `json:"media"`
}

// SeedMedia is a persisted lesson video as returned by the course fetch
type SeedMedia struct {
	ID              int    `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	DurationSeconds int    `json:"durationSeconds"`
	ThumbnailRef    string `json:"thumbnailRef,omitempty"`
	SourceRef       string `json:"sourceRef"`
}
