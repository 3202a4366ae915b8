package authoring

import (
	"strings"
	"testing"

	"github.com/japanesestudent/course-authoring/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidation_DraftMinimality(t *testing.T) {
	s := newTestSession(t, seedWithMedia(1), nil)

	assert.Empty(t, s.ValidateDraft())

	errs := s.ValidatePublish()
	for _, field := range []string{
		"category",
		"skillLevel",
		"description",
		"whatYouWillLearn",
		"requirements",
		"learningSchedule",
		"tags",
		"cover",
	} {
		assert.Contains(t, errs, field)
	}
	assert.Contains(t, errs, "media[0].description")
	assert.Contains(t, errs, "media[0].thumbnail")
	assert.NotContains(t, errs, "title")
}

func TestValidation_PublishableCourse(t *testing.T) {
	s := newTestSession(t, publishableSeed(), nil)

	assert.Empty(t, s.ValidateDraft())
	assert.Empty(t, s.ValidatePublish())
}

func TestValidateForDraft(t *testing.T) {
	oneItem := []models.MediaItem{{LocalID: "a", Title: "Intro"}}
	tests := []struct {
		name           string
		meta           models.CourseMetadata
		media          []models.MediaItem
		expectedFields []string
	}{
		{
			name:  "title and media only",
			meta:  models.CourseMetadata{Title: "Kanji"},
			media: oneItem,
		},
		{
			name:           "no media",
			meta:           models.CourseMetadata{Title: "Kanji"},
			expectedFields: []string{"media"},
		},
		{
			name:           "blank title",
			meta:           models.CourseMetadata{Title: "   "},
			media:          oneItem,
			expectedFields: []string{"title"},
		},
		{
			name:           "negative price",
			meta:           models.CourseMetadata{Title: "Kanji", Price: ptr(-1.0)},
			media:          oneItem,
			expectedFields: []string{"price"},
		},
		{
			name:  "zero price is free",
			meta:  models.CourseMetadata{Title: "Kanji", Price: ptr(0.0)},
			media: oneItem,
		},
		{
			name:           "weeks out of range",
			meta:           models.CourseMetadata{Title: "Kanji", DurationWeeks: ptr(53)},
			media:          oneItem,
			expectedFields: []string{"durationWeeks"},
		},
		{
			name:           "hours out of range",
			meta:           models.CourseMetadata{Title: "Kanji", HoursPerWeek: ptr(41)},
			media:          oneItem,
			expectedFields: []string{"hoursPerWeek"},
		},
		{
			name:           "description too long",
			meta:           models.CourseMetadata{Title: "Kanji", Description: strings.Repeat("a", 5001)},
			media:          oneItem,
			expectedFields: []string{"description"},
		},
		{
			name:           "unknown skill level",
			meta:           models.CourseMetadata{Title: "Kanji", SkillLevel: "Expert"},
			media:          oneItem,
			expectedFields: []string{"skillLevel"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := validateForDraft(tt.meta, tt.media)
			assert.Len(t, errs, len(tt.expectedFields))
			for _, field := range tt.expectedFields {
				assert.Contains(t, errs, field)
			}
		})
	}
}

func TestValidateForPublish(t *testing.T) {
	valid := publishableSeed().Metadata
	media := []models.MediaItem{{
		LocalID:     "a",
		Title:       "Intro",
		Description: "Overview",
		Thumbnail:   models.ImageRef{Ref: "thumb.png"},
	}}
	cover := models.ImageRef{Ref: "cover.png"}

	tests := []struct {
		name          string
		modify        func(m *models.CourseMetadata)
		media         []models.MediaItem
		cover         *models.ImageRef
		expectedField string
	}{
		{name: "valid"},
		{name: "short title", modify: func(m *models.CourseMetadata) { m.Title = " ab " }, expectedField: "title"},
		{name: "long title", modify: func(m *models.CourseMetadata) { m.Title = strings.Repeat("t", 256) }, expectedField: "title"},
		{name: "price too high", modify: func(m *models.CourseMetadata) { m.Price = ptr(1_000_000_000.0) }, expectedField: "price"},
		{name: "missing weeks", modify: func(m *models.CourseMetadata) { m.DurationWeeks = nil }, expectedField: "durationWeeks"},
		{name: "missing hours", modify: func(m *models.CourseMetadata) { m.HoursPerWeek = nil }, expectedField: "hoursPerWeek"},
		{name: "short description", modify: func(m *models.CourseMetadata) { m.Description = "Too short" }, expectedField: "description"},
		{name: "no tags", modify: func(m *models.CourseMetadata) { m.Tags = nil }, expectedField: "tags"},
		{name: "no media", media: []models.MediaItem{}, expectedField: "media"},
		{name: "new cover counts", cover: &models.ImageRef{File: newImage("c.png")}},
		{name: "no cover", cover: &models.ImageRef{}, expectedField: "cover"},
		{
			name:          "media without thumbnail",
			media:         []models.MediaItem{{LocalID: "a", Title: "Intro", Description: "Overview"}},
			expectedField: "media[0].thumbnail",
		},
		{
			name:          "media without title",
			media:         []models.MediaItem{{LocalID: "a", Description: "Overview", Thumbnail: models.ImageRef{Ref: "t.png"}}},
			expectedField: "media[0].title",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := valid.Clone()
			if tt.modify != nil {
				tt.modify(&meta)
			}
			items := media
			if tt.media != nil {
				items = tt.media
			}
			c := cover
			if tt.cover != nil {
				c = *tt.cover
			}

			errs := validateForPublish(meta, items, c)

			if tt.expectedField == "" {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Contains(t, errs, tt.expectedField)
		})
	}
}

func TestSession_Validate(t *testing.T) {
	s := newTestSession(t, seedWithMedia(0), nil)

	errs, err := s.Validate(models.ValidationTierDraft)
	require.NoError(t, err)
	assert.Equal(t, "at least one video lesson is required", errs["media"])

	_, err = s.Validate("strict")
	assert.Error(t, err)
}
