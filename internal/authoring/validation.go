package authoring

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/japanesestudent/course-authoring/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names so error keys match the API
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// draftForm is the minimal bar for saving a draft
type draftForm struct {
	Title         string   `json:"title" validate:"required"`
	SkillLevel    string   `json:"skillLevel" validate:"omitempty,oneof='Beginner' 'Intermediate' 'Advanced' 'All levels'"`
	Price         *float64 `json:"price" validate:"omitempty,gte=0"`
	DurationWeeks *int     `json:"durationWeeks" validate:"omitempty,gte=1,lte=52"`
	HoursPerWeek  *int     `json:"hoursPerWeek" validate:"omitempty,gte=1,lte=40"`
	Description   string   `json:"description" validate:"max=5000"`
	MediaCount    int      `json:"media" validate:"min=1"`
}

// publishForm is the strict bar for publishing
type publishForm struct {
	Title            string             `json:"title" validate:"required,min=3,max=255"`
	Category         string             `json:"category" validate:"required"`
	SkillLevel       string             `json:"skillLevel" validate:"required,oneof='Beginner' 'Intermediate' 'Advanced' 'All levels'"`
	Price            *float64           `json:"price" validate:"omitempty,gte=0,lte=999999999"`
	DurationWeeks    *int               `json:"durationWeeks" validate:"required,gte=1,lte=52"`
	HoursPerWeek     *int               `json:"hoursPerWeek" validate:"required,gte=1,lte=40"`
	Description      string             `json:"description" validate:"required,min=20,max=5000"`
	WhatYouWillLearn string             `json:"whatYouWillLearn" validate:"required"`
	Requirements     string             `json:"requirements" validate:"required"`
	LearningSchedule string             `json:"learningSchedule" validate:"required"`
	Tags             []string           `json:"tags" validate:"min=1"`
	HasCover         bool               `json:"cover" validate:"required"`
	Media            []publishMediaForm `json:"media" validate:"min=1,dive"`
}

type publishMediaForm struct {
	Title        string `json:"title" validate:"required"`
	Description  string `json:"description" validate:"required"`
	HasThumbnail bool   `json:"thumbnail" validate:"required"`
}

// fieldMessages overrides generic messages for specific field/tag pairs
var fieldMessages = map[string]string{
	"media:min":              "at least one video lesson is required",
	"tags:min":               "at least one tag is required",
	"cover:required":         "a cover image is required",
	"thumbnail:required":     "a thumbnail is required",
	"skillLevel:oneof":       "must be one of Beginner, Intermediate, Advanced, All levels",
	"durationWeeks:required": "course duration in weeks is required",
	"hoursPerWeek:required":  "hours per week is required",
}

// validateForDraft checks the minimal completeness bar
func validateForDraft(meta models.CourseMetadata, media []models.MediaItem) models.FieldErrors {
	form := draftForm{
		Title:         strings.TrimSpace(meta.Title),
		SkillLevel:    string(meta.SkillLevel),
		Price:         meta.Price,
		DurationWeeks: meta.DurationWeeks,
		HoursPerWeek:  meta.HoursPerWeek,
		Description:   strings.TrimSpace(meta.Description),
		MediaCount:    len(media),
	}
	return collectErrors(validate.Struct(form))
}

// validateForPublish checks the strict completeness bar
func validateForPublish(meta models.CourseMetadata, media []models.MediaItem, cover models.ImageRef) models.FieldErrors {
	form := publishForm{
		Title:            strings.TrimSpace(meta.Title),
		Category:         strings.TrimSpace(meta.Category),
		SkillLevel:       string(meta.SkillLevel),
		Price:            meta.Price,
		DurationWeeks:    meta.DurationWeeks,
		HoursPerWeek:     meta.HoursPerWeek,
		Description:      strings.TrimSpace(meta.Description),
		WhatYouWillLearn: strings.TrimSpace(meta.WhatYouWillLearn),
		Requirements:     strings.TrimSpace(meta.Requirements),
		LearningSchedule: strings.TrimSpace(meta.LearningSchedule),
		Tags:             meta.Tags,
		HasCover:         cover.IsPresent(),
		Media:            make([]publishMediaForm, len(media)),
	}
	for i, item := range media {
		form.Media[i] = publishMediaForm{
			Title:        strings.TrimSpace(item.Title),
			Description:  strings.TrimSpace(item.Description),
			HasThumbnail: item.Thumbnail.IsPresent(),
		}
	}
	return collectErrors(validate.Struct(form))
}

// collectErrors converts validator errors into a field error map
func collectErrors(err error) models.FieldErrors {
	errs := models.FieldErrors{}
	if err == nil {
		return errs
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		errs["_"] = err.Error()
		return errs
	}
	for _, fe := range validationErrors {
		key := fieldKey(fe.Namespace())
		if _, exists := errs[key]; exists {
			continue
		}
		errs[key] = describe(fe)
	}
	return errs
}

// fieldKey drops the form name from a validator namespace ("publishForm.media[0].title" -> "media[0].title")
func fieldKey(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

func describe(fe validator.FieldError) string {
	if msg, ok := fieldMessages[fe.Field()+":"+fe.Tag()]; ok {
		return msg
	}
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	default:
		return "is invalid"
	}
}

// ValidateDraft returns the draft-tier errors of the current state
func (s *Session) ValidateDraft() models.FieldErrors {
	s.mu.Lock()
	defer s.mu.Unlock()
	return validateForDraft(s.metadata, s.media)
}

// ValidatePublish returns the publish-tier errors of the current state
func (s *Session) ValidatePublish() models.FieldErrors {
	s.mu.Lock()
	defer s.mu.Unlock()
	return validateForPublish(s.metadata, s.media, s.cover)
}

// Validate returns the errors of the given tier
func (s *Session) Validate(tier models.ValidationTier) (models.FieldErrors, error) {
	switch tier {
	case models.ValidationTierDraft:
		return s.ValidateDraft(), nil
	case models.ValidationTierPublish:
		return s.ValidatePublish(), nil
	default:
		return nil, fmt.Errorf("unknown validation tier %q", tier)
	}
}
