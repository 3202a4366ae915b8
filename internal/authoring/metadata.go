package authoring

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/japanesestudent/course-authoring/internal/models"
)

// UpdateMetadataField sets one metadata field from its textual form.
//
// "name" is the JSON name of the field (title, category, skillLevel, price,
// durationWeeks, hoursPerWeek, description, whatYouWillLearn, requirements,
// learningSchedule, language). An empty value clears optional numeric fields.
// Tags are edited through AddTag and RemoveTag.
func (s *Session) UpdateMetadataField(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	meta := &s.metadata
	switch name {
	case "title":
		meta.Title = value
	case "category":
		meta.Category = value
	case "skillLevel":
		level, err := parseSkillLevel(value)
		if err != nil {
			return err
		}
		meta.SkillLevel = level
	case "price":
		price, err := parseOptional(value, func(v string) (float64, error) {
			return strconv.ParseFloat(v, 64)
		})
		if err != nil {
			return fmt.Errorf("%w: price: %w", ErrInvalidFieldValue, err)
		}
		meta.Price = price
	case "durationWeeks":
		weeks, err := parseOptional(value, strconv.Atoi)
		if err != nil {
			return fmt.Errorf("%w: durationWeeks: %w", ErrInvalidFieldValue, err)
		}
		meta.DurationWeeks = weeks
	case "hoursPerWeek":
		hours, err := parseOptional(value, strconv.Atoi)
		if err != nil {
			return fmt.Errorf("%w: hoursPerWeek: %w", ErrInvalidFieldValue, err)
		}
		meta.HoursPerWeek = hours
	case "description":
		meta.Description = value
	case "whatYouWillLearn":
		meta.WhatYouWillLearn = value
	case "requirements":
		meta.Requirements = value
	case "learningSchedule":
		meta.LearningSchedule = value
	case "language":
		meta.Language = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return nil
}

// AddTag adds a tag to the course. The tag is trimmed; empty, duplicate, too
// long tags and tags beyond MaxTags are rejected without changing the tag set.
func (s *Session) AddTag(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	tag := strings.TrimSpace(text)
	switch {
	case tag == "":
		return ErrEmptyTag
	case utf8.RuneCountInString(tag) > MaxTagLength:
		return ErrTagTooLong
	case slices.Contains(s.metadata.Tags, tag):
		return ErrDuplicateTag
	case len(s.metadata.Tags) >= MaxTags:
		return ErrTooManyTags
	}

	s.metadata.Tags = append(slices.Clip(s.metadata.Tags), tag)
	return nil
}

// RemoveTag removes a tag from the course
func (s *Session) RemoveTag(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	tag := strings.TrimSpace(text)
	idx := slices.Index(s.metadata.Tags, tag)
	if idx < 0 {
		return ErrTagNotFound
	}
	s.metadata.Tags = slices.Delete(slices.Clone(s.metadata.Tags), idx, idx+1)
	return nil
}

// SetCover replaces the cover with a newly chosen image file.
// A previously chosen local cover is released.
func (s *Session) SetCover(file models.LocalFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.releaseFile(file)
		return ErrSessionClosed
	}
	if file == nil {
		return ErrNotAnImage
	}
	if !isImage(file) {
		s.releaseFile(file)
		return ErrNotAnImage
	}

	if s.cover.File != nil && s.cover.File != file {
		s.releaseFile(s.cover.File)
	}
	s.cover = models.ImageRef{File: file}
	return nil
}

// ClearCover removes the cover. A local cover file is released.
func (s *Session) ClearCover() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	s.releaseFile(s.cover.File)
	s.cover = models.ImageRef{}
	return nil
}

// parseSkillLevel accepts a full skill level or its abbreviation. Empty clears the level.
func parseSkillLevel(value string) (models.SkillLevel, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	if level, ok := models.SkillLevelAbbreviation[strings.ToLower(value)]; ok {
		return level, nil
	}
	switch level := models.SkillLevel(value); level {
	case models.SkillLevelBeginner, models.SkillLevelIntermediate, models.SkillLevelAdvanced, models.SkillLevelAllLevels:
		return level, nil
	}
	return "", fmt.Errorf("%w: skillLevel %q", ErrInvalidFieldValue, value)
}

// parseOptional parses a trimmed value, mapping an empty string to nil
func parseOptional[T any](value string, parse func(string) (T, error)) (*T, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	v, err := parse(value)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
