package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/japanesestudent/course-authoring/internal/models"
	"go.uber.org/zap"
)

// ErrCourseNotFound is returned when the edited course does not exist
var ErrCourseNotFound = errors.New("course not found")

type courseEditorRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCourseEditorRepository creates a new course editor repository
func NewCourseEditorRepository(db *sql.DB, logger *zap.Logger) *courseEditorRepository {
	return &courseEditorRepository{
		db:     db,
		logger: logger,
	}
}

// FetchForEdit loads a course with its tags and ordered media
func (r *courseEditorRepository) FetchForEdit(ctx context.Context, courseID int) (*models.CourseSeed, error) {
	query := `
		SELECT id, title, category, skill_level, price, duration_weeks, hours_per_week,
			description, what_you_will_learn, requirements, learning_schedule, language,
			cover_url, status
		FROM courses
		WHERE id = ?
		LIMIT 1
	`

	var (
		seed          models.CourseSeed
		skillLevel    string
		price         sql.NullFloat64
		durationWeeks sql.NullInt64
		hoursPerWeek  sql.NullInt64
		status        string
	)
	err := r.db.QueryRowContext(ctx, query, courseID).Scan(
		&seed.CourseID,
		&seed.Metadata.Title,
		&seed.Metadata.Category,
		&skillLevel,
		&price,
		&durationWeeks,
		&hoursPerWeek,
		&seed.Metadata.Description,
		&seed.Metadata.WhatYouWillLearn,
		&seed.Metadata.Requirements,
		&seed.Metadata.LearningSchedule,
		&seed.Metadata.Language,
		&seed.CoverRef,
		&status,
	)
	if err == sql.ErrNoRows {
		return nil, ErrCourseNotFound
	}
	if err != nil {
		r.logger.Error("failed to get course", zap.Int("course_id", courseID), zap.Error(err))
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	seed.Status = models.LifecycleStatus(status)
	seed.Metadata.SkillLevel = models.SkillLevel(skillLevel)
	if price.Valid {
		seed.Metadata.Price = &price.Float64
	}
	if durationWeeks.Valid {
		weeks := int(durationWeeks.Int64)
		seed.Metadata.DurationWeeks = &weeks
	}
	if hoursPerWeek.Valid {
		hours := int(hoursPerWeek.Int64)
		seed.Metadata.HoursPerWeek = &hours
	}

	if seed.Metadata.Tags, err = r.getTags(ctx, courseID); err != nil {
		return nil, err
	}
	if seed.Media, err = r.getMedia(ctx, courseID); err != nil {
		return nil, err
	}

	return &seed, nil
}

func (r *courseEditorRepository) getTags(ctx context.Context, courseID int) ([]string, error) {
	query := `SELECT tag FROM course_tags WHERE course_id = ? ORDER BY position`

	rows, err := r.db.QueryContext(ctx, query, courseID)
	if err != nil {
		r.logger.Error("failed to query course tags", zap.Error(err))
		return nil, fmt.Errorf("failed to query course tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			r.logger.Error("failed to scan course tag", zap.Error(err))
			return nil, fmt.Errorf("failed to scan course tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating rows", zap.Error(err))
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return tags, nil
}

func (r *courseEditorRepository) getMedia(ctx context.Context, courseID int) ([]models.SeedMedia, error) {
	query := `
		SELECT id, title, description, duration_seconds, thumbnail_url, source_url
		FROM course_media
		WHERE course_id = ?
		ORDER BY position, id
	`

	rows, err := r.db.QueryContext(ctx, query, courseID)
	if err != nil {
		r.logger.Error("failed to query course media", zap.Error(err))
		return nil, fmt.Errorf("failed to query course media: %w", err)
	}
	defer rows.Close()

	media := []models.SeedMedia{}
	for rows.Next() {
		var m models.SeedMedia
		if err := rows.Scan(&m.ID, &m.Title, &m.Description, &m.DurationSeconds, &m.ThumbnailRef, &m.SourceRef); err != nil {
			r.logger.Error("failed to scan course media", zap.Error(err))
			return nil, fmt.Errorf("failed to scan course media: %w", err)
		}
		media = append(media, m)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating rows", zap.Error(err))
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return media, nil
}

// ApplyUpdate writes a course update in a single transaction.
//
// Returns the identifiers of the media rows keyed by their LocalID.
func (r *courseEditorRepository) ApplyUpdate(ctx context.Context, update *models.CourseRecordUpdate) (map[string]int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("failed to begin transaction", zap.Error(err))
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id int
	err = tx.QueryRowContext(ctx, `SELECT id FROM courses WHERE id = ? FOR UPDATE`, update.CourseID).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, ErrCourseNotFound
	}
	if err != nil {
		r.logger.Error("failed to lock course", zap.Int("course_id", update.CourseID), zap.Error(err))
		return nil, fmt.Errorf("failed to lock course: %w", err)
	}

	if err := r.updateCourse(ctx, tx, update); err != nil {
		return nil, err
	}
	if err := r.deleteMedia(ctx, tx, update.CourseID, update.RemovedMediaIDs); err != nil {
		return nil, err
	}
	if err := r.replaceTags(ctx, tx, update.CourseID, update.Metadata.Tags); err != nil {
		return nil, err
	}
	ids, err := r.saveMedia(ctx, tx, update.CourseID, update.Media)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("failed to commit transaction", zap.Error(err))
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return ids, nil
}

func (r *courseEditorRepository) updateCourse(ctx context.Context, tx *sql.Tx, update *models.CourseRecordUpdate) error {
	meta := update.Metadata
	setClauses := []string{
		"title = ?", "category = ?", "skill_level = ?", "price = ?", "duration_weeks = ?",
		"hours_per_week = ?", "description = ?", "what_you_will_learn = ?", "requirements = ?",
		"learning_schedule = ?", "language = ?", "status = ?",
	}
	args := []any{
		meta.Title, meta.Category, string(meta.SkillLevel), nullable(meta.Price), nullable(meta.DurationWeeks),
		nullable(meta.HoursPerWeek), meta.Description, meta.WhatYouWillLearn, meta.Requirements,
		meta.LearningSchedule, meta.Language, string(update.Status),
	}
	if update.CoverURL != nil {
		setClauses = append(setClauses, "cover_url = ?")
		args = append(args, *update.CoverURL)
	}
	args = append(args, update.CourseID)

	query := fmt.Sprintf("UPDATE courses SET %s WHERE id = ?", strings.Join(setClauses, ", "))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("failed to update course", zap.Int("course_id", update.CourseID), zap.Error(err))
		return fmt.Errorf("failed to update course: %w", err)
	}
	return nil
}

func (r *courseEditorRepository) deleteMedia(ctx context.Context, tx *sql.Tx, courseID int, ids []int) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := make([]string, len(ids))
	args := []any{courseID}
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}
	query := fmt.Sprintf("DELETE FROM course_media WHERE course_id = ? AND id IN (%s)", strings.Join(placeholders, ","))

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("failed to delete course media", zap.Int("course_id", courseID), zap.Error(err))
		return fmt.Errorf("failed to delete course media: %w", err)
	}
	return nil
}

func (r *courseEditorRepository) replaceTags(ctx context.Context, tx *sql.Tx, courseID int, tags []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM course_tags WHERE course_id = ?`, courseID); err != nil {
		r.logger.Error("failed to delete course tags", zap.Int("course_id", courseID), zap.Error(err))
		return fmt.Errorf("failed to delete course tags: %w", err)
	}
	if len(tags) == 0 {
		return nil
	}

	placeholders := make([]string, len(tags))
	args := []any{}
	for i, tag := range tags {
		placeholders[i] = "(?, ?, ?)"
		args = append(args, courseID, tag, i)
	}
	query := fmt.Sprintf("INSERT INTO course_tags (course_id, tag, position) VALUES %s", strings.Join(placeholders, ","))

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("failed to insert course tags", zap.Int("course_id", courseID), zap.Error(err))
		return fmt.Errorf("failed to insert course tags: %w", err)
	}
	return nil
}

func (r *courseEditorRepository) saveMedia(ctx context.Context, tx *sql.Tx, courseID int, media []models.MediaRecord) (map[string]int, error) {
	ids := make(map[string]int, len(media))
	for _, m := range media {
		if m.ID != nil {
			query := `
				UPDATE course_media
				SET position = ?, title = ?, description = ?, duration_seconds = ?, thumbnail_url = ?
				WHERE id = ? AND course_id = ?
			`
			if _, err := tx.ExecContext(ctx, query, m.Position, m.Title, m.Description, m.DurationSeconds, m.ThumbnailURL, *m.ID, courseID); err != nil {
				r.logger.Error("failed to update course media", zap.Int("media_id", *m.ID), zap.Error(err))
				return nil, fmt.Errorf("failed to update course media: %w", err)
			}
			ids[m.LocalID] = *m.ID
			continue
		}

		query := `
			INSERT INTO course_media (course_id, position, title, description, duration_seconds, source_url, thumbnail_url)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`
		result, err := tx.ExecContext(ctx, query, courseID, m.Position, m.Title, m.Description, m.DurationSeconds, m.SourceURL, m.ThumbnailURL)
		if err != nil {
			r.logger.Error("failed to insert course media", zap.Int("course_id", courseID), zap.Error(err))
			return nil, fmt.Errorf("failed to insert course media: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			r.logger.Error("failed to get inserted media id", zap.Error(err))
			return nil, fmt.Errorf("failed to get inserted media id: %w", err)
		}
		ids[m.LocalID] = int(id)
	}
	return ids, nil
}

// nullable converts an optional value into a driver argument
func nullable[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}
