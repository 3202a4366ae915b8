//go:build integration

package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/japanesestudent/course-authoring/internal/authoring"
	"github.com/japanesestudent/course-authoring/internal/config"
	"github.com/japanesestudent/course-authoring/internal/handlers"
	"github.com/japanesestudent/course-authoring/internal/models"
	"github.com/japanesestudent/course-authoring/internal/repositories"
	"github.com/japanesestudent/course-authoring/internal/services"
	"github.com/japanesestudent/course-authoring/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	testDB     *sql.DB
	testLogger *zap.Logger
)

var mp4Header = []byte("\x00\x00\x00\x18ftypisom\x00\x00\x02\x00isomiso2avc1mp41")

func TestMain(m *testing.M) {
	var err error
	testLogger, err = zap.NewDevelopment()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	cfg, err := config.LoadTestConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to load test config: %v", err))
	}
	dsn := "root:password@tcp(localhost:3306)/course_authoring_test?parseTime=true&charset=utf8mb4&multiStatements=true"
	if cfg.Database.Host != "" {
		dsn = cfg.DSN() + "&multiStatements=true"
	}

	testDB, err = sql.Open("mysql", dsn)
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to test database: %v", err))
	}
	if err = testDB.Ping(); err != nil {
		panic(fmt.Sprintf("Failed to ping test database: %v", err))
	}

	if err := migrateTestSchema(testDB); err != nil {
		panic(fmt.Sprintf("Failed to migrate test database: %v", err))
	}

	code := m.Run()
	testDB.Close()
	os.Exit(code)
}

func migrateTestSchema(db *sql.DB) error {
	driver, err := mysql.WithInstance(db, &mysql.Config{MigrationsTable: "authoring_schema_migrations"})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithDatabaseInstance("file://../../migrations", "mysql", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

// seedCourse inserts a draft course with two lessons and returns its id
func seedCourse(t *testing.T) int {
	t.Helper()
	_, err := testDB.Exec("DELETE FROM courses")
	require.NoError(t, err)

	res, err := testDB.Exec(`
		INSERT INTO courses (title, category, skill_level, description, what_you_will_learn, requirements, learning_schedule, language, status)
		VALUES ('Hiragana', '', '', '', '', '', '', 'English', 'draft')`)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)

	_, err = testDB.Exec(`
		INSERT INTO course_media (course_id, position, title, description, duration_seconds, source_url, thumbnail_url) VALUES
		(?, 0, 'Intro', '', 60, '/files/course/media/intro.mp4', ''),
		(?, 1, 'Vowels', '', 90, '/files/course/media/vowels.mp4', '')`, id, id)
	require.NoError(t, err)
	_, err = testDB.Exec(`INSERT INTO course_tags (course_id, tag, position) VALUES (?, 'kana', 0)`, id)
	require.NoError(t, err)
	return int(id)
}

func setupTestRouter(t *testing.T) (chi.Router, string) {
	t.Helper()
	mediaDir := t.TempDir()
	store := storage.NewLocalStorage(mediaDir, "/files", testLogger)
	stager, err := storage.NewStager(filepath.Join(t.TempDir(), "staging"), testLogger)
	require.NoError(t, err)

	repo := repositories.NewCourseEditorRepository(testDB, testLogger)
	updater := services.NewCourseUpdater(repo, store, testLogger)
	pipeline := authoring.NewDurationPipeline(nil, 1, time.Second, testLogger)
	editor := services.NewCourseEditorService(repo, updater, pipeline, time.Hour, testLogger)
	t.Cleanup(editor.Shutdown)

	r := chi.NewRouter()
	r.Route("/api/v1", handlers.NewAuthoringHandler(editor, stager, testLogger).RegisterRoutes)
	handlers.NewFileHandler(store, testLogger).RegisterRoutes(r)
	return r, mediaDir
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, &buf))
	return w
}

func TestIntegration_SaveDraft(t *testing.T) {
	courseID := seedCourse(t)
	router, _ := setupTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/authoring/sessions", map[string]int{"courseId": courseID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var view models.SessionView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	require.Len(t, view.Media, 2)
	assert.Equal(t, []string{"kana"}, view.Metadata.Tags)
	base := "/api/v1/authoring/sessions/" + view.SessionID

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("files", "consonants.mp4")
	require.NoError(t, err)
	_, err = part.Write(mp4Header)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, base+"/media", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodDelete, base+"/media/"+view.Media[0].LocalID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, router, http.MethodPatch, base+"/metadata", map[string]string{"name": "price", "value": "19.99"})
	require.Equal(t, http.StatusNoContent, w.Code)
	w = doJSON(t, router, http.MethodPost, base+"/tags", map[string]string{"tag": "beginner"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, base+"/commit", map[string]string{"intent": "saveDraft"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var price float64
	require.NoError(t, testDB.QueryRow("SELECT price FROM courses WHERE id = ?", courseID).Scan(&price))
	assert.InDelta(t, 19.99, price, 0.001)

	rows, err := testDB.Query("SELECT title, position, source_url FROM course_media WHERE course_id = ? ORDER BY position", courseID)
	require.NoError(t, err)
	defer rows.Close()
	var titles []string
	var newSource string
	for rows.Next() {
		var title, source string
		var position int
		require.NoError(t, rows.Scan(&title, &position, &source))
		assert.Equal(t, len(titles), position)
		titles = append(titles, title)
		newSource = source
	}
	assert.Equal(t, []string{"Vowels", "consonants"}, titles)

	w = doJSON(t, router, http.MethodGet, newSource, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, mp4Header, w.Body.Bytes())

	var tagCount int
	require.NoError(t, testDB.QueryRow("SELECT COUNT(*) FROM course_tags WHERE course_id = ?", courseID).Scan(&tagCount))
	assert.Equal(t, 2, tagCount)

	w = doJSON(t, router, http.MethodGet, base+"/dirty", nil)
	assert.JSONEq(t, `{"dirty": false}`, w.Body.String())

	w = doJSON(t, router, http.MethodPost, base+"/commit", map[string]string{"intent": "saveDraft"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestIntegration_OpenMissingCourse(t *testing.T) {
	seedCourse(t)
	router, _ := setupTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/authoring/sessions", map[string]int{"courseId": 999999})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIntegration_RepositoryRollback(t *testing.T) {
	courseID := seedCourse(t)
	repo := repositories.NewCourseEditorRepository(testDB, testLogger)

	seed, err := repo.FetchForEdit(context.Background(), courseID)
	require.NoError(t, err)

	// The oversized title fails the media insert after the course row was already updated
	_, err = repo.ApplyUpdate(context.Background(), &models.CourseRecordUpdate{
		CourseID: courseID,
		Metadata: models.CourseMetadata{Title: "Changed", Language: "English"},
		Status:   models.LifecycleStatusDraft,
		Media:    []models.MediaRecord{{LocalID: "x", Title: string(make([]byte, 300))}},
	})
	require.Error(t, err)

	after, err := repo.FetchForEdit(context.Background(), courseID)
	require.NoError(t, err)
	assert.Equal(t, seed.Metadata.Title, after.Metadata.Title)
	assert.Len(t, after.Media, len(seed.Media))
}
