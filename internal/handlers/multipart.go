package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/japanesestudent/course-authoring/internal/models"
	"github.com/japanesestudent/course-authoring/internal/storage"
)

const maxFormValueSize = 64 << 10 // 64KB

// errFormValueTooLarge is returned for a text field above maxFormValueSize
var errFormValueTooLarge = errors.New("form value is too large")

// stagedForm is a multipart request whose file parts have been staged on disk.
// Files not taken by the handler are released by release.
type stagedForm struct {
	values map[string]string
	files  map[string][]*storage.StagedFile
}

// value returns a text field and whether it was sent
func (f *stagedForm) value(name string) (string, bool) {
	v, ok := f.values[name]
	return v, ok
}

// take hands the staged files of a field over to the caller
func (f *stagedForm) take(name string) []models.LocalFile {
	staged := f.files[name]
	delete(f.files, name)

	files := make([]models.LocalFile, len(staged))
	for i, s := range staged {
		files[i] = s
	}
	return files
}

// takeOne hands the first staged file of a field over to the caller; the rest are released
func (f *stagedForm) takeOne(name string) models.LocalFile {
	files := f.take(name)
	if len(files) == 0 {
		return nil
	}
	for _, extra := range files[1:] {
		extra.Release()
	}
	return files[0]
}

// release frees every file that was not taken
func (f *stagedForm) release() {
	for _, staged := range f.files {
		for _, s := range staged {
			s.Release()
		}
	}
	f.files = map[string][]*storage.StagedFile{}
}

// readStagedForm streams a multipart body, staging file parts as they arrive
func readStagedForm(r *http.Request, stager FileStager) (*stagedForm, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("expected a multipart form: %w", err)
	}

	form := &stagedForm{
		values: make(map[string]string),
		files:  make(map[string][]*storage.StagedFile),
	}
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return form, nil
		}
		if err != nil {
			form.release()
			return nil, fmt.Errorf("failed to read multipart form: %w", err)
		}

		name := part.FormName()
		if part.FileName() == "" {
			data, err := io.ReadAll(io.LimitReader(part, maxFormValueSize+1))
			part.Close()
			if err != nil {
				form.release()
				return nil, fmt.Errorf("failed to read form value %q: %w", name, err)
			}
			if len(data) > maxFormValueSize {
				form.release()
				return nil, fmt.Errorf("%w: %s", errFormValueTooLarge, name)
			}
			form.values[name] = string(data)
			continue
		}

		staged, err := stager.Stage(part.FileName(), part)
		part.Close()
		if err != nil {
			form.release()
			return nil, err
		}
		form.files[name] = append(form.files[name], staged)
	}
}

// formStatus returns the status code for a failed multipart read
func formStatus(err error) int {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}
