package models

// CommitIntent represents one of the four ways to persist an authoring session
type CommitIntent string

const (
	CommitIntentSaveDraft                CommitIntent = "saveDraft"
	CommitIntentPublish                  CommitIntent = "publish"
	CommitIntentSaveAsDraftFromPublished CommitIntent = "saveAsDraftFromPublished"
	CommitIntentEditPublished            CommitIntent = "editPublished"
)

// ValidationTier selects one of the two validation rule sets
type ValidationTier string

const (
	ValidationTierDraft   ValidationTier = "draft"
	ValidationTierPublish ValidationTier = "publish"
)

// FieldErrors maps a field name to a human readable error. An empty map means valid.
type FieldErrors map[string]string

// CommitResult is the outcome of a commit intent
type CommitResult struct {
	Success bool            `json:"success"`
	Status  LifecycleStatus `json:"status"`
	Errors  FieldErrors     `json:"errors,omitempty"`
}

// MediaUpdate is one entry of the media list sent with a course update
type MediaUpdate struct {
	LocalID         string    `json:"localId"`
	PersistedID     *int      `json:"persistedId,omitempty"`
	Position        int       `json:"position"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	DurationSeconds int       `json:"durationSeconds"`
	SourceRef       string    `json:"sourceRef,omitempty"`
	SourceFile      LocalFile `json:"-"`
	ThumbnailRef    string    `json:"thumbnailRef,omitempty"`
	ThumbnailFile   LocalFile `json:"-"`
}

// UpdateCourseRequest is the differential update sent to the course collaborator.
// A nil CoverFile keeps the existing cover.
type UpdateCourseRequest struct {
	CourseID        int             `json:"courseId"`
	Metadata        CourseMetadata  `json:"metadata"`
	Status          LifecycleStatus `json:"status"`
	Media           []MediaUpdate   `json:"media"`
	RemovedMediaIDs []int           `json:"removedMediaIds"`
	CoverFile       LocalFile       `json:"-"`
}

// CommittedMedia describes how the collaborator stored one media item
type CommittedMedia struct {
	ID           int    `json:"id"`
	SourceRef    string `json:"sourceRef"`
	ThumbnailRef string `json:"thumbnailRef,omitempty"`
}

// UpdateCourseResult is the acknowledgement of a successful course update.
// Media is keyed by MediaItem.LocalID.
type UpdateCourseResult struct {
	Media    map[string]CommittedMedia `json:"media"`
	CoverRef string                    `json:"coverRef,omitempty"`
}

// IngestionError describes a file rejected by addMedia
type IngestionError struct {
	FileName string `json:"fileName"`
	Reason   string `json:"reason"`
}

// AddMediaResult is the outcome of adding a batch of files
type AddMediaResult struct {
	Accepted  []string         `json:"accepted"`
	Rejected  []IngestionError `json:"rejected,omitempty"`
	Discarded int              `json:"discarded"`
	Notice    string           `json:"notice,omitempty"`
	Summary   DurationSummary  `json:"summary"`
}

// MediaItemView is the representation of a media item for API responses
type MediaItemView struct {
	LocalID           string `json:"localId"`
	PersistedID       *int   `json:"persistedId,omitempty"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	DurationSeconds   int    `json:"durationSeconds"`
	DurationFormatted string `json:"durationFormatted"`
	ThumbnailRef      string `json:"thumbnailRef,omitempty"`
	HasNewThumbnail   bool   `json:"hasNewThumbnail"`
	SourceRef         string `json:"sourceRef,omitempty"`
	FileName          string `json:"fileName,omitempty"`
}

// SessionView is the representation of an authoring session for API responses
type SessionView struct {
	SessionID       string          `json:"sessionId,omitempty"`
	CourseID        int             `json:"courseId"`
	Status          LifecycleStatus `json:"status"`
	Metadata        CourseMetadata  `json:"metadata"`
	CoverRef        string          `json:"coverRef,omitempty"`
	HasNewCover     bool            `json:"hasNewCover"`
	Media           []MediaItemView `json:"media"`
	PendingRemovals []int           `json:"pendingRemovals"`
	SelectedIndex   int             `json:"selectedIndex"`
	Dirty           bool            `json:"dirty"`
	CommitInFlight  bool            `json:"commitInFlight"`
	Summary         DurationSummary `json:"summary"`
}

// NewMediaItemView builds the API view of a media item
func NewMediaItemView(item MediaItem) MediaItemView {
	view := MediaItemView{
		LocalID:           item.LocalID,
		PersistedID:       item.PersistedID,
		Title:             item.Title,
		Description:       item.Description,
		DurationSeconds:   item.DurationSeconds,
		DurationFormatted: item.DurationFormatted(),
		ThumbnailRef:      item.Thumbnail.Ref,
		HasNewThumbnail:   item.Thumbnail.IsNew(),
		SourceRef:         item.Source.Ref,
	}
	if item.Source.File != nil {
		view.FileName = item.Source.File.Name()
	}
	return view
}

// CourseRecordUpdate is a course update as written to the database.
// A nil CoverURL keeps the stored cover.
type CourseRecordUpdate struct {
	CourseID        int
	Metadata        CourseMetadata
	Status          LifecycleStatus
	CoverURL        *string
	RemovedMediaIDs []int
	Media           []MediaRecord
}

// MediaRecord is one media row of a course update. Rows without ID are inserted.
type MediaRecord struct {
	LocalID         string
	ID              *int
	Position        int
	Title           string
	Description     string
	DurationSeconds int
	SourceURL       string
	ThumbnailURL    string
}
