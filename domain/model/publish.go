package model

import "time"

// TaskStatus is the aggregate lifecycle status of a publish task.
type TaskStatus string

const (
	TaskDraft         TaskStatus = "DRAFT"
	TaskScheduled     TaskStatus = "SCHEDULED"
	TaskPublishing    TaskStatus = "PUBLISHING"
	TaskPublished     TaskStatus = "PUBLISHED"
	TaskFailed        TaskStatus = "FAILED"
	TaskPartialFailed TaskStatus = "PARTIAL_FAILED"
)

// PublishMode controls how a task is triggered.
type PublishMode string

const (
	ModeManual    PublishMode = "MANUAL"
	ModeScheduled PublishMode = "SCHEDULED"
)

// RecordStatus is the outcome of one per-platform publish attempt.
type RecordStatus string

const (
	RecordPublished RecordStatus = "PUBLISHED"
	RecordFailed    RecordStatus = "FAILED"
)

// PublishTask is one content item targeted at one or more platforms.
type PublishTask struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	VideoURL    *string     `json:"video_url,omitempty"`
	CoverURL    *string     `json:"cover_url,omitempty"`
	SeriesID    *string     `json:"series_id,omitempty"`
	Platforms   []Platform  `json:"platforms"`
	PublishMode PublishMode `json:"publish_mode"`
	ScheduledAt *time.Time  `json:"scheduled_at,omitempty"`
	Status      TaskStatus  `json:"status"`
	CreatedBy   string      `json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`

	Contents []*PlatformContent `json:"contents,omitempty"`
	Records  []*PublishRecord   `json:"records,omitempty"`
	Accounts []*TaskAccount     `json:"accounts,omitempty"`
}

// HasPlatform reports whether p is in the task's target set.
func (t *PublishTask) HasPlatform(p Platform) bool {
	for _, tp := range t.Platforms {
		if tp == p {
			return true
		}
	}
	return false
}

// Editable reports whether task fields may still be modified.
func (t *PublishTask) Editable() bool {
	return t.Status == TaskDraft || t.Status == TaskScheduled
}

// Triggerable reports whether the task may be (re-)published.
func (t *PublishTask) Triggerable() bool {
	return t.Status == TaskDraft || t.Status == TaskScheduled || t.Status == TaskPartialFailed
}

// Deletable reports whether the task may be removed. PUBLISHING and
// PUBLISHED tasks are never deletable.
func (t *PublishTask) Deletable() bool {
	switch t.Status {
	case TaskDraft, TaskScheduled, TaskFailed, TaskPartialFailed:
		return true
	}
	return false
}

// PlatformContent holds per-platform overrides for a task, one per
// (task, platform).
type PlatformContent struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	Platform    Platform  `json:"platform"`
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Hashtags    *string   `json:"hashtags,omitempty"`
	Privacy     *string   `json:"privacy,omitempty"`  // YouTube: public | unlisted | private
	CategoryID  *string   `json:"category_id,omitempty"`
	PlaylistID  *string   `json:"playlist_id,omitempty"`
	Thumbnail   *string   `json:"thumbnail,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PublishRecord is an append-only log entry of a per-platform attempt.
type PublishRecord struct {
	ID           int64        `json:"id"`
	TaskID       string       `json:"task_id"`
	Platform     Platform     `json:"platform"`
	Status       RecordStatus `json:"status"`
	ExternalID   *string      `json:"external_id,omitempty"`
	ExternalURL  *string      `json:"external_url,omitempty"`
	ErrorMessage *string      `json:"error_message,omitempty"`
	PublishedAt  time.Time    `json:"published_at"`
	CreatedAt    time.Time    `json:"created_at"`
}

// TaskAccount links the social account that serves a platform for one task.
type TaskAccount struct {
	ID        int64     `json:"id"`
	TaskID    string    `json:"task_id"`
	Platform  Platform  `json:"platform"`
	AccountID string    `json:"account_id"`
	CreatedAt time.Time `json:"created_at"`
}
