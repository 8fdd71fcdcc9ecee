package dto

// CreateTaskRequest creates a publish task. Mode and scheduling are
// configured afterward via update.
type CreateTaskRequest struct {
	Title     string   `json:"title" binding:"required"`
	VideoURL  *string  `json:"video_url,omitempty"`
	CoverURL  *string  `json:"cover_url,omitempty"`
	SeriesID  *string  `json:"series_id,omitempty"`
	Platforms []string `json:"platforms" binding:"required,min=1"`
}

// UpdateTaskRequest edits a draft or scheduled task; nil fields are left
// untouched.
type UpdateTaskRequest struct {
	Title       *string   `json:"title,omitempty"`
	VideoURL    *string   `json:"video_url,omitempty"`
	CoverURL    *string   `json:"cover_url,omitempty"`
	SeriesID    *string   `json:"series_id,omitempty"`
	Platforms   *[]string `json:"platforms,omitempty"`
	PublishMode *string   `json:"publish_mode,omitempty"`
	ScheduledAt *string   `json:"scheduled_at,omitempty"` // RFC3339; empty string clears
}

// PlatformContentRequest upserts per-platform content for a task.
type PlatformContentRequest struct {
	Platform    string  `json:"platform" binding:"required"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Hashtags    *string `json:"hashtags,omitempty"`
	Privacy     *string `json:"privacy,omitempty"`
	CategoryID  *string `json:"category_id,omitempty"`
	PlaylistID  *string `json:"playlist_id,omitempty"`
	Thumbnail   *string `json:"thumbnail,omitempty"`
}

// TriggerRequest starts publishing. Platforms defaults to the task's full
// platform set when empty; a supplied subset must be contained in it.
type TriggerRequest struct {
	Platforms []string `json:"platforms,omitempty"`
}

// CallbackRequest is the asynchronous per-platform completion report from
// the workflow engine.
type CallbackRequest struct {
	TaskID       string  `json:"taskId" binding:"required"`
	Platform     string  `json:"platform" binding:"required"`
	Success      bool    `json:"success"`
	ExternalID   *string `json:"externalId,omitempty"`
	ExternalURL  *string `json:"externalUrl,omitempty"`
	ErrorMessage *string `json:"errorMessage,omitempty"`
	PublishedAt  *string `json:"publishedAt,omitempty"` // RFC3339
}

// DispatchPayload is what the workflow engine receives on trigger.
type DispatchPayload struct {
	TaskID      string                     `json:"task_id"`
	Title       string                     `json:"title"`
	VideoURL    *string                    `json:"video_url,omitempty"`
	CoverURL    *string                    `json:"cover_url,omitempty"`
	ScheduledAt *string                    `json:"scheduled_at,omitempty"` // RFC3339, scheduled YouTube publishes
	Targets     []DispatchTarget           `json:"targets"`
}

// DispatchTarget carries one platform's content and resolved credentials.
type DispatchTarget struct {
	Platform    string  `json:"platform"`
	AccountID   string  `json:"account_id"`
	ExternalID  *string `json:"external_id,omitempty"`
	AccessToken string  `json:"access_token,omitempty"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Hashtags    *string `json:"hashtags,omitempty"`
	Privacy     *string `json:"privacy,omitempty"`
	CategoryID  *string `json:"category_id,omitempty"`
	PlaylistID  *string `json:"playlist_id,omitempty"`
	Thumbnail   *string `json:"thumbnail,omitempty"`
}
