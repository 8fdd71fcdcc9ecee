package usecase

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"social-ops/domain/dto"
	"social-ops/domain/model"
	"social-ops/domain/repository"
	"social-ops/infrastructure/logger"
	"social-ops/infrastructure/persistence"
	"social-ops/infrastructure/pubsub"
	"social-ops/infrastructure/realtime"
	"social-ops/infrastructure/servicebus"
	"social-ops/infrastructure/utils"
)

var (
	ErrTaskNotEditable    = errors.New("task can no longer be edited")
	ErrTaskNotTriggerable = errors.New("task cannot be published in its current status")
	ErrTaskNotDeletable   = errors.New("publishing or published tasks cannot be deleted")
)

type IPublishUsecase interface {
	CreateTask(ctx context.Context, userID string, req dto.CreateTaskRequest) (*model.PublishTask, error)
	GetTask(ctx context.Context, userID, taskID string) (*model.PublishTask, error)
	ListTasks(ctx context.Context, userID string, limit, offset int) ([]*model.PublishTask, error)
	UpdateTask(ctx context.Context, userID, taskID string, req dto.UpdateTaskRequest) (*model.PublishTask, error)
	DeleteTask(ctx context.Context, userID, taskID string) error

	UpsertPlatformContent(ctx context.Context, userID, taskID string, req dto.PlatformContentRequest) (*model.PlatformContent, error)
	ListPlatformContents(ctx context.Context, userID, taskID string) ([]*model.PlatformContent, error)

	// Trigger starts publishing for the whole platform set or a subset of it.
	Trigger(ctx context.Context, userID, taskID string, req dto.TriggerRequest) (*model.PublishTask, error)
	// CancelSchedule reverts a SCHEDULED task to DRAFT. A pre-uploaded
	// YouTube asset is flipped back to private best-effort.
	CancelSchedule(ctx context.Context, userID, taskID string) (*model.PublishTask, error)

	// HandleCallback folds one per-platform result into the aggregate status.
	HandleCallback(ctx context.Context, req dto.CallbackRequest, raw []byte) (*model.PublishTask, error)
	ListRecords(ctx context.Context, userID, taskID string) ([]*model.PublishRecord, error)
	ListExecutions(ctx context.Context, opts repository.ExecutionListOptions) ([]repository.WorkflowExecution, error)
}

type PublishUsecase struct {
	taskRepository    repository.IPublishTask
	accountRepository repository.ISocialAccount
	workflowClient    repository.IWorkflow
	googleClient      repository.IGoogleOAuth
	tokenGuard        ITokenGuard
	hub               *realtime.Hub
	eventPublisher    pubsub.ITaskEventPublisher
	eventSender       servicebus.ITaskEventSender
	callbackArchive   persistence.ICallbackArchive
}

func NewPublishUsecase(
	taskRepository repository.IPublishTask,
	accountRepository repository.ISocialAccount,
	workflowClient repository.IWorkflow,
	googleClient repository.IGoogleOAuth,
	tokenGuard ITokenGuard,
	hub *realtime.Hub,
	eventPublisher pubsub.ITaskEventPublisher,
	eventSender servicebus.ITaskEventSender,
	callbackArchive persistence.ICallbackArchive,
) IPublishUsecase {
	return &PublishUsecase{
		taskRepository:    taskRepository,
		accountRepository: accountRepository,
		workflowClient:    workflowClient,
		googleClient:      googleClient,
		tokenGuard:        tokenGuard,
		hub:               hub,
		eventPublisher:    eventPublisher,
		eventSender:       eventSender,
		callbackArchive:   callbackArchive,
	}
}

func (u *PublishUsecase) CreateTask(ctx context.Context, userID string, req dto.CreateTaskRequest) (*model.PublishTask, error) {
	platforms, err := parsePlatforms(req.Platforms)
	if err != nil {
		return nil, err
	}

	now := utils.GetCurrentTime()
	task := &model.PublishTask{
		ID:          uuid.NewString(),
		Title:       req.Title,
		VideoURL:    req.VideoURL,
		CoverURL:    req.CoverURL,
		SeriesID:    req.SeriesID,
		Platforms:   platforms,
		PublishMode: model.ModeManual,
		Status:      model.TaskDraft,
		CreatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := u.taskRepository.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (u *PublishUsecase) GetTask(ctx context.Context, userID, taskID string) (*model.PublishTask, error) {
	task, err := u.ownedTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	records, err := u.taskRepository.ListRecords(ctx, taskID)
	if err != nil {
		return nil, err
	}
	task.Records = records
	return task, nil
}

func (u *PublishUsecase) ListTasks(ctx context.Context, userID string, limit, offset int) ([]*model.PublishTask, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return u.taskRepository.ListTasks(ctx, userID, limit, offset)
}

func (u *PublishUsecase) UpdateTask(ctx context.Context, userID, taskID string, req dto.UpdateTaskRequest) (*model.PublishTask, error) {
	task, err := u.ownedTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if !task.Editable() {
		return nil, ErrTaskNotEditable
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.VideoURL != nil {
		task.VideoURL = req.VideoURL
	}
	if req.CoverURL != nil {
		task.CoverURL = req.CoverURL
	}
	if req.SeriesID != nil {
		task.SeriesID = req.SeriesID
	}

	platformsChanged := false
	if req.Platforms != nil {
		platforms, err := parsePlatforms(*req.Platforms)
		if err != nil {
			return nil, err
		}
		task.Platforms = platforms
		platformsChanged = true
	}

	if req.PublishMode != nil {
		mode := model.PublishMode(*req.PublishMode)
		if mode != model.ModeManual && mode != model.ModeScheduled {
			return nil, fmt.Errorf("%w: unsupported publish mode %s", ErrInvalidInput, *req.PublishMode)
		}
		task.PublishMode = mode
	}
	if req.ScheduledAt != nil {
		if *req.ScheduledAt == "" {
			task.ScheduledAt = nil
		} else {
			at, err := time.Parse(time.RFC3339, *req.ScheduledAt)
			if err != nil {
				return nil, fmt.Errorf("%w: scheduled_at must be RFC3339", ErrInvalidInput)
			}
			if !at.After(time.Now()) {
				return nil, fmt.Errorf("%w: scheduled_at must be in the future", ErrInvalidInput)
			}
			utc := at.UTC()
			task.ScheduledAt = &utc
		}
	}

	// Mode and schedule drive the aggregate status while the task is still
	// pre-publish: SCHEDULED mode with a schedule time means SCHEDULED, any
	// other combination falls back to DRAFT.
	if task.PublishMode == model.ModeScheduled && task.ScheduledAt != nil {
		task.Status = model.TaskScheduled
	} else {
		if task.PublishMode == model.ModeManual {
			task.ScheduledAt = nil
		}
		task.Status = model.TaskDraft
	}
	task.UpdatedAt = utils.GetCurrentTime()

	if err := u.taskRepository.UpdateTask(ctx, task); err != nil {
		return nil, err
	}
	if platformsChanged {
		if err := u.taskRepository.ReconcilePlatforms(ctx, task.ID, task.Platforms); err != nil {
			return nil, err
		}
	}
	return task, nil
}

func (u *PublishUsecase) DeleteTask(ctx context.Context, userID, taskID string) error {
	task, err := u.ownedTask(ctx, userID, taskID)
	if err != nil {
		return err
	}
	if !task.Deletable() {
		return ErrTaskNotDeletable
	}
	return u.taskRepository.DeleteTask(ctx, taskID)
}

func (u *PublishUsecase) UpsertPlatformContent(ctx context.Context, userID, taskID string, req dto.PlatformContentRequest) (*model.PlatformContent, error) {
	task, err := u.ownedTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if !task.Editable() {
		return nil, ErrTaskNotEditable
	}
	platform := model.Platform(req.Platform)
	if !task.HasPlatform(platform) {
		return nil, fmt.Errorf("%w: platform %s is not targeted by this task", ErrInvalidInput, req.Platform)
	}

	now := utils.GetCurrentTime()
	content := &model.PlatformContent{
		ID:          uuid.NewString(),
		TaskID:      taskID,
		Platform:    platform,
		Title:       req.Title,
		Description: req.Description,
		Hashtags:    req.Hashtags,
		Privacy:     req.Privacy,
		CategoryID:  req.CategoryID,
		PlaylistID:  req.PlaylistID,
		Thumbnail:   req.Thumbnail,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := u.taskRepository.UpsertPlatformContent(ctx, content); err != nil {
		return nil, err
	}
	return content, nil
}

func (u *PublishUsecase) ListPlatformContents(ctx context.Context, userID, taskID string) ([]*model.PlatformContent, error) {
	if _, err := u.ownedTask(ctx, userID, taskID); err != nil {
		return nil, err
	}
	return u.taskRepository.ListPlatformContents(ctx, taskID)
}

func (u *PublishUsecase) Trigger(ctx context.Context, userID, taskID string, req dto.TriggerRequest) (*model.PublishTask, error) {
	task, err := u.ownedTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if !task.Triggerable() {
		return nil, ErrTaskNotTriggerable
	}

	platforms := task.Platforms
	if len(req.Platforms) > 0 {
		platforms, err = parsePlatforms(req.Platforms)
		if err != nil {
			return nil, err
		}
		for _, p := range platforms {
			if !task.HasPlatform(p) {
				return nil, fmt.Errorf("%w: platform %s is not targeted by this task", ErrInvalidInput, p)
			}
		}
	}

	contents, err := u.taskRepository.ListPlatformContents(ctx, taskID)
	if err != nil {
		return nil, err
	}
	contentByPlatform := make(map[model.Platform]*model.PlatformContent, len(contents))
	for _, c := range contents {
		contentByPlatform[c.Platform] = c
	}

	targets := make([]dto.DispatchTarget, 0, len(platforms))
	for _, platform := range platforms {
		account, err := u.resolveAccount(ctx, task, platform)
		if err != nil {
			return nil, err
		}
		accessToken, err := u.tokenGuard.EnsureFreshToken(ctx, account)
		if err != nil {
			return nil, fmt.Errorf("account %s (%s): %w", account.AccountName, platform, err)
		}

		target := dto.DispatchTarget{
			Platform:    string(platform),
			AccountID:   account.ID,
			ExternalID:  account.AccountID,
			AccessToken: accessToken,
		}
		if c := contentByPlatform[platform]; c != nil {
			target.Title = c.Title
			target.Description = c.Description
			target.Hashtags = c.Hashtags
			target.Privacy = c.Privacy
			target.CategoryID = c.CategoryID
			target.PlaylistID = c.PlaylistID
			target.Thumbnail = c.Thumbnail
		}
		targets = append(targets, target)

		if err := u.accountRepository.TouchLastUsed(ctx, account.ID); err != nil {
			logger.GetLogger().WithField("error", err).Warn("Error while touching account last used")
		}
	}

	payload := &dto.DispatchPayload{
		TaskID:   task.ID,
		Title:    task.Title,
		VideoURL: task.VideoURL,
		CoverURL: task.CoverURL,
		Targets:  targets,
	}
	if task.PublishMode == model.ModeScheduled && task.ScheduledAt != nil {
		at := task.ScheduledAt.Format(time.RFC3339)
		payload.ScheduledAt = &at
	}

	previous := task.Status
	if err := u.taskRepository.UpdateTaskStatus(ctx, task.ID, model.TaskPublishing); err != nil {
		return nil, err
	}
	task.Status = model.TaskPublishing

	if err := u.workflowClient.DispatchPublish(ctx, payload); err != nil {
		// Dispatch never reached the engine; roll the status back so the
		// task stays triggerable.
		if rbErr := u.taskRepository.UpdateTaskStatus(ctx, task.ID, previous); rbErr != nil {
			logger.GetLogger().WithField("error", rbErr).Error("Error while rolling back task status")
		} else {
			task.Status = previous
		}
		return nil, fmt.Errorf("workflow dispatch failed: %w", err)
	}

	u.emitStatus(ctx, task.CreatedBy, task.ID, model.TaskPublishing, "")
	return task, nil
}

func (u *PublishUsecase) CancelSchedule(ctx context.Context, userID, taskID string) (*model.PublishTask, error) {
	task, err := u.ownedTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != model.TaskScheduled {
		return nil, fmt.Errorf("%w: only scheduled tasks can be unscheduled", ErrInvalidInput)
	}

	// A scheduled YouTube publish may have pre-uploaded the asset; flip it
	// back to private so it never goes live on its own.
	if task.HasPlatform(model.PlatformYouTube) {
		u.revertScheduledVideo(ctx, task)
	}

	task.PublishMode = model.ModeManual
	task.ScheduledAt = nil
	task.Status = model.TaskDraft
	task.UpdatedAt = utils.GetCurrentTime()
	if err := u.taskRepository.UpdateTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (u *PublishUsecase) revertScheduledVideo(ctx context.Context, task *model.PublishTask) {
	latest, err := u.taskRepository.LatestRecords(ctx, task.ID)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Error while loading latest records")
		return
	}
	rec := latest[model.PlatformYouTube]
	if rec == nil || rec.ExternalID == nil {
		return
	}
	account, err := u.resolveAccount(ctx, task, model.PlatformYouTube)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("No YouTube account to revert scheduled video")
		return
	}
	accessToken, err := u.tokenGuard.EnsureFreshToken(ctx, account)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Cannot refresh token to revert scheduled video")
		return
	}
	if u.googleClient == nil {
		return
	}
	if err := u.googleClient.SetVideoPrivacy(ctx, accessToken, *rec.ExternalID, "private"); err != nil {
		logger.GetLogger().
			WithField("videoId", *rec.ExternalID).
			WithField("error", err).
			Warn("Error while setting scheduled video back to private")
	}
}

func (u *PublishUsecase) HandleCallback(ctx context.Context, req dto.CallbackRequest, raw []byte) (*model.PublishTask, error) {
	platform := model.Platform(req.Platform)
	if !model.ValidPlatform(platform) {
		return nil, fmt.Errorf("%w: unsupported platform %s", ErrInvalidInput, req.Platform)
	}
	task, err := u.taskRepository.GetTask(ctx, req.TaskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !task.HasPlatform(platform) {
		return nil, fmt.Errorf("%w: platform %s is not targeted by task %s", ErrInvalidInput, platform, task.ID)
	}

	if err := u.callbackArchive.Archive(ctx, req.TaskID, req.Platform, raw); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Error while archiving callback payload")
	}

	now := utils.GetCurrentTime()
	publishedAt := now
	if req.PublishedAt != nil {
		if at, err := time.Parse(time.RFC3339, *req.PublishedAt); err == nil {
			publishedAt = at.UTC()
		}
	}
	record := &model.PublishRecord{
		TaskID:      task.ID,
		Platform:    platform,
		ExternalID:  req.ExternalID,
		ExternalURL: req.ExternalURL,
		PublishedAt: publishedAt,
		CreatedAt:   now,
	}
	if req.Success {
		record.Status = model.RecordPublished
	} else {
		record.Status = model.RecordFailed
		record.ErrorMessage = req.ErrorMessage
	}
	// Append and fold under the repository's row lock so a concurrent
	// callback cannot overwrite the status with a stale derivation.
	previous, next, err := u.taskRepository.AppendRecordReduce(ctx, record, reduceTaskStatus)
	if err != nil {
		return nil, err
	}
	task.Status = next
	if next != previous {
		u.emitStatus(ctx, task.CreatedBy, task.ID, next, string(platform))
	}
	u.hub.BroadcastPlatformResult(task.CreatedBy, record)

	return task, nil
}

func (u *PublishUsecase) ListRecords(ctx context.Context, userID, taskID string) ([]*model.PublishRecord, error) {
	if _, err := u.ownedTask(ctx, userID, taskID); err != nil {
		return nil, err
	}
	return u.taskRepository.ListRecords(ctx, taskID)
}

func (u *PublishUsecase) ListExecutions(ctx context.Context, opts repository.ExecutionListOptions) ([]repository.WorkflowExecution, error) {
	return u.workflowClient.ListExecutions(ctx, opts)
}

// reduceTaskStatus folds the latest per-platform records into the aggregate
// status. Platforms with no record yet keep the task in PUBLISHING.
func reduceTaskStatus(platforms []model.Platform, latest map[model.Platform]*model.PublishRecord) model.TaskStatus {
	published, failed := 0, 0
	for _, p := range platforms {
		rec := latest[p]
		if rec == nil {
			return model.TaskPublishing
		}
		switch rec.Status {
		case model.RecordPublished:
			published++
		case model.RecordFailed:
			failed++
		}
	}
	switch {
	case failed == 0:
		return model.TaskPublished
	case published == 0:
		return model.TaskFailed
	default:
		return model.TaskPartialFailed
	}
}

// resolveAccount finds the publishing account for one platform: the linked
// task account when present, otherwise the user's active account on that
// platform (which then gets linked).
func (u *PublishUsecase) resolveAccount(ctx context.Context, task *model.PublishTask, platform model.Platform) (*model.SocialAccount, error) {
	links, err := u.taskRepository.ListTaskAccounts(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	for _, l := range links {
		if l.Platform != platform {
			continue
		}
		account, err := u.accountRepository.GetByID(ctx, l.AccountID)
		if err != nil {
			return nil, err
		}
		if !account.Publishable() {
			return nil, fmt.Errorf("%w: account %s on %s is %s", ErrInvalidInput, account.AccountName, platform, account.Status)
		}
		return account, nil
	}

	accounts, err := u.accountRepository.ListByUser(ctx, task.CreatedBy, platform, true)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("%w: no active %s account available", ErrInvalidInput, platform)
	}
	account := accounts[0]
	link := &model.TaskAccount{
		TaskID:    task.ID,
		Platform:  platform,
		AccountID: account.ID,
		CreatedAt: utils.GetCurrentTime(),
	}
	if err := u.taskRepository.LinkAccount(ctx, link); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Error while linking task account")
	}
	return account, nil
}

func (u *PublishUsecase) ownedTask(ctx context.Context, userID, taskID string) (*model.PublishTask, error) {
	task, err := u.taskRepository.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if task.CreatedBy != userID {
		return nil, ErrForbidden
	}
	return task, nil
}

func (u *PublishUsecase) emitStatus(ctx context.Context, ownerID, taskID string, status model.TaskStatus, platform string) {
	u.hub.BroadcastTaskStatus(ownerID, taskID, status)

	event := pubsub.TaskStatusEvent{
		TaskID:     taskID,
		Status:     string(status),
		Platform:   platform,
		OccurredAt: utils.GetCurrentTime(),
	}
	if err := u.eventPublisher.PublishStatusChange(ctx, event); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Error while publishing status event")
	}
	if payload, err := json.Marshal(event); err == nil {
		if err := u.eventSender.SendStatusChange(ctx, payload); err != nil {
			logger.GetLogger().WithField("error", err).Warn("Error while sending status event")
		}
	}
}

func parsePlatforms(raw []string) ([]model.Platform, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: at least one platform is required", ErrInvalidInput)
	}
	platforms := make([]model.Platform, 0, len(raw))
	seen := make(map[model.Platform]struct{}, len(raw))
	for _, r := range raw {
		p := model.Platform(r)
		if !model.ValidPlatform(p) {
			return nil, fmt.Errorf("%w: unsupported platform %s", ErrInvalidInput, r)
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		platforms = append(platforms, p)
	}
	return platforms, nil
}
