package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"social-ops/domain/dto"
	"social-ops/domain/model"
	"social-ops/infrastructure/realtime"
	"social-ops/usecase"
)

type publishFixture struct {
	uc       usecase.IPublishUsecase
	tasks    *fakeTaskRepo
	accounts *fakeAccountRepo
	workflow *fakeWorkflowClient
	google   *fakeGoogleClient
	events   *fakeEventPublisher
	archive  *fakeCallbackArchive
}

type staticGuard struct{ err error }

func (g *staticGuard) EnsureFreshToken(_ context.Context, account *model.SocialAccount) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return account.AccessToken, nil
}

func newPublishFixture() *publishFixture {
	f := &publishFixture{
		tasks:    newFakeTaskRepo(),
		accounts: newFakeAccountRepo(),
		workflow: &fakeWorkflowClient{},
		google:   &fakeGoogleClient{},
		events:   &fakeEventPublisher{},
		archive:  &fakeCallbackArchive{},
	}
	f.uc = usecase.NewPublishUsecase(
		f.tasks,
		f.accounts,
		f.workflow,
		f.google,
		&staticGuard{},
		realtime.NewPublishHub(),
		f.events,
		&fakeEventSender{},
		f.archive,
	)
	return f
}

func (f *publishFixture) seedAccount(t *testing.T, platform model.Platform) *model.SocialAccount {
	t.Helper()
	external := "ext-" + string(platform)
	account := &model.SocialAccount{
		ID:          "acc-" + string(platform),
		UserID:      "user-1",
		Platform:    platform,
		AccountID:   &external,
		AccountName: string(platform) + " account",
		AccessToken: "token-" + string(platform),
		Status:      model.AccountActive,
	}
	require.NoError(t, f.accounts.Create(context.Background(), account))
	return account
}

func (f *publishFixture) seedTask(t *testing.T, platforms ...string) *model.PublishTask {
	t.Helper()
	task, err := f.uc.CreateTask(context.Background(), "user-1", dto.CreateTaskRequest{
		Title:     "Episode 12",
		Platforms: platforms,
	})
	require.NoError(t, err)
	return task
}

func strptr(s string) *string { return &s }

func TestPublish_CreateTaskStartsAsDraft(t *testing.T) {
	f := newPublishFixture()
	task := f.seedTask(t, "YOUTUBE", "INSTAGRAM")

	require.Equal(t, model.TaskDraft, task.Status)
	require.Equal(t, model.ModeManual, task.PublishMode)
	require.Len(t, task.Platforms, 2)
}

func TestPublish_CreateTaskRejectsUnknownPlatform(t *testing.T) {
	f := newPublishFixture()
	_, err := f.uc.CreateTask(context.Background(), "user-1", dto.CreateTaskRequest{
		Title:     "Episode 12",
		Platforms: []string{"TIKTOK"},
	})
	require.ErrorIs(t, err, usecase.ErrInvalidInput)
}

func TestPublish_UpdateTaskSchedules(t *testing.T) {
	f := newPublishFixture()
	task := f.seedTask(t, "YOUTUBE")

	at := time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339)
	updated, err := f.uc.UpdateTask(context.Background(), "user-1", task.ID, dto.UpdateTaskRequest{
		PublishMode: strptr("SCHEDULED"),
		ScheduledAt: &at,
	})
	require.NoError(t, err)
	require.Equal(t, model.TaskScheduled, updated.Status)
	require.NotNil(t, updated.ScheduledAt)
}

func TestPublish_ScheduledModeWithoutTimeFallsBackToDraft(t *testing.T) {
	f := newPublishFixture()
	task := f.seedTask(t, "YOUTUBE")

	updated, err := f.uc.UpdateTask(context.Background(), "user-1", task.ID, dto.UpdateTaskRequest{
		PublishMode: strptr("SCHEDULED"),
	})
	require.NoError(t, err)
	require.Equal(t, model.TaskDraft, updated.Status)
	require.Equal(t, model.ModeScheduled, updated.PublishMode)
	require.Nil(t, updated.ScheduledAt)
}

func TestPublish_UpdateTaskRejectsPastSchedule(t *testing.T) {
	f := newPublishFixture()
	task := f.seedTask(t, "YOUTUBE")

	at := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	_, err := f.uc.UpdateTask(context.Background(), "user-1", task.ID, dto.UpdateTaskRequest{
		PublishMode: strptr("SCHEDULED"),
		ScheduledAt: &at,
	})
	require.Error(t, err)
}

func TestPublish_SwitchBackToManualClearsSchedule(t *testing.T) {
	f := newPublishFixture()
	task := f.seedTask(t, "YOUTUBE")

	at := time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339)
	_, err := f.uc.UpdateTask(context.Background(), "user-1", task.ID, dto.UpdateTaskRequest{
		PublishMode: strptr("SCHEDULED"),
		ScheduledAt: &at,
	})
	require.NoError(t, err)

	updated, err := f.uc.UpdateTask(context.Background(), "user-1", task.ID, dto.UpdateTaskRequest{
		PublishMode: strptr("MANUAL"),
	})
	require.NoError(t, err)
	require.Equal(t, model.TaskDraft, updated.Status)
	require.Nil(t, updated.ScheduledAt)
}

func TestPublish_UpdateForbiddenForOtherUser(t *testing.T) {
	f := newPublishFixture()
	task := f.seedTask(t, "YOUTUBE")

	_, err := f.uc.UpdateTask(context.Background(), "user-2", task.ID, dto.UpdateTaskRequest{
		Title: strptr("hijack"),
	})
	require.ErrorIs(t, err, usecase.ErrForbidden)
}

func TestPublish_TriggerMovesToPublishing(t *testing.T) {
	f := newPublishFixture()
	f.seedAccount(t, model.PlatformYouTube)
	f.seedAccount(t, model.PlatformInstagram)
	task := f.seedTask(t, "YOUTUBE", "INSTAGRAM")

	triggered, err := f.uc.Trigger(context.Background(), "user-1", task.ID, dto.TriggerRequest{})
	require.NoError(t, err)
	require.Equal(t, model.TaskPublishing, triggered.Status)
	require.Len(t, f.workflow.payloads, 1)
	require.Len(t, f.workflow.payloads[0].Targets, 2)
	require.NotEmpty(t, f.events.events)
}

func TestPublish_TriggerSubsetMustBeContained(t *testing.T) {
	f := newPublishFixture()
	f.seedAccount(t, model.PlatformYouTube)
	task := f.seedTask(t, "YOUTUBE")

	_, err := f.uc.Trigger(context.Background(), "user-1", task.ID, dto.TriggerRequest{
		Platforms: []string{"INSTAGRAM"},
	})
	require.ErrorIs(t, err, usecase.ErrInvalidInput)
	require.Empty(t, f.workflow.payloads)
}

func TestPublish_TriggerWithoutAccountFails(t *testing.T) {
	f := newPublishFixture()
	task := f.seedTask(t, "YOUTUBE")

	// A missing account is the caller's problem, not a server fault.
	_, err := f.uc.Trigger(context.Background(), "user-1", task.ID, dto.TriggerRequest{})
	require.ErrorIs(t, err, usecase.ErrInvalidInput)

	stored, err := f.tasks.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	require.Equal(t, model.TaskDraft, stored.Status)
}

func TestPublish_TriggerDispatchFailureRollsBack(t *testing.T) {
	f := newPublishFixture()
	f.seedAccount(t, model.PlatformYouTube)
	task := f.seedTask(t, "YOUTUBE")
	f.workflow.dispatchErr = errors.New("engine down")

	_, err := f.uc.Trigger(context.Background(), "user-1", task.ID, dto.TriggerRequest{})
	require.Error(t, err)

	stored, err := f.tasks.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	require.Equal(t, model.TaskDraft, stored.Status, "failed dispatch must leave the task triggerable")
}

func TestPublish_TriggerExpiredTokenFails(t *testing.T) {
	f := newPublishFixture()
	f.seedAccount(t, model.PlatformYouTube)
	task := f.seedTask(t, "YOUTUBE")

	f.uc = usecase.NewPublishUsecase(
		f.tasks, f.accounts, f.workflow, f.google,
		&staticGuard{err: usecase.ErrTokenExpired},
		realtime.NewPublishHub(), f.events, &fakeEventSender{}, f.archive,
	)

	_, err := f.uc.Trigger(context.Background(), "user-1", task.ID, dto.TriggerRequest{})
	require.ErrorIs(t, err, usecase.ErrTokenExpired)
	require.Empty(t, f.workflow.payloads)
}

func triggerTask(t *testing.T, f *publishFixture, platforms ...model.Platform) *model.PublishTask {
	t.Helper()
	names := make([]string, len(platforms))
	for i, p := range platforms {
		names[i] = string(p)
		f.seedAccount(t, p)
	}
	task := f.seedTask(t, names...)
	_, err := f.uc.Trigger(context.Background(), "user-1", task.ID, dto.TriggerRequest{})
	require.NoError(t, err)
	return task
}

func callback(t *testing.T, f *publishFixture, taskID string, platform model.Platform, success bool) *model.PublishTask {
	t.Helper()
	req := dto.CallbackRequest{TaskID: taskID, Platform: string(platform), Success: success}
	if success {
		req.ExternalID = strptr("vid-1")
		req.ExternalURL = strptr("https://youtu.be/vid-1")
	} else {
		req.ErrorMessage = strptr("upload rejected")
	}
	task, err := f.uc.HandleCallback(context.Background(), req, []byte(`{}`))
	require.NoError(t, err)
	return task
}

func TestPublish_CallbackAllSuccessPublishes(t *testing.T) {
	f := newPublishFixture()
	task := triggerTask(t, f, model.PlatformYouTube, model.PlatformInstagram)

	mid := callback(t, f, task.ID, model.PlatformYouTube, true)
	require.Equal(t, model.TaskPublishing, mid.Status, "waiting for the second platform")

	final := callback(t, f, task.ID, model.PlatformInstagram, true)
	require.Equal(t, model.TaskPublished, final.Status)
	require.Equal(t, 2, f.archive.archived)
}

func TestPublish_CallbackAllFailedFails(t *testing.T) {
	f := newPublishFixture()
	task := triggerTask(t, f, model.PlatformYouTube, model.PlatformInstagram)

	callback(t, f, task.ID, model.PlatformYouTube, false)
	final := callback(t, f, task.ID, model.PlatformInstagram, false)
	require.Equal(t, model.TaskFailed, final.Status)
}

func TestPublish_CallbackMixedIsPartialFailed(t *testing.T) {
	f := newPublishFixture()
	task := triggerTask(t, f, model.PlatformYouTube, model.PlatformInstagram)

	callback(t, f, task.ID, model.PlatformYouTube, true)
	final := callback(t, f, task.ID, model.PlatformInstagram, false)
	require.Equal(t, model.TaskPartialFailed, final.Status)
}

func TestPublish_RetryAfterPartialFailure(t *testing.T) {
	f := newPublishFixture()
	task := triggerTask(t, f, model.PlatformYouTube, model.PlatformInstagram)

	callback(t, f, task.ID, model.PlatformYouTube, true)
	callback(t, f, task.ID, model.PlatformInstagram, false)

	// PARTIAL_FAILED tasks may be re-triggered for the failed subset.
	_, err := f.uc.Trigger(context.Background(), "user-1", task.ID, dto.TriggerRequest{
		Platforms: []string{"INSTAGRAM"},
	})
	require.NoError(t, err)

	// A later success supersedes the earlier failure.
	final := callback(t, f, task.ID, model.PlatformInstagram, true)
	require.Equal(t, model.TaskPublished, final.Status)

	records, err := f.uc.ListRecords(context.Background(), "user-1", task.ID)
	require.NoError(t, err)
	require.Len(t, records, 3, "records are append-only")
}

func TestPublish_CallbackUnknownTask(t *testing.T) {
	f := newPublishFixture()
	_, err := f.uc.HandleCallback(context.Background(), dto.CallbackRequest{
		TaskID: "missing", Platform: "YOUTUBE", Success: true,
	}, []byte(`{}`))
	require.ErrorIs(t, err, usecase.ErrNotFound)
}

func TestPublish_CallbackUntargetedPlatform(t *testing.T) {
	f := newPublishFixture()
	task := triggerTask(t, f, model.PlatformYouTube)

	_, err := f.uc.HandleCallback(context.Background(), dto.CallbackRequest{
		TaskID: task.ID, Platform: "THREADS", Success: true,
	}, []byte(`{}`))
	require.ErrorIs(t, err, usecase.ErrInvalidInput)
}

func TestPublish_ConcurrentCallbacksFoldOnce(t *testing.T) {
	f := newPublishFixture()
	task := triggerTask(t, f, model.PlatformYouTube, model.PlatformInstagram)

	// Both platform results land at the same time. The fold runs under the
	// repository lock, so neither callback may clobber the other and the
	// task must end up PUBLISHED.
	platforms := []model.Platform{model.PlatformYouTube, model.PlatformInstagram}
	errs := make(chan error, len(platforms))
	var wg sync.WaitGroup
	for _, platform := range platforms {
		wg.Add(1)
		go func(p model.Platform) {
			defer wg.Done()
			req := dto.CallbackRequest{
				TaskID: task.ID, Platform: string(p), Success: true,
				ExternalID: strptr("vid-" + string(p)),
			}
			_, err := f.uc.HandleCallback(context.Background(), req, []byte(`{}`))
			errs <- err
		}(platform)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stored, err := f.tasks.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	require.Equal(t, model.TaskPublished, stored.Status)
}

func TestPublish_DeleteGuards(t *testing.T) {
	f := newPublishFixture()
	task := triggerTask(t, f, model.PlatformYouTube)

	err := f.uc.DeleteTask(context.Background(), "user-1", task.ID)
	require.ErrorIs(t, err, usecase.ErrTaskNotDeletable)

	callback(t, f, task.ID, model.PlatformYouTube, true)
	err = f.uc.DeleteTask(context.Background(), "user-1", task.ID)
	require.ErrorIs(t, err, usecase.ErrTaskNotDeletable, "published tasks are permanent")
}

func TestPublish_EditGuardAfterTrigger(t *testing.T) {
	tests := []struct {
		name   string
		status model.TaskStatus
	}{
		{"publishing", model.TaskPublishing},
		{"published", model.TaskPublished},
		{"failed", model.TaskFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPublishFixture()
			task := triggerTask(t, f, model.PlatformYouTube)
			require.NoError(t, f.tasks.UpdateTaskStatus(context.Background(), task.ID, tt.status))

			_, err := f.uc.UpdateTask(context.Background(), "user-1", task.ID, dto.UpdateTaskRequest{
				Title: strptr("too late"),
			})
			require.ErrorIs(t, err, usecase.ErrTaskNotEditable)
		})
	}
}

func TestPublish_PlatformContentGuards(t *testing.T) {
	f := newPublishFixture()
	task := f.seedTask(t, "YOUTUBE")

	content, err := f.uc.UpsertPlatformContent(context.Background(), "user-1", task.ID, dto.PlatformContentRequest{
		Platform: "YOUTUBE",
		Title:    strptr("custom title"),
		Privacy:  strptr("unlisted"),
	})
	require.NoError(t, err)
	require.Equal(t, model.PlatformYouTube, content.Platform)

	_, err = f.uc.UpsertPlatformContent(context.Background(), "user-1", task.ID, dto.PlatformContentRequest{
		Platform: "THREADS",
	})
	require.Error(t, err, "content only for targeted platforms")
}

func TestPublish_CancelScheduleRevertsVideo(t *testing.T) {
	f := newPublishFixture()
	f.seedAccount(t, model.PlatformYouTube)
	task := f.seedTask(t, "YOUTUBE")

	at := time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339)
	_, err := f.uc.UpdateTask(context.Background(), "user-1", task.ID, dto.UpdateTaskRequest{
		PublishMode: strptr("SCHEDULED"),
		ScheduledAt: &at,
	})
	require.NoError(t, err)

	// Simulate the engine having pre-uploaded the asset.
	require.NoError(t, f.tasks.AppendRecord(context.Background(), &model.PublishRecord{
		TaskID:      task.ID,
		Platform:    model.PlatformYouTube,
		Status:      model.RecordPublished,
		ExternalID:  strptr("vid-42"),
		PublishedAt: time.Now().UTC(),
	}))

	cancelled, err := f.uc.CancelSchedule(context.Background(), "user-1", task.ID)
	require.NoError(t, err)
	require.Equal(t, model.TaskDraft, cancelled.Status)
	require.Equal(t, model.ModeManual, cancelled.PublishMode)
	require.Nil(t, cancelled.ScheduledAt)
	require.Equal(t, []string{"vid-42:private"}, f.google.privacyCalls)
}

func TestPublish_CancelScheduleOnlyForScheduled(t *testing.T) {
	f := newPublishFixture()
	task := f.seedTask(t, "YOUTUBE")

	_, err := f.uc.CancelSchedule(context.Background(), "user-1", task.ID)
	require.Error(t, err)
}
