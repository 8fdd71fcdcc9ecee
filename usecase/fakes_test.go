package usecase_test

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"social-ops/domain/dto"
	"social-ops/domain/model"
	"social-ops/domain/repository"
	"social-ops/infrastructure/pubsub"
)

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*model.SocialAccount
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]*model.SocialAccount)}
}

func (f *fakeAccountRepo) Create(_ context.Context, a *model.SocialAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	f.accounts[a.ID] = &cp
	return nil
}

func (f *fakeAccountRepo) GetByID(_ context.Context, id string) (*model.SocialAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccountRepo) ListByUser(_ context.Context, userID string, platform model.Platform, activeOnly bool) ([]*model.SocialAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.SocialAccount
	for _, a := range f.accounts {
		if a.UserID != userID {
			continue
		}
		if platform != "" && a.Platform != platform {
			continue
		}
		if activeOnly && a.Status != model.AccountActive {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeAccountRepo) Upsert(_ context.Context, a *model.SocialAccount) (*model.SocialAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := func(x *model.SocialAccount) string {
		id := x.AccountName
		if x.AccountID != nil {
			id = *x.AccountID
		}
		return fmt.Sprintf("%s|%s|%s", x.UserID, x.Platform, id)
	}
	for _, existing := range f.accounts {
		if key(existing) == key(a) {
			a.ID = existing.ID
			cp := *a
			f.accounts[existing.ID] = &cp
			return &cp, nil
		}
	}
	cp := *a
	f.accounts[a.ID] = &cp
	return &cp, nil
}

func (f *fakeAccountRepo) Update(_ context.Context, a *model.SocialAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[a.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *a
	f.accounts[a.ID] = &cp
	return nil
}

func (f *fakeAccountRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.accounts, id)
	return nil
}

func (f *fakeAccountRepo) UpdateStatus(_ context.Context, id string, status model.AccountStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.Status = status
	return nil
}

func (f *fakeAccountRepo) UpdateTokens(_ context.Context, id, accessToken string, refreshToken *string, expiry *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.AccessToken = accessToken
	if refreshToken != nil {
		a.RefreshToken = refreshToken
	}
	a.TokenExpiry = expiry
	return nil
}

func (f *fakeAccountRepo) TouchLastUsed(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return sql.ErrNoRows
	}
	now := time.Now().UTC()
	a.LastUsedAt = &now
	return nil
}

type fakeTaskRepo struct {
	mu       sync.Mutex
	tasks    map[string]*model.PublishTask
	contents map[string]map[model.Platform]*model.PlatformContent
	records  []*model.PublishRecord
	links    map[string][]*model.TaskAccount
	nextID   int64
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{
		tasks:    make(map[string]*model.PublishTask),
		contents: make(map[string]map[model.Platform]*model.PlatformContent),
		links:    make(map[string][]*model.TaskAccount),
	}
}

func (f *fakeTaskRepo) CreateTask(_ context.Context, t *model.PublishTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	f.tasks[t.ID] = &cp
	f.contents[t.ID] = make(map[model.Platform]*model.PlatformContent)
	return nil
}

func (f *fakeTaskRepo) GetTask(_ context.Context, id string) (*model.PublishTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTaskRepo) ListTasks(_ context.Context, createdBy string, limit, offset int) ([]*model.PublishTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.PublishTask
	for _, t := range f.tasks {
		if t.CreatedBy == createdBy {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeTaskRepo) UpdateTask(_ context.Context, t *model.PublishTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tasks[t.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *t
	f.tasks[t.ID] = &cp
	return nil
}

func (f *fakeTaskRepo) UpdateTaskStatus(_ context.Context, id string, status model.TaskStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return sql.ErrNoRows
	}
	t.Status = status
	return nil
}

func (f *fakeTaskRepo) DeleteTask(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tasks[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeTaskRepo) ReconcilePlatforms(_ context.Context, taskID string, platforms []model.Platform) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	keep := make(map[model.Platform]struct{}, len(platforms))
	for _, p := range platforms {
		keep[p] = struct{}{}
	}
	for p := range f.contents[taskID] {
		if _, ok := keep[p]; !ok {
			delete(f.contents[taskID], p)
		}
	}
	return nil
}

func (f *fakeTaskRepo) UpsertPlatformContent(_ context.Context, c *model.PlatformContent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.contents[c.TaskID] == nil {
		f.contents[c.TaskID] = make(map[model.Platform]*model.PlatformContent)
	}
	cp := *c
	f.contents[c.TaskID][c.Platform] = &cp
	return nil
}

func (f *fakeTaskRepo) ListPlatformContents(_ context.Context, taskID string) ([]*model.PlatformContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.PlatformContent
	for _, c := range f.contents[taskID] {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Platform < out[j].Platform })
	return out, nil
}

func (f *fakeTaskRepo) AppendRecord(_ context.Context, r *model.PublishRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	r.ID = f.nextID
	cp := *r
	f.records = append(f.records, &cp)
	return nil
}

func (f *fakeTaskRepo) AppendRecordReduce(_ context.Context, r *model.PublishRecord, reduce repository.StatusReducer) (model.TaskStatus, model.TaskStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[r.TaskID]
	if !ok {
		return "", "", sql.ErrNoRows
	}
	f.nextID++
	r.ID = f.nextID
	cp := *r
	f.records = append(f.records, &cp)

	latest := make(map[model.Platform]*model.PublishRecord)
	for _, rec := range f.records {
		if rec.TaskID != r.TaskID {
			continue
		}
		if cur, ok := latest[rec.Platform]; !ok || rec.ID > cur.ID {
			rc := *rec
			latest[rec.Platform] = &rc
		}
	}
	previous := task.Status
	next := reduce(task.Platforms, latest)
	task.Status = next
	return previous, next, nil
}

func (f *fakeTaskRepo) LatestRecords(_ context.Context, taskID string) (map[model.Platform]*model.PublishRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[model.Platform]*model.PublishRecord)
	for _, r := range f.records {
		if r.TaskID != taskID {
			continue
		}
		if cur, ok := out[r.Platform]; !ok || r.ID > cur.ID {
			cp := *r
			out[r.Platform] = &cp
		}
	}
	return out, nil
}

func (f *fakeTaskRepo) ListRecords(_ context.Context, taskID string) ([]*model.PublishRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.PublishRecord
	for _, r := range f.records {
		if r.TaskID == taskID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeTaskRepo) LinkAccount(_ context.Context, l *model.TaskAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.links[l.TaskID] {
		if existing.Platform == l.Platform {
			existing.AccountID = l.AccountID
			return nil
		}
	}
	cp := *l
	f.links[l.TaskID] = append(f.links[l.TaskID], &cp)
	return nil
}

func (f *fakeTaskRepo) ListTaskAccounts(_ context.Context, taskID string) ([]*model.TaskAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.TaskAccount
	for _, l := range f.links[taskID] {
		cp := *l
		out = append(out, &cp)
	}
	return out, nil
}

type fakeGoogleClient struct {
	mu            sync.Mutex
	identity      model.GoogleIdentity
	channels      []model.Channel
	exchangeErr   error
	refreshErr    error
	refreshCalls  int
	refreshBundle *repository.TokenBundle
	privacyCalls  []string
}

func (f *fakeGoogleClient) AuthCodeURL(state string) string {
	return "https://accounts.google.com/o/oauth2/auth?state=" + state
}

func (f *fakeGoogleClient) Exchange(_ context.Context, code string) (*repository.TokenBundle, error) {
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	expiry := time.Now().Add(time.Hour).UTC()
	return &repository.TokenBundle{AccessToken: "access-" + code, RefreshToken: "refresh-" + code, Expiry: &expiry}, nil
}

func (f *fakeGoogleClient) Refresh(_ context.Context, refreshToken string) (*repository.TokenBundle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	if f.refreshBundle != nil {
		return f.refreshBundle, nil
	}
	expiry := time.Now().Add(time.Hour).UTC()
	return &repository.TokenBundle{AccessToken: "refreshed-access", RefreshToken: refreshToken, Expiry: &expiry}, nil
}

func (f *fakeGoogleClient) FetchIdentity(_ context.Context, _ string) (*model.GoogleIdentity, error) {
	id := f.identity
	return &id, nil
}

func (f *fakeGoogleClient) ListMyChannels(_ context.Context, _ string) ([]model.Channel, error) {
	return append([]model.Channel(nil), f.channels...), nil
}

func (f *fakeGoogleClient) GetChannel(_ context.Context, _, channelID string) (*model.Channel, error) {
	for i := range f.channels {
		if f.channels[i].ID == channelID {
			ch := f.channels[i]
			return &ch, nil
		}
	}
	return nil, fmt.Errorf("channel %s not found", channelID)
}

func (f *fakeGoogleClient) SetVideoPrivacy(_ context.Context, _, videoID, privacy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.privacyCalls = append(f.privacyCalls, videoID+":"+privacy)
	return nil
}

type fakeSessionStore struct {
	mu         sync.Mutex
	states     map[string]string
	selections map[string]*repository.PendingSelection
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		states:     make(map[string]string),
		selections: make(map[string]*repository.PendingSelection),
	}
}

func (f *fakeSessionStore) SaveState(_ context.Context, state, userID string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[state] = userID
	return nil
}

func (f *fakeSessionStore) ConsumeState(_ context.Context, state string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	userID, ok := f.states[state]
	if !ok {
		return "", fmt.Errorf("state not found")
	}
	delete(f.states, state)
	return userID, nil
}

func (f *fakeSessionStore) SaveSelection(_ context.Context, handle string, sel *repository.PendingSelection, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *sel
	f.selections[handle] = &cp
	return nil
}

func (f *fakeSessionStore) GetSelection(_ context.Context, handle string) (*repository.PendingSelection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sel, ok := f.selections[handle]
	if !ok {
		return nil, fmt.Errorf("selection not found")
	}
	cp := *sel
	return &cp, nil
}

func (f *fakeSessionStore) DeleteSelection(_ context.Context, handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.selections, handle)
	return nil
}

type fakeWorkflowClient struct {
	mu          sync.Mutex
	dispatchErr error
	payloads    []*dto.DispatchPayload
}

func (f *fakeWorkflowClient) DispatchPublish(_ context.Context, payload *dto.DispatchPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dispatchErr != nil {
		return f.dispatchErr
	}
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakeWorkflowClient) ListExecutions(_ context.Context, _ repository.ExecutionListOptions) ([]repository.WorkflowExecution, error) {
	return nil, nil
}

type fakeEventPublisher struct {
	mu     sync.Mutex
	events []pubsub.TaskStatusEvent
}

func (f *fakeEventPublisher) PublishStatusChange(_ context.Context, event pubsub.TaskStatusEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

type fakeEventSender struct {
	mu       sync.Mutex
	messages [][]byte
}

func (f *fakeEventSender) SendStatusChange(_ context.Context, message []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	return nil
}

type fakeCallbackArchive struct {
	mu       sync.Mutex
	archived int
}

func (f *fakeCallbackArchive) Archive(_ context.Context, _, _ string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archived++
	return nil
}
