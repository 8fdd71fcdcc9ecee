package persistence

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"social-ops/domain/model"
	"social-ops/domain/repository"

	"github.com/google/uuid"
)

// PublishRepository implements IPublishTask on PostgreSQL.
type PublishRepository struct{ db *sql.DB }

func NewPublishRepository(db *sql.DB) repository.IPublishTask {
	return &PublishRepository{db: db}
}

func joinPlatforms(platforms []model.Platform) string {
	parts := make([]string, 0, len(platforms))
	for _, p := range platforms {
		parts = append(parts, string(p))
	}
	return strings.Join(parts, ",")
}

func splitPlatforms(s string) []model.Platform {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]model.Platform, 0, len(parts))
	for _, p := range parts {
		out = append(out, model.Platform(p))
	}
	return out
}

func (r *PublishRepository) CreateTask(ctx context.Context, t *model.PublishTask) error {
	now := time.Now().UTC()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = now
	t.UpdatedAt = now
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	_, err = tx.ExecContext(ctx, `INSERT INTO publish_tasks
		(id, title, video_url, cover_url, series_id, platforms, publish_mode, scheduled_at, status, created_by, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		t.ID, t.Title, t.VideoURL, t.CoverURL, t.SeriesID, joinPlatforms(t.Platforms),
		t.PublishMode, t.ScheduledAt, t.Status, t.CreatedBy, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return err
	}
	// One empty content row per target platform
	for _, p := range t.Platforms {
		if _, err = tx.ExecContext(ctx, `INSERT INTO platform_contents (id, task_id, platform, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$4) ON CONFLICT (task_id, platform) DO NOTHING`,
			uuid.NewString(), t.ID, p, now); err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}

func (r *PublishRepository) GetTask(ctx context.Context, id string) (*model.PublishTask, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, title, video_url, cover_url, series_id, platforms,
		publish_mode, scheduled_at, status, created_by, created_at, updated_at
		FROM publish_tasks WHERE id=$1`, id)
	t, err := scanPublishTask(row)
	if err != nil {
		return nil, err
	}
	if t.Contents, err = r.ListPlatformContents(ctx, id); err != nil {
		return nil, err
	}
	if t.Accounts, err = r.ListTaskAccounts(ctx, id); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *PublishRepository) ListTasks(ctx context.Context, createdBy string, limit, offset int) ([]*model.PublishTask, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, title, video_url, cover_url, series_id, platforms,
		publish_mode, scheduled_at, status, created_by, created_at, updated_at
		FROM publish_tasks WHERE created_by=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		createdBy, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*model.PublishTask
	for rows.Next() {
		t, err := scanPublishTask(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func (r *PublishRepository) UpdateTask(ctx context.Context, t *model.PublishTask) error {
	t.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `UPDATE publish_tasks SET
		title=$1, video_url=$2, cover_url=$3, series_id=$4, platforms=$5,
		publish_mode=$6, scheduled_at=$7, status=$8, updated_at=$9
		WHERE id=$10`,
		t.Title, t.VideoURL, t.CoverURL, t.SeriesID, joinPlatforms(t.Platforms),
		t.PublishMode, t.ScheduledAt, t.Status, t.UpdatedAt, t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *PublishRepository) UpdateTaskStatus(ctx context.Context, id string, status model.TaskStatus) error {
	_, err := r.db.ExecContext(ctx, `UPDATE publish_tasks SET status=$1, updated_at=$2 WHERE id=$3`,
		status, time.Now().UTC(), id)
	return err
}

func (r *PublishRepository) DeleteTask(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM publish_tasks WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ReconcilePlatforms removes content rows for platforms no longer targeted
// and creates empty rows for newly added ones.
func (r *PublishRepository) ReconcilePlatforms(ctx context.Context, taskID string, platforms []model.Platform) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	keep := make([]string, 0, len(platforms))
	for _, p := range platforms {
		keep = append(keep, string(p))
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM platform_contents WHERE task_id=$1 AND platform <> ALL($2::text[])`,
		taskID, "{"+strings.Join(keep, ",")+"}"); err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, p := range platforms {
		if _, err = tx.ExecContext(ctx, `INSERT INTO platform_contents (id, task_id, platform, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$4) ON CONFLICT (task_id, platform) DO NOTHING`,
			uuid.NewString(), taskID, p, now); err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}

func (r *PublishRepository) UpsertPlatformContent(ctx context.Context, c *model.PlatformContent) error {
	now := time.Now().UTC()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, `INSERT INTO platform_contents
		(id, task_id, platform, title, description, hashtags, privacy, category_id, playlist_id, thumbnail, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$11)
		ON CONFLICT (task_id, platform) DO UPDATE SET
			title=COALESCE(EXCLUDED.title, platform_contents.title),
			description=COALESCE(EXCLUDED.description, platform_contents.description),
			hashtags=COALESCE(EXCLUDED.hashtags, platform_contents.hashtags),
			privacy=COALESCE(EXCLUDED.privacy, platform_contents.privacy),
			category_id=COALESCE(EXCLUDED.category_id, platform_contents.category_id),
			playlist_id=COALESCE(EXCLUDED.playlist_id, platform_contents.playlist_id),
			thumbnail=COALESCE(EXCLUDED.thumbnail, platform_contents.thumbnail),
			updated_at=EXCLUDED.updated_at`,
		c.ID, c.TaskID, c.Platform, c.Title, c.Description, c.Hashtags,
		c.Privacy, c.CategoryID, c.PlaylistID, c.Thumbnail, now)
	return err
}

func (r *PublishRepository) ListPlatformContents(ctx context.Context, taskID string) ([]*model.PlatformContent, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, task_id, platform, title, description, hashtags,
		privacy, category_id, playlist_id, thumbnail, created_at, updated_at
		FROM platform_contents WHERE task_id=$1 ORDER BY platform`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*model.PlatformContent
	for rows.Next() {
		c := &model.PlatformContent{}
		var title, desc, tags, privacy, category, playlist, thumb sql.NullString
		if err := rows.Scan(&c.ID, &c.TaskID, &c.Platform, &title, &desc, &tags,
			&privacy, &category, &playlist, &thumb, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.Title = nullStr(title)
		c.Description = nullStr(desc)
		c.Hashtags = nullStr(tags)
		c.Privacy = nullStr(privacy)
		c.CategoryID = nullStr(category)
		c.PlaylistID = nullStr(playlist)
		c.Thumbnail = nullStr(thumb)
		list = append(list, c)
	}
	return list, rows.Err()
}

func (r *PublishRepository) AppendRecord(ctx context.Context, rec *model.PublishRecord) error {
	now := time.Now().UTC()
	if rec.PublishedAt.IsZero() {
		rec.PublishedAt = now
	}
	rec.CreatedAt = now
	return r.db.QueryRowContext(ctx, `INSERT INTO publish_records
		(task_id, platform, status, external_id, external_url, error_message, published_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		rec.TaskID, rec.Platform, rec.Status, rec.ExternalID, rec.ExternalURL,
		rec.ErrorMessage, rec.PublishedAt, rec.CreatedAt).Scan(&rec.ID)
}

// AppendRecordReduce appends rec and re-derives the aggregate status under a
// row lock on the task, so two concurrent callbacks cannot both fold over a
// stale record set.
func (r *PublishRepository) AppendRecordReduce(ctx context.Context, rec *model.PublishRecord, reduce repository.StatusReducer) (model.TaskStatus, model.TaskStatus, error) {
	now := time.Now().UTC()
	if rec.PublishedAt.IsZero() {
		rec.PublishedAt = now
	}
	rec.CreatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", "", err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var rawPlatforms string
	var previous model.TaskStatus
	if err = tx.QueryRowContext(ctx, `SELECT platforms, status FROM publish_tasks WHERE id=$1 FOR UPDATE`,
		rec.TaskID).Scan(&rawPlatforms, &previous); err != nil {
		return "", "", err
	}

	if err = tx.QueryRowContext(ctx, `INSERT INTO publish_records
		(task_id, platform, status, external_id, external_url, error_message, published_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		rec.TaskID, rec.Platform, rec.Status, rec.ExternalID, rec.ExternalURL,
		rec.ErrorMessage, rec.PublishedAt, rec.CreatedAt).Scan(&rec.ID); err != nil {
		return "", "", err
	}

	var rows *sql.Rows
	rows, err = tx.QueryContext(ctx, `SELECT DISTINCT ON (platform)
		id, task_id, platform, status, external_id, external_url, error_message, published_at, created_at
		FROM publish_records WHERE task_id=$1 ORDER BY platform, id DESC`, rec.TaskID)
	if err != nil {
		return "", "", err
	}
	latest := make(map[model.Platform]*model.PublishRecord)
	for rows.Next() {
		var lr *model.PublishRecord
		if lr, err = scanPublishRecord(rows); err != nil {
			rows.Close()
			return "", "", err
		}
		latest[lr.Platform] = lr
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return "", "", err
	}

	next := reduce(splitPlatforms(rawPlatforms), latest)
	if next != previous {
		if _, err = tx.ExecContext(ctx, `UPDATE publish_tasks SET status=$1, updated_at=$2 WHERE id=$3`,
			next, now, rec.TaskID); err != nil {
			return "", "", err
		}
	}
	if err = tx.Commit(); err != nil {
		return "", "", err
	}
	return previous, next, nil
}

// LatestRecords returns the newest record per platform for the task.
func (r *PublishRepository) LatestRecords(ctx context.Context, taskID string) (map[model.Platform]*model.PublishRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT ON (platform)
		id, task_id, platform, status, external_id, external_url, error_message, published_at, created_at
		FROM publish_records WHERE task_id=$1 ORDER BY platform, id DESC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[model.Platform]*model.PublishRecord)
	for rows.Next() {
		rec, err := scanPublishRecord(rows)
		if err != nil {
			return nil, err
		}
		out[rec.Platform] = rec
	}
	return out, rows.Err()
}

func (r *PublishRepository) ListRecords(ctx context.Context, taskID string) ([]*model.PublishRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, task_id, platform, status, external_id, external_url,
		error_message, published_at, created_at
		FROM publish_records WHERE task_id=$1 ORDER BY id ASC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*model.PublishRecord
	for rows.Next() {
		rec, err := scanPublishRecord(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}

func (r *PublishRepository) LinkAccount(ctx context.Context, l *model.TaskAccount) error {
	l.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `INSERT INTO task_accounts (task_id, platform, account_id, created_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (task_id, platform) DO UPDATE SET account_id=EXCLUDED.account_id`,
		l.TaskID, l.Platform, l.AccountID, l.CreatedAt)
	return err
}

func (r *PublishRepository) ListTaskAccounts(ctx context.Context, taskID string) ([]*model.TaskAccount, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, task_id, platform, account_id, created_at
		FROM task_accounts WHERE task_id=$1`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*model.TaskAccount
	for rows.Next() {
		l := &model.TaskAccount{}
		if err := rows.Scan(&l.ID, &l.TaskID, &l.Platform, &l.AccountID, &l.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

func scanPublishTask(row rowScanner) (*model.PublishTask, error) {
	t := &model.PublishTask{}
	var videoURL, coverURL, seriesID sql.NullString
	var platforms string
	var scheduledAt sql.NullTime
	if err := row.Scan(&t.ID, &t.Title, &videoURL, &coverURL, &seriesID, &platforms,
		&t.PublishMode, &scheduledAt, &t.Status, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.VideoURL = nullStr(videoURL)
	t.CoverURL = nullStr(coverURL)
	t.SeriesID = nullStr(seriesID)
	t.Platforms = splitPlatforms(platforms)
	if scheduledAt.Valid {
		ts := scheduledAt.Time
		t.ScheduledAt = &ts
	}
	return t, nil
}

func scanPublishRecord(row rowScanner) (*model.PublishRecord, error) {
	rec := &model.PublishRecord{}
	var externalID, externalURL, errMsg sql.NullString
	if err := row.Scan(&rec.ID, &rec.TaskID, &rec.Platform, &rec.Status,
		&externalID, &externalURL, &errMsg, &rec.PublishedAt, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.ExternalID = nullStr(externalID)
	rec.ExternalURL = nullStr(externalURL)
	rec.ErrorMessage = nullStr(errMsg)
	return rec, nil
}

func nullStr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
