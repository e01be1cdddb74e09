package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/princekumarofficial/video-service/internal/config"
	"github.com/princekumarofficial/video-service/internal/storage"
	"github.com/princekumarofficial/video-service/internal/types"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const uniqueViolation = "23505"

type Postgres struct {
	Db *sql.DB
}

func NewPostgres(ctx context.Context, cfg *config.Config) (*Postgres, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.PGSQL.Host, cfg.PGSQL.Port, cfg.PGSQL.User, cfg.PGSQL.Password, cfg.PGSQL.DBName, cfg.PGSQL.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	slog.Info("Connected to Postgres database")

	pg := &Postgres{Db: db}
	if err := pg.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return pg, nil
}

// Migrate applies the embedded goose migrations.
func (p *Postgres) Migrate(ctx context.Context) error {
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, p.Db, "migrations")
}

func (p *Postgres) Close() error {
	return p.Db.Close()
}

func (p *Postgres) CreateUser(ctx context.Context, name, email, password string) (string, error) {
	var userID string
	query := `
	INSERT INTO users (name, email, password)
	VALUES ($1, $2, $3)
	RETURNING id
	`

	err := p.Db.QueryRowContext(ctx, query, name, email, password).Scan(&userID)
	if err != nil {
		if isUniqueViolation(err) {
			return "", storage.ErrDuplicateEmail
		}
		return "", err
	}

	return userID, nil
}

func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (string, string, error) {
	var userID, hashedPassword string
	query := `SELECT id, password FROM users WHERE email = $1`

	err := p.Db.QueryRowContext(ctx, query, email).Scan(&userID, &hashedPassword)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", storage.ErrNotFound
	}
	if err != nil {
		return "", "", err
	}

	return userID, hashedPassword, nil
}

const videoColumns = `id, owner_id, upload_token, provider_asset_id, playback_id, status, duration_millis,
	thumbnail_url, thumbnail_key, preview_url, preview_key, title, description, category_id, visibility,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVideo(row rowScanner) (*types.Video, error) {
	var (
		v                                     types.Video
		assetID, playbackID, description, cat sql.NullString
		thumbURL, thumbKey, prevURL, prevKey  sql.NullString
		status, visibility                    string
	)

	err := row.Scan(&v.ID, &v.OwnerID, &v.UploadToken, &assetID, &playbackID, &status, &v.DurationMillis,
		&thumbURL, &thumbKey, &prevURL, &prevKey, &v.Title, &description, &cat, &visibility,
		&v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	v.ProviderAssetID = assetID.String
	v.PlaybackID = playbackID.String
	v.Description = description.String
	v.CategoryID = cat.String
	v.Status = types.VideoStatus(status)
	v.Visibility = types.Visibility(visibility)
	v.Thumbnail = derivative(thumbURL, thumbKey)
	v.Preview = derivative(prevURL, prevKey)

	return &v, nil
}

func derivative(url, key sql.NullString) *types.DerivativeAsset {
	if !url.Valid || !key.Valid {
		return nil
	}
	return &types.DerivativeAsset{URL: url.String, Key: key.String}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (p *Postgres) CreateVideo(ctx context.Context, ownerID, uploadToken string) (*types.Video, error) {
	query := `
	INSERT INTO videos (owner_id, title, upload_token, status, visibility)
	VALUES ($1, 'Untitled', $2, $3, $4)
	RETURNING ` + videoColumns

	v, err := scanVideo(p.Db.QueryRowContext(ctx, query, ownerID, uploadToken, types.StatusPreparing, types.VisibilityPrivate))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, storage.ErrDuplicateUpload
		}
		return nil, err
	}
	return v, nil
}

func (p *Postgres) GetVideo(ctx context.Context, id string) (*types.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE id = $1`
	return scanVideo(p.Db.QueryRowContext(ctx, query, id))
}

func (p *Postgres) GetVideoByUploadToken(ctx context.Context, uploadToken string) (*types.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE upload_token = $1`
	return scanVideo(p.Db.QueryRowContext(ctx, query, uploadToken))
}

func (p *Postgres) ListVideos(ctx context.Context, q types.ListVideosQuery) ([]types.Video, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.PublicOnly {
		where = append(where, "visibility = "+arg(types.VisibilityPublic))
	}
	if q.OwnerID != "" {
		where = append(where, "owner_id = "+arg(q.OwnerID))
	}
	if q.CategoryID != "" {
		where = append(where, "category_id = "+arg(q.CategoryID))
	}
	if q.Cursor != nil {
		where = append(where, fmt.Sprintf("(updated_at, id) < (%s, %s)", arg(q.Cursor.UpdatedAt), arg(q.Cursor.ID)))
	}

	query := `SELECT ` + videoColumns + ` FROM videos`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY updated_at DESC, id DESC LIMIT ` + arg(q.Limit+1)

	rows, err := p.Db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []types.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, *v)
	}

	return videos, rows.Err()
}

func (p *Postgres) UpdateVideoMetadata(ctx context.Context, id, ownerID string, req types.VideoUpdateRequest) (*types.Video, error) {
	query := `
	UPDATE videos
	SET title = $3, description = $4, category_id = $5, visibility = $6, updated_at = now()
	WHERE id = $1 AND owner_id = $2
	RETURNING ` + videoColumns

	return scanVideo(p.Db.QueryRowContext(ctx, query, id, ownerID, req.Title, nullString(req.Description),
		nullString(req.CategoryID), req.Visibility))
}

func (p *Postgres) UpdateVideoByUploadToken(ctx context.Context, uploadToken string, update storage.VideoUpdate) (*types.Video, error) {
	return p.updateVideo(ctx, "upload_token", uploadToken, update)
}

func (p *Postgres) UpdateVideo(ctx context.Context, id string, update storage.VideoUpdate) (*types.Video, error) {
	return p.updateVideo(ctx, "id", id, update)
}

// updateVideo writes every field of update in one statement.
func (p *Postgres) updateVideo(ctx context.Context, keyColumn, key string, u storage.VideoUpdate) (*types.Video, error) {
	args := []interface{}{key}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	sets := []string{"updated_at = now()"}
	if u.ProviderAssetID != nil {
		sets = append(sets, "provider_asset_id = "+arg(*u.ProviderAssetID))
	}
	if u.PlaybackID != nil {
		sets = append(sets, "playback_id = COALESCE(playback_id, "+arg(*u.PlaybackID)+")")
	}
	if u.Status != nil {
		sets = append(sets, "status = "+arg(string(*u.Status)))
	}
	if u.DurationMillis != nil {
		sets = append(sets, "duration_millis = "+arg(*u.DurationMillis))
	}
	if u.Thumbnail != nil {
		sets = append(sets, "thumbnail_url = "+arg(u.Thumbnail.URL), "thumbnail_key = "+arg(u.Thumbnail.Key))
	}
	if u.Preview != nil {
		sets = append(sets, "preview_url = "+arg(u.Preview.URL), "preview_key = "+arg(u.Preview.Key))
	}

	query := `UPDATE videos SET ` + strings.Join(sets, ", ") +
		` WHERE ` + keyColumn + ` = $1 RETURNING ` + videoColumns

	return scanVideo(p.Db.QueryRowContext(ctx, query, args...))
}

func (p *Postgres) DeleteVideo(ctx context.Context, id string) error {
	return p.deleteVideo(ctx, `DELETE FROM videos WHERE id = $1`, id)
}

func (p *Postgres) DeleteVideoByUploadToken(ctx context.Context, uploadToken string) error {
	return p.deleteVideo(ctx, `DELETE FROM videos WHERE upload_token = $1`, uploadToken)
}

func (p *Postgres) deleteVideo(ctx context.Context, query, key string) error {
	res, err := p.Db.ExecContext(ctx, query, key)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (p *Postgres) ListStaleUploads(ctx context.Context, createdBefore time.Time, limit int) ([]types.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos
	WHERE status = $1 AND provider_asset_id IS NULL AND created_at < $2
	ORDER BY created_at
	LIMIT $3`

	rows, err := p.Db.QueryContext(ctx, query, types.StatusPreparing, createdBefore, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []types.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, *v)
	}

	return videos, rows.Err()
}

func (p *Postgres) IsObjectKeyReferenced(ctx context.Context, key string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM videos WHERE thumbnail_key = $1 OR preview_key = $1)`
	err := p.Db.QueryRowContext(ctx, query, key).Scan(&exists)
	return exists, err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
