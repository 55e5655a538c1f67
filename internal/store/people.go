package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"readersync/internal/model"
)

func (s *Store) CreatePerson(ctx context.Context, name string) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `INSERT INTO people (name, active) VALUES (?, 1)`, name)
	if err != nil {
		return 0, fmt.Errorf("create person: %w", err)
	}
	return res.LastInsertId()
}

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CreateAvatar registers a new face photo for a person. Exactly one of
// pathLocal or pathCloud is expected; pathCloud carries inline base64.
func (s *Store) CreateAvatar(ctx context.Context, personID int64, pathLocal, pathCloud string) (int64, error) {
	return s.createAvatar(ctx, s.DB, personID, pathLocal, pathCloud)
}

type AvatarJobParams struct {
	EventID   int64
	PersonID  int64
	PathLocal string
	PathCloud string
	Priority  int
}

// CreateAvatarJob registers an avatar and queues its sync job in one
// transaction. Nothing is kept if either step fails.
func (s *Store) CreateAvatarJob(ctx context.Context, p AvatarJobParams) (fileID, jobID int64, err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	fileID, err = s.createAvatar(ctx, tx, p.PersonID, p.PathLocal, p.PathCloud)
	if err != nil {
		return 0, 0, err
	}
	jobID, err = s.enqueue(ctx, tx, EnqueueParams{
		EventID:  p.EventID,
		PersonID: p.PersonID,
		FileID:   fileID,
		Priority: p.Priority,
	})
	if err != nil {
		return 0, 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("tx commit: %w", err)
	}
	return fileID, jobID, nil
}

func (s *Store) createAvatar(ctx context.Context, q execQuerier, personID int64, pathLocal, pathCloud string) (int64, error) {
	if pathLocal == "" && pathCloud == "" {
		return 0, fmt.Errorf("%w: avatar needs a local path or inline image", ErrInvalidReference)
	}

	var exists int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM people WHERE id=?`, personID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: person %d", ErrInvalidReference, personID)
	}
	if err != nil {
		return 0, fmt.Errorf("lookup person: %w", err)
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO files (person_id, kind, path_local, path_cloud, created_at)
		VALUES (?, ?, NULLIF(?, ''), NULLIF(?, ''), ?)
	`, personID, model.FileKindAvatar, pathLocal, pathCloud, formatTime(s.now()))
	if err != nil {
		return 0, fmt.Errorf("create avatar: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) GetFile(ctx context.Context, id int64) (*model.File, error) {
	var (
		f                    model.File
		pathLocal, pathCloud sql.NullString
		createdAt            string
	)
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, person_id, kind, path_local, path_cloud, created_at
		FROM files WHERE id=?
	`, id).Scan(&f.ID, &f.PersonID, &f.Kind, &pathLocal, &pathCloud, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("file %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	f.PathLocal = pathLocal.String
	f.PathCloud = pathCloud.String
	if f.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("file %d created_at: %w", id, err)
	}
	return &f, nil
}

func (s *Store) CreateReader(ctx context.Context, r model.Reader) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO readers (event_id, name, ip, active, configured)
		VALUES (?, ?, ?, ?, ?)
	`, r.EventID, r.Name, r.IP, r.Active, r.Configured)
	if err != nil {
		return 0, fmt.Errorf("create reader: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) GetReader(ctx context.Context, id int64) (*model.Reader, error) {
	var r model.Reader
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, event_id, name, ip, active, configured FROM readers WHERE id=?
	`, id).Scan(&r.ID, &r.EventID, &r.Name, &r.IP, &r.Active, &r.Configured)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reader %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) ListReaders(ctx context.Context) ([]model.Reader, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, event_id, name, ip, active, configured FROM readers ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	readers := []model.Reader{}
	for rows.Next() {
		var r model.Reader
		if err := rows.Scan(&r.ID, &r.EventID, &r.Name, &r.IP, &r.Active, &r.Configured); err != nil {
			return nil, err
		}
		readers = append(readers, r)
	}
	return readers, rows.Err()
}
