package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/bywater/internal/model"
)

type BackupStore struct {
	db *sql.DB
}

func NewBackupStore(db *sql.DB) *BackupStore {
	return &BackupStore{db: db}
}

const backupCols = `id, filename, s3_key, size_bytes, status, error, created_at`

func scanBackup(scanner interface{ Scan(...any) error }) (*model.Backup, error) {
	var b model.Backup
	err := scanner.Scan(&b.ID, &b.Filename, &b.S3Key, &b.SizeBytes, &b.Status, &b.Error, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *BackupStore) Create(filename, s3Key string) (*model.Backup, error) {
	result, err := s.db.Exec(
		`INSERT INTO backups (filename, s3_key, status) VALUES (?, ?, ?)`,
		filename, s3Key, model.BackupRunning,
	)
	if err != nil {
		return nil, fmt.Errorf("insert backup: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *BackupStore) GetByID(id int64) (*model.Backup, error) {
	row := s.db.QueryRow(`SELECT `+backupCols+` FROM backups WHERE id = ?`, id)
	b, err := scanBackup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get backup: %w", err)
	}
	return b, nil
}

func (s *BackupStore) List(limit int) ([]model.Backup, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`SELECT `+backupCols+` FROM backups ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	var backups []model.Backup
	for rows.Next() {
		b, err := scanBackup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		backups = append(backups, *b)
	}
	return backups, rows.Err()
}

func (s *BackupStore) MarkCompleted(id, sizeBytes int64) error {
	_, err := s.db.Exec(
		`UPDATE backups SET status = ?, size_bytes = ? WHERE id = ?`,
		model.BackupCompleted, sizeBytes, id,
	)
	if err != nil {
		return fmt.Errorf("mark backup completed: %w", err)
	}
	return nil
}

func (s *BackupStore) MarkFailed(id int64, errMsg string) error {
	_, err := s.db.Exec(
		`UPDATE backups SET status = ?, error = ? WHERE id = ?`,
		model.BackupFailed, errMsg, id,
	)
	if err != nil {
		return fmt.Errorf("mark backup failed: %w", err)
	}
	return nil
}

func (s *BackupStore) DeleteOlderThan(before time.Time) ([]string, error) {
	rows, err := s.db.Query(`SELECT s3_key FROM backups WHERE created_at < ?`, before.UTC())
	if err != nil {
		return nil, fmt.Errorf("list old backups: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan backup key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := s.db.Exec(`DELETE FROM backups WHERE created_at < ?`, before.UTC()); err != nil {
		return nil, fmt.Errorf("delete old backups: %w", err)
	}
	return keys, nil
}
