package backup

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sethvargo/go-retry"

	"github.com/dukerupert/bywater/internal/store"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Config holds backup manager configuration. Passphrase and schedule come
// from the environment at startup.
type Config struct {
	S3            S3Config
	DBPath        string
	Passphrase    string
	ScheduleHour  int // UTC hour for the daily backup
	RetentionDays int
}

// State represents the backup manager state.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

// Status holds the current backup manager status.
type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	Error      string     `json:"error,omitempty"`
	InProgress bool       `json:"in_progress"`
}

// Manager runs encrypted database backups to S3-compatible storage.
type Manager struct {
	mu     sync.RWMutex
	cfg    Config
	status Status

	db      *sql.DB
	backups *store.BackupStore
	client  s3Client
	logger  *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a backup manager. It is disabled unless the S3
// credentials and the backup passphrase are all configured.
func NewManager(cfg Config, db *sql.DB, backups *store.BackupStore, logger *slog.Logger) *Manager {
	m := &Manager{
		cfg:     cfg,
		db:      db,
		backups: backups,
		logger:  logger,
		status:  Status{State: StateDisabled},
	}

	if cfg.S3.Bucket != "" && cfg.S3.AccessKey != "" && cfg.S3.SecretKey != "" && cfg.Passphrase != "" {
		m.client = newS3Client(cfg.S3)
		m.status.State = StateIdle
	}

	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Enabled reports whether the manager is configured to run backups.
func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client != nil
}

// Start begins the daily backup loop. It fires at ScheduleHour:00 UTC.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.client == nil {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.checkSchedule(ctx)
			}
		}
	}()
}

// Stop gracefully stops the backup loop.
func (m *Manager) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Status returns the current backup status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
}

func (m *Manager) checkSchedule(ctx context.Context) {
	now := time.Now().UTC()
	if now.Hour() != m.cfg.ScheduleHour || now.Minute() != 0 {
		return
	}

	if _, err := m.RunNow(ctx); err != nil {
		m.logger.Error("scheduled backup failed", "error", err)
	}

	retention := m.cfg.RetentionDays
	if retention <= 0 {
		retention = 30
	}
	if err := m.Cleanup(ctx, retention); err != nil {
		m.logger.Error("backup cleanup failed", "error", err)
	}
}

// RunNow runs a backup immediately and returns the backup record ID.
func (m *Manager) RunNow(ctx context.Context) (int64, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	m.mu.RUnlock()

	if client == nil {
		return 0, fmt.Errorf("backup not configured")
	}

	m.setStatus(Status{State: StateRunning, InProgress: true})

	timestamp := time.Now().UTC().Format("2006-01-02T150405Z")
	filename := fmt.Sprintf("backup-%s.db.enc", timestamp)
	s3Key := fmt.Sprintf("backups/%s", filename)

	record, err := m.backups.Create(filename, s3Key)
	if err != nil {
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return 0, fmt.Errorf("create backup record: %w", err)
	}

	size, err := m.uploadEncrypted(ctx, client, bucket, s3Key, record.ID)
	if err != nil {
		m.backups.MarkFailed(record.ID, err.Error())
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return 0, err
	}

	m.backups.MarkCompleted(record.ID, size)

	now := time.Now().UTC()
	m.setStatus(Status{State: StateIdle, LastBackup: &now})
	m.logger.Info("backup completed", "id", record.ID, "size_bytes", size)

	return record.ID, nil
}

func (m *Manager) uploadEncrypted(ctx context.Context, client s3Client, bucket, s3Key string, recordID int64) (int64, error) {
	tmpDir := os.TempDir()
	dbCopy := filepath.Join(tmpDir, fmt.Sprintf("bywater-backup-%d.db", recordID))
	encFile := filepath.Join(tmpDir, fmt.Sprintf("bywater-backup-%d.db.enc", recordID))
	defer os.Remove(dbCopy)
	defer os.Remove(encFile)

	// Checkpoint WAL so the main file is a consistent snapshot
	if _, err := m.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return 0, fmt.Errorf("wal checkpoint: %w", err)
	}

	if err := copyFile(m.cfg.DBPath, dbCopy); err != nil {
		return 0, fmt.Errorf("copy database: %w", err)
	}

	salt, err := GenerateSalt()
	if err != nil {
		return 0, err
	}
	if err := EncryptFile(dbCopy, encFile, m.cfg.Passphrase, salt); err != nil {
		return 0, fmt.Errorf("encrypt: %w", err)
	}

	stat, err := os.Stat(encFile)
	if err != nil {
		return 0, fmt.Errorf("stat encrypted file: %w", err)
	}

	// Retry transient upload failures with backoff
	backoff := retry.WithMaxRetries(3, retry.NewExponential(2*time.Second))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		f, err := os.Open(encFile)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(bucket),
			Key:           aws.String(s3Key),
			Body:          f,
			ContentLength: aws.Int64(stat.Size()),
		})
		if err != nil {
			m.logger.Warn("backup upload attempt failed", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("upload to s3: %w", err)
	}

	return stat.Size(), nil
}

// Restore downloads a backup, decrypts it, validates it, and replaces the
// database file. The caller is expected to restart the process afterwards.
func (m *Manager) Restore(ctx context.Context, backupID int64) error {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	m.mu.RUnlock()

	if client == nil {
		return fmt.Errorf("backup not configured")
	}

	record, err := m.backups.GetByID(backupID)
	if err != nil {
		return fmt.Errorf("get backup: %w", err)
	}
	if record == nil {
		return fmt.Errorf("backup not found")
	}

	tmpDir := os.TempDir()
	encFile := filepath.Join(tmpDir, fmt.Sprintf("bywater-restore-%d.db.enc", backupID))
	decFile := filepath.Join(tmpDir, fmt.Sprintf("bywater-restore-%d.db", backupID))
	defer os.Remove(encFile)
	defer os.Remove(decFile)

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(record.S3Key),
	})
	if err != nil {
		return fmt.Errorf("download from s3: %w", err)
	}
	defer result.Body.Close()

	outFile, err := os.Create(encFile)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(outFile, result.Body); err != nil {
		outFile.Close()
		return fmt.Errorf("write downloaded file: %w", err)
	}
	outFile.Close()

	if err := DecryptFile(encFile, decFile, m.cfg.Passphrase); err != nil {
		return fmt.Errorf("decrypt backup: %w", err)
	}

	// Validate before touching the live database
	tmpDB, err := sql.Open("sqlite", decFile)
	if err != nil {
		return fmt.Errorf("open restored db: %w", err)
	}
	var integrity string
	if err := tmpDB.QueryRow("PRAGMA integrity_check").Scan(&integrity); err != nil {
		tmpDB.Close()
		return fmt.Errorf("integrity check: %w", err)
	}
	tmpDB.Close()
	if integrity != "ok" {
		return fmt.Errorf("integrity check failed: %s", integrity)
	}

	if err := copyFile(decFile, m.cfg.DBPath); err != nil {
		return fmt.Errorf("replace database: %w", err)
	}

	os.Remove(m.cfg.DBPath + "-wal")
	os.Remove(m.cfg.DBPath + "-shm")

	m.logger.Info("restore complete, restart required", "backup_id", backupID)
	return nil
}

// Download streams an encrypted backup straight from S3.
func (m *Manager) Download(ctx context.Context, backupID int64) (io.ReadCloser, int64, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	m.mu.RUnlock()

	if client == nil {
		return nil, 0, fmt.Errorf("backup not configured")
	}

	record, err := m.backups.GetByID(backupID)
	if err != nil {
		return nil, 0, fmt.Errorf("get backup: %w", err)
	}
	if record == nil {
		return nil, 0, fmt.Errorf("backup not found")
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(record.S3Key),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("download from s3: %w", err)
	}

	return result.Body, record.SizeBytes, nil
}

// Cleanup deletes backups older than the retention period, both the
// database records and the S3 objects.
func (m *Manager) Cleanup(ctx context.Context, retentionDays int) error {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	m.mu.RUnlock()

	if client == nil {
		return nil
	}

	before := time.Now().UTC().AddDate(0, 0, -retentionDays)
	keys, err := m.backups.DeleteOlderThan(before)
	if err != nil {
		return fmt.Errorf("delete old backups: %w", err)
	}

	for _, key := range keys {
		if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		}); err != nil {
			m.logger.Warn("failed to delete backup object", "key", key, "error", err)
		}
	}

	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
