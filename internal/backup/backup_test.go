package backup

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dukerupert/bywater/internal/database"
	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/store"
)

// mockS3Client implements s3Client for testing.
type mockS3Client struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, _ := io.ReadAll(input.Body)
	m.objects[*input.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, &s3NotFound{}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(data)),
	}, nil
}

func (m *mockS3Client) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}

type s3NotFound struct{}

func (e *s3NotFound) Error() string { return "NoSuchKey" }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func enabledConfig(dbPath string) Config {
	return Config{
		S3:         S3Config{Bucket: "test", AccessKey: "key", SecretKey: "secret", Region: "us-east-1"},
		DBPath:     dbPath,
		Passphrase: "backup-passphrase",
	}
}

func TestManagerStateLifecycle(t *testing.T) {
	// No S3 config -> disabled
	m := NewManager(Config{}, nil, nil, discardLogger())
	if m.Status().State != StateDisabled {
		t.Errorf("state = %q, want %q", m.Status().State, StateDisabled)
	}
	if m.Enabled() {
		t.Error("manager should not be enabled")
	}

	// S3 config but no passphrase -> still disabled
	m2 := NewManager(Config{
		S3: S3Config{Bucket: "test", AccessKey: "key", SecretKey: "secret"},
	}, nil, nil, discardLogger())
	if m2.Status().State != StateDisabled {
		t.Errorf("state without passphrase = %q, want %q", m2.Status().State, StateDisabled)
	}

	// Full config -> idle
	m3 := NewManager(enabledConfig("/tmp/x.db"), nil, nil, discardLogger())
	if m3.Status().State != StateIdle {
		t.Errorf("state = %q, want %q", m3.Status().State, StateIdle)
	}
	if !m3.Enabled() {
		t.Error("manager should be enabled")
	}
}

func TestManagerStopSafety(t *testing.T) {
	m := NewManager(enabledConfig("/tmp/x.db"), nil, nil, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	cancel()
	m.Stop()

	// Double stop should not panic
	m.Stop()
}

func TestManagerDisabledNoStart(t *testing.T) {
	m := NewManager(Config{}, nil, nil, discardLogger())

	m.Start(context.Background()) // no-op when disabled
	m.Stop()                      // should not block
}

func TestRunNowUploadsEncryptedBackup(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "bywater.db")
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer db.Close()

	backups := store.NewBackupStore(db)
	m := NewManager(enabledConfig(dbPath), db, backups, discardLogger())
	mock := newMockS3()
	m.client = mock

	id, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}

	record, err := backups.GetByID(id)
	if err != nil {
		t.Fatalf("get backup record: %v", err)
	}
	if record.Status != model.BackupCompleted {
		t.Errorf("status = %q, want %q", record.Status, model.BackupCompleted)
	}
	if record.SizeBytes == 0 {
		t.Error("size_bytes should be recorded")
	}

	mock.mu.Lock()
	uploaded, ok := mock.objects[record.S3Key]
	mock.mu.Unlock()
	if !ok {
		t.Fatalf("no object uploaded under key %q", record.S3Key)
	}
	if int64(len(uploaded)) != record.SizeBytes {
		t.Errorf("uploaded %d bytes, record says %d", len(uploaded), record.SizeBytes)
	}

	// The upload must be ciphertext, not a raw SQLite file
	if bytes.HasPrefix(uploaded, []byte("SQLite format 3")) {
		t.Error("uploaded object is not encrypted")
	}

	status := m.Status()
	if status.State != StateIdle {
		t.Errorf("state after backup = %q, want %q", status.State, StateIdle)
	}
	if status.LastBackup == nil {
		t.Error("last_backup should be set")
	}
}

func TestDownloadReturnsUploadedObject(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "bywater.db")
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer db.Close()

	backups := store.NewBackupStore(db)
	m := NewManager(enabledConfig(dbPath), db, backups, discardLogger())
	mock := newMockS3()
	m.client = mock

	id, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}

	body, size, err := m.Download(context.Background(), id)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if int64(len(data)) != size {
		t.Errorf("downloaded %d bytes, size says %d", len(data), size)
	}
}

func TestDownloadUnknownBackup(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "bywater.db")
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer db.Close()

	m := NewManager(enabledConfig(dbPath), db, store.NewBackupStore(db), discardLogger())
	m.client = newMockS3()

	if _, _, err := m.Download(context.Background(), 999999); err == nil {
		t.Fatal("expected error for unknown backup id")
	}
}

func TestCleanupDeletesOldBackups(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "bywater.db")
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer db.Close()

	backups := store.NewBackupStore(db)
	m := NewManager(enabledConfig(dbPath), db, backups, discardLogger())
	mock := newMockS3()
	m.client = mock

	id, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	record, _ := backups.GetByID(id)

	// Age the record past the retention window
	if _, err := db.Exec(
		`UPDATE backups SET created_at = ? WHERE id = ?`,
		time.Now().UTC().AddDate(0, 0, -60), id,
	); err != nil {
		t.Fatalf("age backup record: %v", err)
	}

	if err := m.Cleanup(context.Background(), 30); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	if got, _ := backups.GetByID(id); got != nil {
		t.Error("old backup record should be deleted")
	}
	mock.mu.Lock()
	_, stillThere := mock.objects[record.S3Key]
	mock.mu.Unlock()
	if stillThere {
		t.Error("old S3 object should be deleted")
	}
}
