package model

import "time"

type BackupStatus string

const (
	BackupRunning   BackupStatus = "running"
	BackupCompleted BackupStatus = "completed"
	BackupFailed    BackupStatus = "failed"
)

type Backup struct {
	ID        int64        `json:"id"`
	Filename  string       `json:"filename"`
	S3Key     string       `json:"s3_key"`
	SizeBytes int64        `json:"size_bytes"`
	Status    BackupStatus `json:"status"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}
