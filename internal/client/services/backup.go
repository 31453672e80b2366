package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/notes"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

// ObjectStore is the part of the S3 API backups need.
type ObjectStore interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newObjectStore = func(cfg aws.Config, optFns ...func(*s3.Options)) ObjectStore {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// BackupConfig points at an S3-compatible bucket.
type BackupConfig struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// Snapshot is the JSON document written by Export.
type Snapshot struct {
	Owner      string         `json:"owner"`
	ExportedAt string         `json:"exported_at"`
	Notes      []SnapshotNote `json:"notes"`
}

type SnapshotNote struct {
	LocalID     int64   `json:"local_id"`
	ServerID    *int64  `json:"server_id,omitempty"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	CreatedAt   *string `json:"created_at,omitempty"`
	UpdatedAt   *string `json:"updated_at,omitempty"`
	Synced      bool    `json:"synced"`
	Deleted     bool    `json:"deleted"`
}

// BackupService uploads a snapshot of the owner's local notes, pending
// changes included, to object storage.
type BackupService interface {
	// Export returns the object key it wrote.
	Export(ctx context.Context) (string, error)
}

type backupService struct {
	cfg    BackupConfig
	db     *sql.DB
	owner  OwnerProvider
	logger logging.Logger
	now    func() time.Time
}

func NewBackupService(cfg BackupConfig, db *sql.DB, owner OwnerProvider, logger logging.Logger) BackupService {
	return &backupService{cfg: cfg, db: db, owner: owner, logger: logger.With("component", "backup"), now: time.Now}
}

func (b *backupService) store(ctx context.Context) (ObjectStore, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(b.cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			b.cfg.AccessKey,
			b.cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return newObjectStore(cfg, func(o *s3.Options) {
		if b.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(b.cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func (b *backupService) Export(ctx context.Context) (string, error) {
	if b.cfg.Bucket == "" {
		return "", fmt.Errorf("%w: backup bucket is not configured", common.ErrorValidation)
	}
	owner := b.owner.Username()
	if owner == "" {
		return "", fmt.Errorf("%w: no local account", common.ErrorValidation)
	}

	recs, err := notes.NewSQLiteRepository(b.db).GetAllByOwner(ctx, owner)
	if err != nil {
		return "", err
	}

	now := b.now().UTC()
	snap := Snapshot{Owner: owner, ExportedAt: models.FormatTimestamp(now), Notes: make([]SnapshotNote, 0, len(recs))}
	for _, r := range recs {
		snap.Notes = append(snap.Notes, SnapshotNote{
			LocalID:     r.LocalID,
			ServerID:    r.ServerID,
			Title:       r.Title,
			Description: r.Description,
			CreatedAt:   r.CreatedAt,
			UpdatedAt:   r.UpdatedAt,
			Synced:      r.IsSynced,
			Deleted:     r.IsDeleted,
		})
	}

	body, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", err
	}

	store, err := b.store(ctx)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("notekeeper/%s/%s/%s.json", owner, now.Format("2006-01-02"), uuid.NewString())
	_, err = store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("upload backup: %w", err)
	}

	b.logger.Info(ctx, "backup uploaded", "key", key, "notes", len(snap.Notes))
	return key, nil
}
