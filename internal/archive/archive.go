// Package archive uploads encrypted copies of the ledger database and
// generated report files to S3-compatible storage. Blobs are sealed
// client-side; the storage provider only ever sees ciphertext.
package archive

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3Client is the subset of the S3 API the manager uses, split out so
// tests can substitute a fake.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Config holds archive manager configuration.
type Config struct {
	S3     S3Config
	DBPath string
}

// State represents the archive manager state.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

// Status holds the manager's current state for UI display.
type Status struct {
	State       State      `json:"state"`
	LastArchive *time.Time `json:"last_archive,omitempty"`
	Error       string     `json:"error,omitempty"`
	InProgress  bool       `json:"in_progress"`
}

// StatusCallback is called whenever the archive state changes.
type StatusCallback func(Status)

// Entry describes one stored archive object.
type Entry struct {
	Key        string    `json:"key"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Manager uploads and restores encrypted archives.
type Manager struct {
	mu       sync.RWMutex
	cfg      Config
	status   Status
	callback StatusCallback

	db     *sql.DB
	client s3Client
	logger *slog.Logger
}

// NewManager creates an archive manager. With incomplete S3 credentials it
// starts disabled and every operation reports ErrNotConfigured.
func NewManager(cfg Config, db *sql.DB, logger *slog.Logger, callback StatusCallback) *Manager {
	m := &Manager{
		cfg:      cfg,
		db:       db,
		logger:   logger,
		callback: callback,
		status:   Status{State: StateDisabled},
	}
	if cfg.S3.Bucket != "" && cfg.S3.AccessKey != "" && cfg.S3.SecretKey != "" {
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

var ErrNotConfigured = fmt.Errorf("archive storage not configured")

// Enabled reports whether S3 credentials are configured.
func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client != nil
}

// Status returns the current archive status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(s)
	}
}

// ArchiveLedger checkpoints the WAL, encrypts a copy of the database file,
// and uploads it under the organization's prefix. Returns the object key.
func (m *Manager) ArchiveLedger(ctx context.Context, orgID int64, passphrase string) (string, error) {
	m.mu.RLock()
	client, dbPath := m.client, m.cfg.DBPath
	m.mu.RUnlock()
	if client == nil {
		return "", ErrNotConfigured
	}

	m.setStatus(Status{State: StateRunning, InProgress: true})

	if _, err := m.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return "", m.fail(fmt.Errorf("wal checkpoint: %w", err))
	}
	plaintext, err := os.ReadFile(dbPath)
	if err != nil {
		return "", m.fail(fmt.Errorf("read database: %w", err))
	}

	key := fmt.Sprintf("org/%d/ledger-%s.db.enc", orgID, time.Now().UTC().Format("2006-01-02T150405Z"))
	if err := m.upload(ctx, key, plaintext, passphrase); err != nil {
		return "", m.fail(err)
	}

	now := time.Now().UTC()
	m.setStatus(Status{State: StateIdle, LastArchive: &now})
	m.logger.Info("ledger archived", "org_id", orgID, "key", key, "bytes", len(plaintext))
	return key, nil
}

// ArchiveReport encrypts and uploads a generated report file.
func (m *Manager) ArchiveReport(ctx context.Context, orgID int64, filename string, data []byte, passphrase string) (string, error) {
	m.mu.RLock()
	client := m.client
	m.mu.RUnlock()
	if client == nil {
		return "", ErrNotConfigured
	}

	key := fmt.Sprintf("org/%d/reports/%s.enc", orgID, filename)
	if err := m.upload(ctx, key, data, passphrase); err != nil {
		return "", m.fail(err)
	}
	m.logger.Info("report archived", "org_id", orgID, "key", key)
	return key, nil
}

func (m *Manager) upload(ctx context.Context, key string, plaintext []byte, passphrase string) error {
	sealed, err := Encrypt(plaintext, passphrase)
	if err != nil {
		return fmt.Errorf("encrypt: %w", err)
	}

	m.mu.RLock()
	client, bucket := m.client, m.cfg.S3.Bucket
	m.mu.RUnlock()

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(int64(len(sealed))),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// List returns the organization's stored archives, newest first.
func (m *Manager) List(ctx context.Context, orgID int64) ([]Entry, error) {
	m.mu.RLock()
	client, bucket := m.client, m.cfg.S3.Bucket
	m.mu.RUnlock()
	if client == nil {
		return nil, ErrNotConfigured
	}

	out, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(fmt.Sprintf("org/%d/", orgID)),
	})
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}

	entries := make([]Entry, 0, len(out.Contents))
	for _, obj := range out.Contents {
		e := Entry{Key: aws.ToString(obj.Key), Size: aws.ToInt64(obj.Size)}
		if obj.LastModified != nil {
			e.UploadedAt = *obj.LastModified
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].UploadedAt.After(entries[j].UploadedAt) })
	return entries, nil
}

// Restore downloads and decrypts an archive object.
func (m *Manager) Restore(ctx context.Context, key, passphrase string) ([]byte, error) {
	m.mu.RLock()
	client, bucket := m.client, m.cfg.S3.Bucket
	m.mu.RUnlock()
	if client == nil {
		return nil, ErrNotConfigured
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", key, err)
	}
	defer out.Body.Close()

	sealed, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return Decrypt(sealed, passphrase)
}

// Delete removes an archive object.
func (m *Manager) Delete(ctx context.Context, key string) error {
	m.mu.RLock()
	client, bucket := m.client, m.cfg.S3.Bucket
	m.mu.RUnlock()
	if client == nil {
		return ErrNotConfigured
	}

	_, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (m *Manager) fail(err error) error {
	m.setStatus(Status{State: StateError, Error: err.Error()})
	return err
}
