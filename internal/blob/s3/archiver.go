package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// multipartThreshold switches activity snapshots to multipart uploads.
const multipartThreshold = 8 << 20

// Archiver implements domain.PassArchiver. Objects are laid out as
//
//	<prefix>/passes/2026/10/17/<pass id>.json
//	<prefix>/activity/<wallet>/2026-10-17T150405Z.jsonl
type Archiver struct {
	writer domain.BlobWriter
	prefix string
	now    func() time.Time
}

// NewArchiver creates an Archiver writing under prefix (may be empty).
func NewArchiver(writer domain.BlobWriter, prefix string) *Archiver {
	return &Archiver{
		writer: writer,
		prefix: strings.Trim(prefix, "/"),
		now:    time.Now,
	}
}

func (a *Archiver) key(parts ...string) string {
	if a.prefix != "" {
		parts = append([]string{a.prefix}, parts...)
	}
	return path.Join(parts...)
}

// ArchivePass uploads report as indented JSON and returns its key.
func (a *Archiver) ArchivePass(ctx context.Context, report domain.PassReport) (string, error) {
	buf, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("s3blob: marshal pass %s: %w", report.ID, err)
	}
	started := report.StartedAt.UTC()
	if started.IsZero() {
		started = a.now().UTC()
	}
	key := a.key("passes", started.Format("2006/01/02"), report.ID+".json")
	if err := a.writer.Put(ctx, key, bytes.NewReader(buf), "application/json"); err != nil {
		return "", err
	}
	return key, nil
}

// ArchiveActivity uploads records as JSON lines and returns the key.
func (a *Archiver) ArchiveActivity(ctx context.Context, wallet string, records []domain.ActivityRecord) (string, error) {
	if len(records) == 0 {
		return "", nil
	}
	buf, err := marshalJSONL(records)
	if err != nil {
		return "", fmt.Errorf("s3blob: marshal activity for %s: %w", wallet, err)
	}
	key := a.key("activity", strings.ToLower(wallet), a.now().UTC().Format("2006-01-02T150405Z")+".jsonl")

	if len(buf) >= multipartThreshold {
		err = a.writer.PutMultipart(ctx, key, bytes.NewReader(buf), minPartSize)
	} else {
		err = a.writer.Put(ctx, key, bytes.NewReader(buf), "application/x-ndjson")
	}
	if err != nil {
		return "", err
	}
	return key, nil
}

// marshalJSONL encodes each element on its own line.
func marshalJSONL[T any](items []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

var _ domain.PassArchiver = (*Archiver)(nil)
