package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/Dosada05/sports-scheduling/models"
)

// PointsSnapshot is the archived state of one sport's points table right after a backfill.
type PointsSnapshot struct {
	EventID    string                                    `json:"event_id"`
	Sport      string                                    `json:"sport"`
	TakenAt    time.Time                                 `json:"taken_at"`
	Result     models.BackfillResult                     `json:"result"`
	Partitions map[models.Gender][]models.PointsTableEntry `json:"partitions"`
}

// SnapshotArchiver writes backfill snapshots as JSON objects.
type SnapshotArchiver struct {
	uploader FileUploader
	prefix   string
}

func NewSnapshotArchiver(uploader FileUploader, prefix string) *SnapshotArchiver {
	if prefix == "" {
		prefix = "points-table"
	}
	return &SnapshotArchiver{uploader: uploader, prefix: prefix}
}

// SnapshotKey: points-table/{event_id}/{sport}/20260305T101500Z.json
func (a *SnapshotArchiver) SnapshotKey(eventID, sport string, at time.Time) string {
	return fmt.Sprintf("%s/%s/%s/%s.json", a.prefix, url.PathEscape(eventID), url.PathEscape(sport), at.UTC().Format("20060102T150405Z"))
}

// Archive uploads the snapshot and returns its public URL.
func (a *SnapshotArchiver) Archive(ctx context.Context, snapshot PointsSnapshot) (string, error) {
	body, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("marshal points snapshot: %w", err)
	}
	key := a.SnapshotKey(snapshot.EventID, snapshot.Sport, snapshot.TakenAt)
	res, err := a.uploader.Upload(ctx, key, "application/json", body)
	if err != nil {
		return "", err
	}
	return res.Location, nil
}
