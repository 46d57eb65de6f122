package storage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/sports-scheduling/models"
)

type recordingUploader struct {
	key         string
	contentType string
	body        []byte
	err         error
}

func (u *recordingUploader) Upload(_ context.Context, key, contentType string, body []byte) (*UploadResult, error) {
	if u.err != nil {
		return nil, u.err
	}
	u.key, u.contentType, u.body = key, contentType, body
	return &UploadResult{Key: key, Location: publicURL("https://cdn.example.com/snapshots/", key)}, nil
}

func (u *recordingUploader) GetPublicURL(key string) string {
	return publicURL("https://cdn.example.com/snapshots/", key)
}

func TestSnapshotArchiver_Archive(t *testing.T) {
	up := &recordingUploader{}
	a := NewSnapshotArchiver(up, "")
	at := time.Date(2026, 3, 5, 10, 15, 0, 0, time.UTC)

	url, err := a.Archive(context.Background(), PointsSnapshot{
		EventID: "2026-sports-fest",
		Sport:   "chess",
		TakenAt: at,
		Result:  models.BackfillResult{Processed: 3, Created: 4},
		Partitions: map[models.Gender][]models.PointsTableEntry{
			models.GenderMale: {{Participant: "A", Tally: models.Tally{Points: 2}}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "points-table/2026-sports-fest/chess/20260305T101500Z.json", up.key)
	assert.Equal(t, "application/json", up.contentType)
	assert.Equal(t, "https://cdn.example.com/snapshots/points-table/2026-sports-fest/chess/20260305T101500Z.json", url)

	var decoded PointsSnapshot
	require.NoError(t, json.Unmarshal(up.body, &decoded))
	assert.Equal(t, 3, decoded.Result.Processed)
	assert.Equal(t, 2, decoded.Partitions[models.GenderMale][0].Points)
}

func TestSnapshotArchiver_UploadError(t *testing.T) {
	a := NewSnapshotArchiver(&recordingUploader{err: errors.New("boom")}, "snap")
	_, err := a.Archive(context.Background(), PointsSnapshot{EventID: "e", Sport: "chess"})
	assert.Error(t, err)
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/a/b.json", publicURL("https://cdn.example.com", "/a/b.json"))
	assert.Equal(t, "https://cdn.example.com/x/a.json", publicURL("https://cdn.example.com/x/", "a.json"))
	assert.Empty(t, publicURL("", "a.json"))
}
