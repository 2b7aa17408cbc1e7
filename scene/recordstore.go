package scene

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ChristofferGreen/pathspace/pkg/repo"
)

// SnapshotRecord is one entry in a scene's snapshot index (spec §3's
// "Snapshot record" summary, persisted at <scene>/meta/snapshots/index).
type SnapshotRecord struct {
	Revision         uint64
	CreatedAtMs      int64
	DrawableCount    uint64
	CommandCount     uint64
	FingerprintCount uint64
}

// RecordStore is the in-memory implementation of repo.Repository used
// for the snapshot index; no on-disk durability is required beyond what
// publish itself writes into the PathSpace (spec Non-goals).
type RecordStore struct {
	mu      sync.Mutex
	records map[uint64]SnapshotRecord
}

// NewRecordStore creates an empty index.
func NewRecordStore() *RecordStore {
	return &RecordStore{records: make(map[uint64]SnapshotRecord)}
}

var _ repo.Repository[SnapshotRecord, uint64] = (*RecordStore)(nil)

func (s *RecordStore) Get(ctx context.Context, id uint64) (SnapshotRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return SnapshotRecord{}, fmt.Errorf("scene: snapshot revision %d not found", id)
	}
	return rec, nil
}

func (s *RecordStore) List(ctx context.Context, opts repo.ListOpts) ([]SnapshotRecord, error) {
	s.mu.Lock()
	out := make([]SnapshotRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Revision < out[j].Revision })

	if opts.Offset > 0 && opts.Offset < len(out) {
		out = out[opts.Offset:]
	} else if opts.Offset >= len(out) {
		out = nil
	}
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (s *RecordStore) Create(ctx context.Context, rec SnapshotRecord) (SnapshotRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Revision] = rec
	return rec, nil
}

func (s *RecordStore) Update(ctx context.Context, rec SnapshotRecord) (SnapshotRecord, error) {
	return s.Create(ctx, rec)
}

func (s *RecordStore) Delete(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}
