package scene

import (
	"context"
	"encoding/binary"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ChristofferGreen/pathspace/core"
	"github.com/ChristofferGreen/pathspace/pathspace"
	"github.com/ChristofferGreen/pathspace/pkg/metrics"
	"github.com/ChristofferGreen/pathspace/pkg/repo"
)

// RetentionPolicy controls which revisions Prune keeps. A zero value
// keeps only the current revision; Publish's implicit prune call always
// uses the policy last set via SetRetentionPolicy.
type RetentionPolicy struct {
	MinRevisions int
	MinDuration  time.Duration
}

// PublishOptions lets a caller pin a specific revision number (tests)
// or tag an author; otherwise Publish auto-increments the revision
// from the scene's current one and computes fingerprints itself.
type PublishOptions struct {
	Revision uint64
	Author   string
}

// Builder is the per-scene snapshot publisher (spec component C7). A
// single mutex serializes publish/prune/index access; builders for
// different scenes are fully independent.
type Builder struct {
	mu sync.Mutex

	ps        *pathspace.PathSpace
	scenePath string
	index     *RecordStore
	policy    RetentionPolicy

	currentRevision uint64
	buckets         map[uint64]*DrawableBucket // decodeBucket's source of truth

	evictedTotal  *metrics.Counter
	retainedGauge *metrics.Gauge
}

// NewBuilder creates a publisher for scenePath, recording GC metrics
// into reg (a shared pkg/metrics.Registry, typically the same one the
// demo binary exposes over /metrics).
func NewBuilder(ps *pathspace.PathSpace, scenePath string, reg *metrics.Registry) *Builder {
	return &Builder{
		ps:            ps,
		scenePath:     scenePath,
		index:         NewRecordStore(),
		buckets:       make(map[uint64]*DrawableBucket),
		evictedTotal:  reg.Counter("pathspace_scene_snapshots_evicted_total", "snapshot revisions evicted by prune"),
		retainedGauge: reg.Gauge("pathspace_scene_snapshots_retained", "snapshot revisions currently retained"),
	}
}

func rev16(revision uint64) string { return fmt.Sprintf("%016d", revision) }

// SetRetentionPolicy installs the policy Publish's implicit prune uses.
func (b *Builder) SetRetentionPolicy(policy RetentionPolicy) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.policy = policy
}

// Publish validates bucket, assigns it the next monotonic revision
// (or opts.Revision if set), serializes every sub-array under
// <scene>/builds/<rev16>/..., updates current_revision, appends to the
// index, and runs Prune immediately (spec §4.7).
func (b *Builder) Publish(opts PublishOptions, bucket *DrawableBucket) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := bucket.validate(); err != nil {
		return 0, core.Wrap(core.CodeInvalidType, "drawable bucket failed shape validation", err)
	}

	revision := opts.Revision
	if revision == 0 {
		revision = b.currentRevision + 1
	}
	if revision <= b.currentRevision {
		return 0, core.New(core.CodeInvalidType, "snapshot revision must be strictly greater than the current revision")
	}

	if bucket.Fingerprints == nil {
		bucket.Fingerprints = computeDrawableFingerprints(bucket)
	}

	if err := b.writeBucket(revision, opts, bucket); err != nil {
		return 0, err
	}

	b.buckets[revision] = bucket
	b.currentRevision = revision

	if _, err := b.ps.Insert(b.scenePath+"/current_revision", revision); err != nil {
		return 0, err
	}

	rec := SnapshotRecord{
		Revision:         revision,
		CreatedAtMs:      time.Now().UnixMilli(),
		DrawableCount:    uint64(bucket.drawableCount()),
		CommandCount:     uint64(len(bucket.CommandKinds)),
		FingerprintCount: uint64(len(bucket.Fingerprints)),
	}
	if _, err := b.index.Create(context.Background(), rec); err != nil {
		return 0, err
	}
	if err := b.writeIndex(); err != nil {
		return 0, err
	}

	b.prune()
	return revision, nil
}

// writeBucket serializes every logical sub-array of bucket into its own
// binary record under <scene>/builds/<rev16>/bucket/<part>.bin, plus a
// human-readable desc line and the per-revision summary.
func (b *Builder) writeBucket(revision uint64, opts PublishOptions, bucket *DrawableBucket) error {
	base := fmt.Sprintf("%s/builds/%s", b.scenePath, rev16(revision))

	parts := map[string][]byte{
		"drawables.bin":    encodeUint64s(bucket.DrawableIDs),
		"fingerprints.bin": encodeUint64s(bucket.Fingerprints),
		"cmd-buffer.bin":   bucket.CommandPayload,
	}
	for name, data := range parts {
		if _, err := b.ps.Insert(base+"/bucket/"+name, data); err != nil {
			return err
		}
	}

	if _, err := b.ps.Insert(base+"/desc", fmt.Sprintf("revision=%d author=%s published_at_ms=%d", revision, opts.Author, time.Now().UnixMilli())); err != nil {
		return err
	}

	summary := SnapshotSummary{
		DrawableCount:    uint64(bucket.drawableCount()),
		CommandCount:     uint64(len(bucket.CommandKinds)),
		FingerprintCount: uint64(len(bucket.Fingerprints)),
	}
	if _, err := b.ps.Insert(base+"/bucket/summary", summary); err != nil {
		return err
	}
	return nil
}

// writeIndex refreshes the human-readable revision index at
// <scene>/meta/snapshots/index, oldest first.
func (b *Builder) writeIndex() error {
	recs, err := b.index.List(context.Background(), repo.ListOpts{})
	if err != nil {
		return err
	}
	revisions := make([]uint64, len(recs))
	for i, r := range recs {
		revisions[i] = r.Revision
	}
	_, err = b.ps.Insert(b.scenePath+"/meta/snapshots/index", revisions)
	return err
}

// SnapshotSummary is the denormalized per-revision counter set recorded
// at <scene>/builds/<rev>/bucket/summary.
type SnapshotSummary struct {
	DrawableCount    uint64
	CommandCount     uint64
	FingerprintCount uint64
}

func encodeUint64s(vs []uint64) []byte {
	out := make([]byte, 8*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint64(out[i*8:], v)
	}
	return out
}

// prune enforces retention: the current revision is never evicted (even
// if it is also the oldest), the newest MinRevisions are always kept,
// and any record within MinDuration of now is kept regardless of count.
// Evicted revisions have their bucket data released and their stored
// sub-arrays dropped from the PathSpace; GC metrics are updated either
// way. Callers must hold b.mu.
func (b *Builder) prune() {
	recs, err := b.index.List(context.Background(), repo.ListOpts{})
	if err != nil {
		return
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Revision > recs[j].Revision })

	now := time.Now().UnixMilli()
	evicted := 0
	retainedFingerprints := uint64(0)

	// nonCurrentRank counts non-current records in recency order (recs is
	// sorted newest-first), so the current revision is retained on top
	// of — not instead of — the MinRevisions newest non-current records.
	nonCurrentRank := 0
	for _, rec := range recs {
		keep := rec.Revision == b.currentRevision
		if !keep {
			if nonCurrentRank < b.policy.MinRevisions {
				keep = true
			}
			if !keep && b.policy.MinDuration > 0 && now-rec.CreatedAtMs <= b.policy.MinDuration.Milliseconds() {
				keep = true
			}
			nonCurrentRank++
		}
		if keep {
			retainedFingerprints += rec.FingerprintCount
			continue
		}

		base := fmt.Sprintf("%s/builds/%s", b.scenePath, rev16(rec.Revision))
		b.ps.DeleteSubtree(base)
		delete(b.buckets, rec.Revision)
		b.index.Delete(context.Background(), rec.Revision)
		evicted++
	}

	b.writeIndex()

	b.evictedTotal.Add(int64(evicted))
	b.retainedGauge.Set(int64(len(recs) - evicted))

	metricsPath := b.scenePath + "/metrics/snapshots/state"
	b.ps.Insert(metricsPath, fmt.Sprintf("evicted=%d retained=%d total_fingerprint_count=%d last_revision=%d",
		evicted, len(recs)-evicted, retainedFingerprints, b.currentRevision))
}

// Prune runs retention immediately using policy (also installing it as
// the policy future implicit prunes, triggered by Publish, will use).
func (b *Builder) Prune(policy RetentionPolicy) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.policy = policy
	b.prune()
}

// CurrentRevision returns the most recently published revision.
func (b *Builder) CurrentRevision() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentRevision
}

// Index returns a snapshot of the revision-ascending record index.
func (b *Builder) Index() []SnapshotRecord {
	recs, _ := b.index.List(context.Background(), repo.ListOpts{})
	sort.Slice(recs, func(i, j int) bool { return recs[i].Revision < recs[j].Revision })
	return recs
}

// DecodeBucket returns the drawable bucket published as revision,
// reconstructed from the builder's in-process snapshot cache.
func (b *Builder) DecodeBucket(revision uint64) (*DrawableBucket, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	bucket, ok := b.buckets[revision]
	if !ok {
		return nil, core.New(core.CodeNoObjectFound, fmt.Sprintf("scene: revision %d is not retained", revision))
	}
	return bucket, nil
}
