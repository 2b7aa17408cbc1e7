// Package scene implements the snapshot builder (spec component C7):
// publishing immutable revisions of a drawable bucket under a scene
// path, enforcing retention, and recording GC metrics.
package scene

import "fmt"

// CommandKind identifies a draw command's payload shape. The ordering
// and byte sizes below mirror the fixed lookup table the fingerprinting
// and serialization code key off of.
type CommandKind uint32

const (
	CommandRect CommandKind = iota
	CommandCircle
	CommandPath
	CommandStroke
	CommandTextGlyph
	CommandImage
	CommandClip
	CommandTransform
)

// commandPayloadSize is the fixed per-kind payload size in bytes, used
// both to lay out the packed command buffer and to know how many bytes
// of CommandPayload to mix into a drawable's fingerprint.
var commandPayloadSize = [...]int{
	CommandRect:      16, // min_x, min_y, max_x, max_y (f32 x4)
	CommandCircle:    12, // cx, cy, radius (f32 x3)
	CommandPath:      8,  // command_offset, command_count (u32 x2)
	CommandStroke:    20, // thickness (f32) + point_offset, point_count (u32 x2) + pad
	CommandTextGlyph: 20, // atlas_fingerprint (u64) + flags (u32) + glyph_offset, glyph_count (u32 x2)
	CommandImage:     12, // resource_id (u32) + uv rect offset/count (u32 x2)
	CommandClip:      4,  // clip_node index (i32)
	CommandTransform: 4,  // transform index (u32)
}

func payloadSizeBytes(kind CommandKind) int {
	if int(kind) < 0 || int(kind) >= len(commandPayloadSize) {
		return 0
	}
	return commandPayloadSize[kind]
}

// Transform is a 2D affine transform, column-major, matching the
// original's flat element array.
type Transform struct {
	Elements [6]float32
}

// BoundingSphere is a drawable's bounding sphere.
type BoundingSphere struct {
	Center [3]float32
	Radius float32
}

// BoundingBox is a drawable's axis-aligned bounding box. Presence is
// tracked separately via DrawableBucket.BoundsBoxValid, since an absent box still
// contributes a fixed sentinel to the fingerprint rather than being
// skipped.
type BoundingBox struct {
	Min [3]float32
	Max [3]float32
}

// ClipNode is one node of a singly linked clip chain.
type ClipNode struct {
	Type          uint32
	Next          int32 // -1 terminates the chain
	RectMinX      float32
	RectMinY      float32
	RectMaxX      float32
	RectMaxY      float32
	PathOffset    uint32
	PathCount     uint32
}

// AuthoringMapEntry links a drawable back to the authoring tool that
// produced it, for tooling round-trips.
type AuthoringMapEntry struct {
	DrawableIndexWithinNode uint32
	Generation              uint32
	AuthoringNodeID         string
}

// FontAssetReference associates a drawable with a font atlas revision.
type FontAssetReference struct {
	DrawableID   uint64
	ResourceRoot string
	Revision     uint64
	Fingerprint  uint64
}

// DrawableBucket is the full parallel-array snapshot of one frame's
// drawable state (spec §3's "Snapshot record").
type DrawableBucket struct {
	DrawableIDs     []uint64
	WorldTransforms []Transform
	BoundsSpheres   []BoundingSphere
	BoundsBoxes     []BoundingBox
	BoundsBoxValid  []bool
	Layers          []uint32
	ZValues         []float32
	MaterialIDs     []uint32
	PipelineFlags   []uint32
	Visibility      []bool

	CommandOffsets []uint32
	CommandCounts  []uint32
	CommandKinds   []CommandKind
	CommandPayload []byte

	StrokePoints  []StrokePoint
	GlyphVertices []GlyphVertex

	ClipHeadIndices []int32
	ClipNodes       []ClipNode

	AuthoringMap []AuthoringMapEntry
	FontAssets   []FontAssetReference

	// Fingerprints, if non-nil, is used as-is instead of being computed
	// by Publish (tests may supply a fixed fingerprint set).
	Fingerprints []uint64
}

// StrokePoint is one vertex of a stroke command's point list.
type StrokePoint struct{ X, Y float32 }

// GlyphVertex is one quad corner/uv of a text-glyph command.
type GlyphVertex struct{ MinX, MinY, MaxX, MaxY, U0, V0, U1, V1 float32 }

func (b *DrawableBucket) drawableCount() int { return len(b.DrawableIDs) }

// validate enforces the bucket-shape invariants from spec §4.7 step 1.
func (b *DrawableBucket) validate() error {
	n := b.drawableCount()
	if len(b.BoundsBoxValid) != 0 && len(b.BoundsBoxValid) != n {
		return fmt.Errorf("bounds-box presence vector length %d does not match drawable count %d", len(b.BoundsBoxValid), n)
	}
	if len(b.ClipHeadIndices) != 0 && len(b.ClipHeadIndices) != n {
		return fmt.Errorf("clip-head indices length %d does not match drawable count %d", len(b.ClipHeadIndices), n)
	}
	for _, idx := range b.ClipHeadIndices {
		if idx < -1 || int(idx) >= len(b.ClipNodes) {
			return fmt.Errorf("clip-head index %d out of range [-1, %d)", idx, len(b.ClipNodes))
		}
	}
	visited := make(map[int32]bool)
	for _, idx := range b.ClipHeadIndices {
		cursor := idx
		steps := 0
		for cursor >= 0 && int(cursor) < len(b.ClipNodes) {
			if visited[cursor] {
				break // already validated as part of a shared chain
			}
			visited[cursor] = true
			cursor = b.ClipNodes[cursor].Next
			steps++
			if steps > len(b.ClipNodes) {
				return fmt.Errorf("clip chain starting at %d does not terminate", idx)
			}
		}
	}

	wantPayload := 0
	for _, k := range b.CommandKinds {
		wantPayload += payloadSizeBytes(k)
	}
	if wantPayload != len(b.CommandPayload) {
		return fmt.Errorf("command payload size %d does not match Σ payload_size(kind) = %d", len(b.CommandPayload), wantPayload)
	}

	if len(b.CommandOffsets) != 0 && len(b.CommandOffsets) != n {
		return fmt.Errorf("command offsets length %d does not match drawable count %d", len(b.CommandOffsets), n)
	}
	return nil
}
