package scene

import (
	"encoding/binary"
	"math"
)

const (
	fnvOffsetBasis uint64 = 1469598103934665603
	fnvPrime       uint64 = 1099511628211
)

// fnv1a64 accumulates an FNV-1a-64 hash over successive mixed values,
// matching the original SceneSnapshotBuilderFingerprint.cpp's Fnv1a64.
type fnv1a64 struct{ value uint64 }

func newFNV1a64() fnv1a64 { return fnv1a64{value: fnvOffsetBasis} }

func (h *fnv1a64) mixBytes(b []byte) {
	for _, c := range b {
		h.value ^= uint64(c)
		h.value *= fnvPrime
	}
}

func (h *fnv1a64) mixU32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	h.mixBytes(buf[:])
}

func (h *fnv1a64) mixI32(v int32) { h.mixU32(uint32(v)) }

func (h *fnv1a64) mixU64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	h.mixBytes(buf[:])
}

func (h *fnv1a64) mixF32(v float32) { h.mixU32(math.Float32bits(v)) }

func (h *fnv1a64) mixBool(v bool) {
	if v {
		h.mixU32(1)
	} else {
		h.mixU32(0)
	}
}

func (h *fnv1a64) mixString(s string) {
	h.mixBytes([]byte(s))
	h.mixU64(uint64(len(s)))
}

// absentBoundsSentinel is mixed in place of a missing/invalid bounding
// box, so two drawables differing only in bounds-presence never
// collide (confirmed against the original: a skipped field would make
// them indistinguishable).
const absentBoundsSentinel uint32 = 0xAAAABBBB

const (
	truncatedCommandSentinel uint32 = 0xAAAA5555
	clipCycleSentinel        uint32 = 0xFFFFFFFF
	commandOverrunSentinel   uint32 = 0xFFFFFFFF
	strokeOverrunSentinel    uint32 = 0xDEADBEEF
	glyphOverrunSentinel     uint32 = 0x0BADCAFE
)

func (h *fnv1a64) mixClipChain(nodes []ClipNode, head int32) {
	index := head
	safety := 0
	seen := make(map[int32]bool)
	for index >= 0 && int(index) < len(nodes) && safety < len(nodes) {
		if seen[index] {
			h.mixU32(clipCycleSentinel)
			return
		}
		seen[index] = true
		node := nodes[index]
		h.mixU32(node.Type)
		h.mixI32(node.Next)
		h.mixF32(node.RectMinX)
		h.mixF32(node.RectMinY)
		h.mixF32(node.RectMaxX)
		h.mixF32(node.RectMaxY)
		h.mixU32(node.PathOffset)
		h.mixU32(node.PathCount)
		index = node.Next
		safety++
	}
	if safety >= len(nodes) && len(nodes) > 0 {
		h.mixU32(clipCycleSentinel)
	}
}

func (h *fnv1a64) mixAuthoringEntry(entry AuthoringMapEntry) {
	h.mixU32(entry.DrawableIndexWithinNode)
	h.mixU32(entry.Generation)
	if entry.AuthoringNodeID != "" {
		h.mixString(entry.AuthoringNodeID)
	}
}

type commandLayout struct {
	offsets   []int
	truncated bool
}

func computeCommandLayout(kinds []CommandKind, payload []byte) commandLayout {
	layout := commandLayout{offsets: make([]int, len(kinds))}
	cursor := 0
	for i, kind := range kinds {
		layout.offsets[i] = cursor
		size := payloadSizeBytes(kind)
		if cursor+size > len(payload) {
			layout.truncated = true
			cursor = len(payload)
		} else {
			cursor += size
		}
	}
	if cursor != len(payload) {
		layout.truncated = true
	}
	return layout
}

// computeDrawableFingerprints implements spec §4.7 step 3: a 64-bit
// FNV-1a content hash per drawable, mixed in a fixed order so that
// frame-to-frame diffing can key purely off the fingerprint.
func computeDrawableFingerprints(b *DrawableBucket) []uint64 {
	n := b.drawableCount()
	out := make([]uint64, n)
	layout := computeCommandLayout(b.CommandKinds, b.CommandPayload)

	for i := 0; i < n; i++ {
		h := newFNV1a64()

		if i < len(b.WorldTransforms) {
			for _, v := range b.WorldTransforms[i].Elements {
				h.mixF32(v)
			}
		}

		if i < len(b.BoundsSpheres) {
			s := b.BoundsSpheres[i]
			for _, v := range s.Center {
				h.mixF32(v)
			}
			h.mixF32(s.Radius)
		}
		boxValid := i < len(b.BoundsBoxValid) && b.BoundsBoxValid[i] && i < len(b.BoundsBoxes)
		if boxValid {
			box := b.BoundsBoxes[i]
			for _, v := range box.Min {
				h.mixF32(v)
			}
			for _, v := range box.Max {
				h.mixF32(v)
			}
		} else {
			h.mixU32(absentBoundsSentinel)
		}

		if i < len(b.Layers) {
			h.mixU32(b.Layers[i])
		}
		if i < len(b.ZValues) {
			h.mixF32(b.ZValues[i])
		}
		if i < len(b.MaterialIDs) {
			h.mixU32(b.MaterialIDs[i])
		}
		if i < len(b.PipelineFlags) {
			h.mixU32(b.PipelineFlags[i])
		}
		if i < len(b.Visibility) {
			h.mixBool(b.Visibility[i])
		}

		if i < len(b.CommandOffsets) && i < len(b.CommandCounts) {
			mixDrawableCommands(&h, b, layout, int(b.CommandOffsets[i]), int(b.CommandCounts[i]))
		}

		if i < len(b.ClipHeadIndices) {
			h.mixI32(b.ClipHeadIndices[i])
			h.mixClipChain(b.ClipNodes, b.ClipHeadIndices[i])
		}

		if i < len(b.AuthoringMap) {
			h.mixAuthoringEntry(b.AuthoringMap[i])
		}

		if len(b.FontAssets) > 0 && i < len(b.DrawableIDs) {
			id := b.DrawableIDs[i]
			for _, asset := range b.FontAssets {
				if asset.DrawableID != id {
					continue
				}
				if asset.ResourceRoot != "" {
					h.mixString(asset.ResourceRoot)
				}
				h.mixU64(asset.Revision)
				h.mixU64(asset.Fingerprint)
			}
		}

		if layout.truncated {
			h.mixU32(truncatedCommandSentinel)
		}

		out[i] = h.value
	}
	return out
}

func mixDrawableCommands(h *fnv1a64, b *DrawableBucket, layout commandLayout, offset, count int) {
	for c := 0; c < count; c++ {
		idx := offset + c
		if idx >= len(b.CommandKinds) {
			h.mixU32(commandOverrunSentinel)
			return
		}
		kind := b.CommandKinds[idx]
		h.mixU32(uint32(kind))

		size := payloadSizeBytes(kind)
		payloadOffset := len(b.CommandPayload)
		if idx < len(layout.offsets) {
			payloadOffset = layout.offsets[idx]
		}
		available := 0
		var span []byte
		if payloadOffset < len(b.CommandPayload) {
			available = size
			if available > len(b.CommandPayload)-payloadOffset {
				available = len(b.CommandPayload) - payloadOffset
			}
			span = b.CommandPayload[payloadOffset : payloadOffset+available]
		}
		if len(span) > 0 {
			h.mixBytes(span)
			if kind == CommandStroke && len(span) >= 4 {
				mixStrokeExtras(h, b, span)
			}
			if kind == CommandTextGlyph && len(span) >= 12 {
				mixGlyphExtras(h, b, span)
			}
		}
		if available < size {
			h.mixU32(uint32(size - available))
		}
	}
}

func mixStrokeExtras(h *fnv1a64, b *DrawableBucket, span []byte) {
	thickness := math.Float32frombits(binary.LittleEndian.Uint32(span[0:4]))
	h.mixF32(thickness)
	if len(span) < 12 {
		return
	}
	pointOffset := binary.LittleEndian.Uint32(span[4:8])
	pointCount := binary.LittleEndian.Uint32(span[8:12])
	end := int(pointOffset) + int(pointCount)
	if end <= len(b.StrokePoints) {
		for _, pt := range b.StrokePoints[pointOffset:end] {
			h.mixF32(pt.X)
			h.mixF32(pt.Y)
		}
	} else {
		h.mixU32(strokeOverrunSentinel)
	}
}

func mixGlyphExtras(h *fnv1a64, b *DrawableBucket, span []byte) {
	atlasFingerprint := binary.LittleEndian.Uint64(span[0:8])
	flags := binary.LittleEndian.Uint32(span[8:12])
	h.mixU64(atlasFingerprint)
	h.mixU32(flags)
	if len(span) < 16 {
		return
	}
	glyphOffset := binary.LittleEndian.Uint32(span[12:16])
	glyphCount := uint32(0)
	if len(span) >= 20 {
		glyphCount = binary.LittleEndian.Uint32(span[16:20])
	}
	end := int(glyphOffset) + int(glyphCount)
	if end <= len(b.GlyphVertices) {
		for _, v := range b.GlyphVertices[glyphOffset:end] {
			h.mixF32(v.MinX)
			h.mixF32(v.MinY)
			h.mixF32(v.MaxX)
			h.mixF32(v.MaxY)
			h.mixF32(v.U0)
			h.mixF32(v.V0)
			h.mixF32(v.U1)
			h.mixF32(v.V1)
		}
	} else {
		h.mixU32(glyphOverrunSentinel)
	}
}
