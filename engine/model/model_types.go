package model

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-mdm/common"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrMalformedSkeleton is returned by NewSkeleton when the decoded arrays do not line up.
var ErrMalformedSkeleton = errors.New("model: malformed skeleton")

// --- Skeleton Types ---

// BoneInfo describes one bone of a skeleton asset. It is immutable after load.
type BoneInfo struct {
	// Name is the bone's identifier (for debugging and tag lookup).
	Name string

	// Parent is the index of the parent bone, -1 for the root.
	Parent int32

	// ParentDist is the distance from the parent along the bone's decoded forward direction.
	ParentDist float32

	// TorsoWeight is the share of the bone driven by the torso stream, in [0, 1].
	// 0 is a pure legs bone, 1 a pure torso bone.
	TorsoWeight float32

	// Flags holds asset-defined bone flags; the solver does not interpret them.
	Flags uint32
}

// CompressedBone is the quantized pose of one bone in one keyframe.
type CompressedBone struct {
	// Angles holds pitch, yaw and roll as 16-bit angles; the fourth entry is padding.
	Angles [4]int16

	// OfsAngles holds the pitch and yaw of the direction from the parent to this bone.
	OfsAngles [2]int16
}

// FrameHeader is the per-keyframe data shared by every bone of the frame.
type FrameHeader struct {
	// Bounds is the axis-aligned bounding box of the posed model.
	Bounds [2]mgl32.Vec3

	// LocalOrigin is the origin of the bounding sphere.
	LocalOrigin mgl32.Vec3

	// Radius is the bounding sphere radius.
	Radius float32

	// ParentOffset is the root bone's translation for this frame.
	ParentOffset mgl32.Vec3
}

// Skeleton is a decoded animation asset: the bone hierarchy plus every keyframe.
// Keyframe bones are stored flat with a stride of len(Bones).
type Skeleton struct {
	name        string
	bones       []BoneInfo
	torsoParent int32
	frames      []FrameHeader
	frameBones  []CompressedBone
}

// NewSkeleton validates the decoded arrays and wraps them in a Skeleton.
//
// Parameters:
//   - name: the asset identifier
//   - bones: the bone hierarchy; each parent index must be lower than its child's
//   - torsoParent: the bone used as the pivot of the torso correction, or -1
//   - frames: the keyframe headers
//   - frameBones: len(frames)*len(bones) compressed bones, frame-major
//
// Returns:
//   - *Skeleton: the skeleton
//   - error: ErrMalformedSkeleton (wrapped) if the arrays are inconsistent
func NewSkeleton(name string, bones []BoneInfo, torsoParent int32, frames []FrameHeader, frameBones []CompressedBone) (*Skeleton, error) {
	if len(frameBones) != len(frames)*len(bones) {
		return nil, fmt.Errorf("%w: %s has %d frame bones, want %d", ErrMalformedSkeleton, name, len(frameBones), len(frames)*len(bones))
	}
	if torsoParent >= int32(len(bones)) {
		return nil, fmt.Errorf("%w: %s torso parent %d out of range", ErrMalformedSkeleton, name, torsoParent)
	}
	for i, b := range bones {
		if b.Parent >= int32(i) {
			return nil, fmt.Errorf("%w: %s bone %d (%s) has parent %d", ErrMalformedSkeleton, name, i, b.Name, b.Parent)
		}
	}
	return &Skeleton{
		name:        name,
		bones:       bones,
		torsoParent: torsoParent,
		frames:      frames,
		frameBones:  frameBones,
	}, nil
}

// Name returns the asset identifier.
func (s *Skeleton) Name() string {
	return s.name
}

// NumBones returns the number of bones in the hierarchy.
func (s *Skeleton) NumBones() int {
	return len(s.bones)
}

// NumFrames returns the number of keyframes.
func (s *Skeleton) NumFrames() int {
	return len(s.frames)
}

// Bones returns the bone hierarchy. The slice must not be modified.
func (s *Skeleton) Bones() []BoneInfo {
	return s.bones
}

// TorsoParent returns the pivot bone for the torso correction, or -1.
func (s *Skeleton) TorsoParent() int32 {
	return s.torsoParent
}

// Frame looks up one keyframe.
//
// Parameters:
//   - i: the keyframe index
//
// Returns:
//   - *FrameHeader: the frame header
//   - []CompressedBone: the frame's bones, indexed by bone number
//   - bool: false if i is out of range
func (s *Skeleton) Frame(i int32) (*FrameHeader, []CompressedBone, bool) {
	if i < 0 || int(i) >= len(s.frames) {
		return nil, nil, false
	}
	n := int32(len(s.bones))
	return &s.frames[i], s.frameBones[i*n : (i+1)*n], true
}

// --- Mesh Types ---

// Weight binds a vertex to a single bone.
type Weight struct {
	// BoneIndex is the influencing bone.
	BoneIndex int32

	// BoneWeight is the blend weight; weights of one vertex sum to 1.
	BoneWeight float32

	// Offset is the vertex position in the bone's local space.
	Offset mgl32.Vec3
}

// Vertex is one mesh vertex with its bone bindings.
type Vertex struct {
	Normal    mgl32.Vec3
	Tangent   mgl32.Vec3
	Binormal  mgl32.Vec3
	TexCoords mgl32.Vec2

	// Weights lists the bones influencing this vertex, in asset order.
	Weights []Weight
}

// Triangle holds three vertex indices local to its surface.
type Triangle [3]int32

// Surface is one skinned mesh section. Vertices are ordered so that collapsing from the end
// preserves topology.
type Surface struct {
	// Name is the surface identifier.
	Name string

	// Vertices are the surface's vertices.
	Vertices []Vertex

	// Triangles are the full-detail triangles.
	Triangles []Triangle

	// CollapseMap maps each vertex index to the lower index it merges into when dropped.
	CollapseMap []int32

	// MinLod is the minimum number of vertices rendered at any detail level.
	MinLod int

	// BoneReferences are the bones that must be solved to skin this surface.
	BoneReferences []int32
}

// Tag is a named, bone-relative attachment point.
type Tag struct {
	// Name is the tag identifier.
	Name string

	// BoneIndex is the bone the tag is attached to.
	BoneIndex int32

	// Offset is the tag origin in the bone's local space.
	Offset mgl32.Vec3

	// Axis is the tag orientation in the bone's local space.
	Axis common.Axis

	// BoneReferences are the bones that must be solved to resolve the tag.
	BoneReferences []int32
}
