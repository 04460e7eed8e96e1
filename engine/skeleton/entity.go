package skeleton

import (
	"github.com/Carmen-Shannon/oxy-mdm/common"
	"github.com/Carmen-Shannon/oxy-mdm/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// Entity is the per-entity render state consumed by the solver, the LOD selector and the skinning pass.
// The legs stream drives the hierarchy; the torso stream is blended in per bone by torso weight.
type Entity struct {
	// Model is the mesh being rendered.
	Model model.Model

	// Origin is the entity position in world space.
	Origin mgl32.Vec3

	// Frame and OldFrame select the legs keyframes in FrameModel and OldFrameModel.
	Frame, OldFrame           int32
	FrameModel, OldFrameModel *model.Skeleton
	// BackLerp is the legs interpolation weight towards OldFrame.
	BackLerp float32

	// TorsoFrame and OldTorsoFrame select the torso keyframes in TorsoFrameModel and OldTorsoFrameModel.
	TorsoFrame, OldTorsoFrame           int32
	TorsoFrameModel, OldTorsoFrameModel *model.Skeleton
	// TorsoBackLerp is the torso interpolation weight towards OldTorsoFrame.
	TorsoBackLerp float32

	// Flags holds the render switches.
	Flags common.RenderFlags

	// TorsoAxis is the torso orientation relative to the legs.
	TorsoAxis common.Axis

	// LodScale scales the projected radius of this entity; 0 is treated as 1.
	LodScale float32
}

// SetLegs points both legs keyframe slots at the same skeleton.
//
// Parameters:
//   - skel: the animation asset
//   - frame: the new keyframe
//   - oldFrame: the previous keyframe
//   - backLerp: the interpolation weight towards oldFrame
func (e *Entity) SetLegs(skel *model.Skeleton, frame, oldFrame int32, backLerp float32) {
	e.FrameModel, e.OldFrameModel = skel, skel
	e.Frame, e.OldFrame = frame, oldFrame
	e.BackLerp = backLerp
}

// SetTorso points both torso keyframe slots at the same skeleton.
//
// Parameters:
//   - skel: the animation asset
//   - frame: the new keyframe
//   - oldFrame: the previous keyframe
//   - backLerp: the interpolation weight towards oldFrame
func (e *Entity) SetTorso(skel *model.Skeleton, frame, oldFrame int32, backLerp float32) {
	e.TorsoFrameModel, e.OldTorsoFrameModel = skel, skel
	e.TorsoFrame, e.OldTorsoFrame = frame, oldFrame
	e.TorsoBackLerp = backLerp
}

// Snapshot captures every field the solved bones depend on.
func (e *Entity) Snapshot() Snapshot {
	return Snapshot{
		Model:              e.Model,
		Frame:              e.Frame,
		OldFrame:           e.OldFrame,
		FrameModel:         e.FrameModel,
		OldFrameModel:      e.OldFrameModel,
		BackLerp:           e.BackLerp,
		TorsoFrame:         e.TorsoFrame,
		OldTorsoFrame:      e.OldTorsoFrame,
		TorsoFrameModel:    e.TorsoFrameModel,
		OldTorsoFrameModel: e.OldTorsoFrameModel,
		TorsoBackLerp:      e.TorsoBackLerp,
		Flags:              e.Flags,
		TorsoAxis:          e.TorsoAxis,
	}
}
