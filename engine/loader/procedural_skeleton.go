package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-mdm/common"
	"github.com/Carmen-Shannon/oxy-mdm/engine/model"
	"github.com/Carmen-Shannon/oxy-mdm/engine/skeleton"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// hipHeight is the rest height of the pelvis joint.
	hipHeight = 32
	// centerHeight is the height of the bounding sphere center, halfway up the figure.
	centerHeight = 36
	// figureRadius bounds the figure in every keyframe.
	figureRadius = 40
	// bobHeight is the vertical pelvis bounce of the walk cycle.
	bobHeight = 0.5
)

const (
	bonePelvis int32 = iota
	boneSpine
	boneChest
	boneNeck
	boneHead
	boneUpperArmL
	boneForearmL
	boneUpperArmR
	boneForearmR
	boneThighL
	boneCalfL
	boneThighR
	boneCalfR
)

// boneDef is one bone of the procedural figure. Lengths and radii are at scale 1.
type boneDef struct {
	name   string
	parent int32
	length float32 // distance from the parent joint
	pitch  float32 // direction from the parent, in degrees
	yaw    float32
	torso  float32
	radius float32
	tip    float32 // tube length of a bone without children
	swing  float32 // share of the recipe swing added to the tube pitch
	phase  float32 // walk cycle offset, in radians
}

var humanoid = []boneDef{
	bonePelvis:    {name: "pelvis", parent: -1, pitch: -90, radius: 6},
	boneSpine:     {name: "spine", parent: bonePelvis, length: 8, pitch: -90, torso: 0.5, radius: 5.5, swing: 0.1},
	boneChest:     {name: "chest", parent: boneSpine, length: 10, pitch: -90, torso: 1, radius: 6.5, swing: 0.1, phase: math32.Pi},
	boneNeck:      {name: "neck", parent: boneChest, length: 12, pitch: -90, torso: 1, radius: 2},
	boneHead:      {name: "head", parent: boneNeck, length: 3, pitch: -90, torso: 1, radius: 4, tip: 8, swing: 0.1},
	boneUpperArmL: {name: "upperarm_l", parent: boneChest, length: 12.8, pitch: -51, yaw: 90, torso: 1, radius: 2, swing: 1},
	boneForearmL:  {name: "forearm_l", parent: boneUpperArmL, length: 11, pitch: 90, torso: 1, radius: 1.6, tip: 10, swing: 0.5, phase: 0.5},
	boneUpperArmR: {name: "upperarm_r", parent: boneChest, length: 12.8, pitch: -51, yaw: -90, torso: 1, radius: 2, swing: 1, phase: math32.Pi},
	boneForearmR:  {name: "forearm_r", parent: boneUpperArmR, length: 11, pitch: 90, torso: 1, radius: 1.6, tip: 10, swing: 0.5, phase: math32.Pi + 0.5},
	boneThighL:    {name: "thigh_l", parent: bonePelvis, length: 4.5, pitch: 27, yaw: 90, radius: 3, swing: 1, phase: math32.Pi},
	boneCalfL:     {name: "calf_l", parent: boneThighL, length: 15, pitch: 90, radius: 2.5, tip: 14, swing: 0.6, phase: math32.Pi + 0.8},
	boneThighR:    {name: "thigh_r", parent: bonePelvis, length: 4.5, pitch: 27, yaw: -90, radius: 3, swing: 1},
	boneCalfR:     {name: "calf_r", parent: boneThighR, length: 15, pitch: 90, radius: 2.5, tip: 14, swing: 0.6, phase: 0.8},
}

// tubeChild returns the first child of b, which the bone's tube points at, or -1.
func tubeChild(b int32) int32 {
	for i, def := range humanoid {
		if def.parent == b {
			return int32(i)
		}
	}
	return -1
}

// restTube returns the direction angles and length of b's tube at scale 1.
func restTube(b int32) (pitch, yaw, length float32) {
	if c := tubeChild(b); c >= 0 {
		return humanoid[c].pitch, humanoid[c].yaw, humanoid[c].length
	}
	return humanoid[b].pitch, humanoid[b].yaw, humanoid[b].tip
}

// tubePitch returns b's tube pitch at walk cycle phase t.
func tubePitch(b int32, t, swing float32) float32 {
	pitch, _, _ := restTube(b)
	def := &humanoid[b]
	return pitch + swing*def.swing*math32.Sin(t+def.phase)
}

// chain returns b and its ancestors, root first.
func chain(b int32) []int32 {
	var out []int32
	for ; b >= 0; b = humanoid[b].parent {
		out = append([]int32{b}, out...)
	}
	return out
}

// buildSkeleton generates the walk cycle. Each bone's orientation follows its tube and the
// tube child is offset along the parent's animated tube, so joints stay connected.
func buildSkeleton(r Recipe) (*model.Skeleton, error) {
	bones := make([]model.BoneInfo, len(humanoid))
	for i, def := range humanoid {
		bones[i] = model.BoneInfo{
			Name:        def.name,
			Parent:      def.parent,
			ParentDist:  def.length * r.Scale,
			TorsoWeight: def.torso,
		}
	}

	frames := make([]model.FrameHeader, r.Frames)
	frameBones := make([]model.CompressedBone, r.Frames*len(humanoid))
	extent := mgl32.Vec3{figureRadius, figureRadius, figureRadius}.Mul(r.Scale)
	for f := range frames {
		t := 2 * math32.Pi * float32(f) / float32(r.Frames)

		origin := mgl32.Vec3{0, 0, (hipHeight + bobHeight*math32.Sin(2*t)) * r.Scale}
		center := mgl32.Vec3{0, 0, centerHeight * r.Scale}
		frames[f] = model.FrameHeader{
			Bounds:       [2]mgl32.Vec3{center.Sub(extent), center.Add(extent)},
			LocalOrigin:  center,
			Radius:       figureRadius * r.Scale,
			ParentOffset: origin,
		}

		fb := frameBones[f*len(humanoid) : (f+1)*len(humanoid)]
		for i, def := range humanoid {
			b := int32(i)
			_, yaw, _ := restTube(b)
			fb[i].Angles = [4]int16{
				common.AngleToShort(tubePitch(b, t, r.Swing)),
				common.AngleToShort(yaw),
			}

			ofsPitch, ofsYaw := def.pitch, def.yaw
			if def.parent >= 0 && tubeChild(def.parent) == b {
				ofsPitch = tubePitch(def.parent, t, r.Swing)
				_, ofsYaw, _ = restTube(def.parent)
			}
			fb[i].OfsAngles = [2]int16{common.AngleToShort(ofsPitch), common.AngleToShort(ofsYaw)}
		}
	}

	return model.NewSkeleton(r.Name, bones, bonePelvis, frames, frameBones)
}

// restPose solves every bone of the first keyframe.
func restPose(skel *model.Skeleton) ([]skeleton.Bone, error) {
	e := skeleton.Entity{TorsoAxis: common.IdentityAxis()}
	e.SetLegs(skel, 0, 0, 0)
	e.SetTorso(skel, 0, 0, 0)

	all := make([]int32, skel.NumBones())
	for i := range all {
		all[i] = int32(i)
	}
	s := skeleton.NewSolver()
	if !s.CalcBones(&e, all) {
		return nil, fmt.Errorf("%w: %s rest pose did not solve", ErrInvalidRecipe, skel.Name())
	}
	return append([]skeleton.Bone(nil), s.Bones()...), nil
}
