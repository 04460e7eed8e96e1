package skeleton

import (
	"github.com/Carmen-Shannon/oxy-mdm/common"
)

func (s *solver) BoneTag(e *Entity, startIndex int, name string) (common.Orientation, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e == nil || e.Model == nil {
		return common.Orientation{}, -1
	}
	tags := e.Model.Tags()
	if startIndex < 0 || startIndex > len(tags) {
		return common.Orientation{}, -1
	}

	idx := e.Model.GetTagIndex(startIndex, name)
	if idx < 0 {
		return common.Orientation{}, -1
	}
	tag := &tags[idx]

	if !s.calcBones(e, tag.BoneReferences) {
		return common.Orientation{}, -1
	}
	if tag.BoneIndex < 0 || int(tag.BoneIndex) >= s.numBones {
		return common.Orientation{}, -1
	}
	bone := &s.bones[tag.BoneIndex]

	var out common.Orientation
	out.Origin = bone.Matrix.Transform(tag.Offset).Add(bone.Translation)
	for j := range out.Axis {
		out.Axis[j] = bone.Matrix.Transform(tag.Axis[j])
	}
	return out, idx
}
