package skeleton

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-mdm/common"
	"github.com/Carmen-Shannon/oxy-mdm/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// MaxBones is the hard upper bound on skeleton size.
const MaxBones = 128

// Bone is a solved bone transform relative to the skeleton root.
type Bone struct {
	Matrix      common.Axis
	Translation mgl32.Vec3
}

// solver is the implementation of the Solver interface.
type solver struct {
	mu       *sync.Mutex
	table    *SinTable
	maxBones int
	logStats bool
	observer func(bone int32)

	numBones int
	bones    []Bone
	raw      []Bone
	old      []Bone
	valid    []bool
	fresh    []bool

	torsoParentOffset mgl32.Vec3

	snapshot    Snapshot
	hasSnapshot bool
	stats       Stats

	pass pass
}

// pass holds the keyframes and interpolation fractions resolved for the current solve.
type pass struct {
	info        []model.BoneInfo
	torsoParent int32

	frame, oldFrame               *model.FrameHeader
	bones, oldBones               []model.CompressedBone
	torsoBones, oldTorsoBones     []model.CompressedBone
	backLerp, frontLerp           float32
	torsoBackLerp, torsoFrontLerp float32
}

// Solver defines the interface for a skeleton solve context.
// A Solver owns the solved bones, their validity flags and the snapshot of the last solved entity.
// Solves for an entity whose snapshot is unchanged reuse every bone solved earlier in the same
// generation, so the surfaces of one mesh share the work. A Solver should be owned by one entity
// (or one worker); all methods are serialized.
type Solver interface {
	// CalcBones solves the listed bones, and any unsolved ancestors, for the entity's current pose.
	// A missing keyframe model or out-of-range frame aborts silently, leaving the bones untouched.
	//
	// Parameters:
	//   - e: the entity render state
	//   - boneList: the bones to solve; out-of-range indices are skipped
	//
	// Returns:
	//   - bool: false if the solve was aborted
	CalcBones(e *Entity, boneList []int32) bool

	// Bones returns the solved bones of the last pass, indexed by bone number.
	// The slice is owned by the Solver and is overwritten by the next solve.
	//
	// Returns:
	//   - []Bone: the bones
	Bones() []Bone

	// Bone returns one solved bone.
	//
	// Parameters:
	//   - index: the bone number
	//
	// Returns:
	//   - Bone: the bone
	//   - bool: false if index is out of range
	Bone(index int32) (Bone, bool)

	// BoneTag solves a tag's bones and returns the tag's orientation in model space.
	//
	// Parameters:
	//   - e: the entity render state
	//   - startIndex: the first tag index to search from
	//   - name: the tag name
	//
	// Returns:
	//   - common.Orientation: the tag orientation, zeroed when not found
	//   - int: the tag index, or -1 when not found
	BoneTag(e *Entity, startIndex int, name string) (common.Orientation, int)

	// Invalidate forces the next solve to recompute every bone.
	Invalidate()

	// RecordSurface adds one drawn surface to the detail reduction stats of the current generation.
	//
	// Parameters:
	//   - renderedVerts, totalVerts: the vertex counts after and before reduction
	//   - renderedTris, totalTris: the triangle counts after and before reduction
	RecordSurface(renderedVerts, totalVerts, renderedTris, totalTris int)

	// Stats returns the detail reduction stats of the current generation.
	//
	// Returns:
	//   - Stats: the counters
	Stats() Stats
}

var _ Solver = &solver{}

// NewSolver creates a new Solver with the given options.
//
// Parameters:
//   - options: variadic list of SolverBuilderOption functions to configure the solver
//
// Returns:
//   - Solver: the newly created solver
func NewSolver(options ...SolverBuilderOption) Solver {
	s := &solver{
		mu:       &sync.Mutex{},
		table:    DefaultSinTable,
		maxBones: MaxBones,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *solver) CalcBones(e *Entity, boneList []int32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calcBones(e, boneList)
}

func (s *solver) Bones() []Bone {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bones[:s.numBones]
}

func (s *solver) Bone(index int32) (Bone, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || int(index) >= s.numBones {
		return Bone{}, false
	}
	return s.bones[index], true
}

func (s *solver) calcBones(e *Entity, boneList []int32) bool {
	if !s.begin(e) {
		return false
	}

	s.stillValid(e)
	clear(s.fresh)

	single := s.pass.backLerp == 0 && s.pass.torsoBackLerp == 0
	for _, b := range boneList {
		if b < 0 || int(b) >= s.numBones {
			continue
		}
		if s.valid[b] {
			s.bones[b] = s.raw[b]
			continue
		}
		s.solve(b, single, 0)
	}

	s.applyTorsoCorrection(e)
	copy(s.old, s.bones[:s.numBones])
	return true
}

// begin resolves the four keyframes of the entity and sizes the bone arrays.
func (s *solver) begin(e *Entity) bool {
	if e == nil || e.FrameModel == nil || e.OldFrameModel == nil || e.TorsoFrameModel == nil || e.OldTorsoFrameModel == nil {
		return false
	}

	p := &s.pass
	var ok bool
	if p.frame, p.bones, ok = e.FrameModel.Frame(e.Frame); !ok {
		return false
	}
	if p.oldFrame, p.oldBones, ok = e.OldFrameModel.Frame(e.OldFrame); !ok {
		return false
	}
	if _, p.torsoBones, ok = e.TorsoFrameModel.Frame(e.TorsoFrame); !ok {
		return false
	}
	if _, p.oldTorsoBones, ok = e.OldTorsoFrameModel.Frame(e.OldTorsoFrame); !ok {
		return false
	}

	n := e.FrameModel.NumBones()
	if n > s.maxBones || len(p.oldBones) < n || len(p.torsoBones) < n || len(p.oldTorsoBones) < n {
		return false
	}
	p.info = e.FrameModel.Bones()
	p.torsoParent = e.FrameModel.TorsoParent()
	s.ensure(n)

	if e.OldFrame == e.Frame && e.OldFrameModel == e.FrameModel {
		p.backLerp = 0
	} else {
		p.backLerp = e.BackLerp
	}
	p.frontLerp = 1 - p.backLerp

	if e.OldTorsoFrame == e.TorsoFrame && e.OldTorsoFrameModel == e.TorsoFrameModel {
		p.torsoBackLerp = 0
	} else {
		p.torsoBackLerp = e.TorsoBackLerp
	}
	p.torsoFrontLerp = 1 - p.torsoBackLerp
	return true
}

// ensure grows the bone arrays to hold n bones. Arrays never shrink, so steady-state solves do not allocate.
func (s *solver) ensure(n int) {
	s.numBones = n
	if len(s.bones) >= n {
		return
	}
	s.bones = append(s.bones, make([]Bone, n-len(s.bones))...)
	s.raw = append(s.raw, make([]Bone, n-len(s.raw))...)
	s.old = append(s.old, make([]Bone, n-len(s.old))...)
	s.valid = append(s.valid, make([]bool, n-len(s.valid))...)
	s.fresh = append(s.fresh, make([]bool, n-len(s.fresh))...)
}

// solve computes bone b after making sure its ancestors have been solved in this generation.
// depth bounds the ancestor walk so a malformed hierarchy cannot recurse forever.
func (s *solver) solve(b int32, single bool, depth int) {
	parent := s.pass.info[b].Parent
	if parent >= 0 && int(parent) < s.numBones && !s.valid[parent] && !s.fresh[parent] && depth < s.numBones {
		s.solve(parent, single, depth+1)
	}

	if single {
		s.calcBone(b)
	} else {
		s.calcBoneLerp(b)
	}
}

// calcBone solves b from the current legs and torso keyframes only.
func (s *solver) calcBone(b int32) {
	if b < 0 || int(b) >= s.numBones {
		return
	}
	p := &s.pass
	info := &p.info[b]
	w := info.TorsoWeight
	isTorso := w != 0
	fullTorso := w == 1

	legs, torso := &p.bones[b], &p.torsoBones[b]
	src := legs
	if fullTorso {
		src = torso
	}

	var ingles [3]int32
	for j := range ingles {
		ingles[j] = int32(src.Angles[j])
		if isTorso && !fullTorso {
			ingles[j] = BlendIngle(ingles[j], int32(torso.Angles[j]), w)
		}
	}

	var bone Bone
	bone.Matrix = s.table.InglesToAxis(ingles)

	if info.Parent >= 0 {
		dir := s.table.ForwardFromOffset(src.OfsAngles)
		if isTorso && !fullTorso {
			dir = slerpNormal(dir, s.table.ForwardFromOffset(torso.OfsAngles), w)
		}
		bone.Translation = s.raw[info.Parent].Translation.Add(dir.Mul(info.ParentDist))
	} else {
		bone.Translation = p.frame.ParentOffset
	}

	s.store(b, bone)
}

// calcBoneLerp solves b with each stream interpolated between its old and new keyframes.
func (s *solver) calcBoneLerp(b int32) {
	if b < 0 || int(b) >= s.numBones {
		return
	}
	p := &s.pass
	info := &p.info[b]
	w := info.TorsoWeight
	isTorso := w != 0
	fullTorso := w == 1

	legs, oldLegs := &p.bones[b], &p.oldBones[b]
	torso, oldTorso := &p.torsoBones[b], &p.oldTorsoBones[b]

	var ingles [3]int32
	for j := range ingles {
		if fullTorso {
			ingles[j] = InterpolateIngle(int32(torso.Angles[j]), int32(oldTorso.Angles[j]), p.torsoBackLerp)
			continue
		}
		ingles[j] = InterpolateIngle(int32(legs.Angles[j]), int32(oldLegs.Angles[j]), p.backLerp)
		if isTorso {
			t := InterpolateIngle(int32(torso.Angles[j]), int32(oldTorso.Angles[j]), p.torsoBackLerp)
			ingles[j] = BlendIngle(ingles[j], t, w)
		}
	}

	var bone Bone
	bone.Matrix = s.table.InglesToAxis(ingles)

	if info.Parent >= 0 {
		var dir mgl32.Vec3
		if fullTorso {
			dir = slerpNormal(s.table.ForwardFromOffset(oldTorso.OfsAngles), s.table.ForwardFromOffset(torso.OfsAngles), p.torsoFrontLerp)
		} else {
			dir = slerpNormal(s.table.ForwardFromOffset(oldLegs.OfsAngles), s.table.ForwardFromOffset(legs.OfsAngles), p.frontLerp)
			if isTorso {
				torsoDir := slerpNormal(s.table.ForwardFromOffset(oldTorso.OfsAngles), s.table.ForwardFromOffset(torso.OfsAngles), p.torsoFrontLerp)
				dir = slerpNormal(dir, torsoDir, w)
			}
		}
		bone.Translation = s.raw[info.Parent].Translation.Add(dir.Mul(info.ParentDist))
	} else {
		bone.Translation = p.frame.ParentOffset.Mul(p.frontLerp).Add(p.oldFrame.ParentOffset.Mul(p.backLerp))
	}

	s.store(b, bone)
}

// store records a freshly solved bone, before torso correction.
func (s *solver) store(b int32, bone Bone) {
	if b == s.pass.torsoParent {
		s.torsoParentOffset = bone.Translation
	}
	s.bones[b] = bone
	s.raw[b] = bone
	s.valid[b] = true
	s.fresh[b] = true
	if s.observer != nil {
		s.observer(b)
	}
}
