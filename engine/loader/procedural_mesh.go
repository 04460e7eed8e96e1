package loader

import (
	"slices"

	"github.com/Carmen-Shannon/oxy-mdm/common"
	"github.com/Carmen-Shannon/oxy-mdm/engine/model"
	"github.com/Carmen-Shannon/oxy-mdm/engine/skeleton"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// minLodPasses is the number of ring segments kept at the lowest detail; fewer would flatten the tubes.
const minLodPasses = 3

// surfaceBones lists the bones skinned by each generated surface.
var surfaceBones = []struct {
	name  string
	bones []int32
}{
	{name: "upper", bones: []int32{boneSpine, boneChest, boneNeck, boneHead, boneUpperArmL, boneForearmL, boneUpperArmR, boneForearmR}},
	{name: "lower", bones: []int32{bonePelvis, boneThighL, boneCalfL, boneThighR, boneCalfR}},
}

// tube is the rest-pose frame of one bone's limb cylinder.
type tube struct {
	origin         mgl32.Vec3
	dir, left, up  mgl32.Vec3
	length, radius float32
}

func restTubes(r Recipe, rest []skeleton.Bone) []tube {
	tubes := make([]tube, len(rest))
	for i := range rest {
		_, _, length := restTube(int32(i))
		tubes[i] = tube{
			origin: rest[i].Translation,
			dir:    rest[i].Matrix[0],
			left:   rest[i].Matrix[1],
			up:     rest[i].Matrix[2],
			length: length * r.Scale,
			radius: humanoid[i].radius * r.Scale,
		}
	}
	return tubes
}

// segmentOrder orders the ring segments coarse to fine: 0, then halves, then quarters, and so on.
// Dropping segments from the end of this order keeps the remaining ones spread around the ring.
func segmentOrder(n int) []int {
	order := make([]int, 0, n)
	seen := make([]bool, n)
	for step := n; step >= 1; step /= 2 {
		for s := 0; s < n; s += step {
			if !seen[s] {
				seen[s] = true
				order = append(order, s)
			}
		}
	}
	for s := range n {
		if !seen[s] {
			order = append(order, s)
		}
	}
	return order
}

func buildSurfaces(r Recipe, rest []skeleton.Bone) []*model.Surface {
	tubes := restTubes(r, rest)
	out := make([]*model.Surface, len(surfaceBones))
	for i, sb := range surfaceBones {
		out[i] = buildSurface(sb.name, sb.bones, tubes, rest, r)
	}
	return out
}

// buildSurface generates the tubes of the given bones. Vertices are emitted one segment pass at a
// time in segmentOrder, so every vertex collapses into one emitted before it: a later segment
// into the nearest earlier segment of its ring, the first segment into the previous ring.
func buildSurface(name string, bones []int32, tubes []tube, rest []skeleton.Bone, r Recipe) *model.Surface {
	segs, rings, nb := r.Segments, r.Rings, len(bones)
	order := segmentOrder(segs)
	pass := make([]int, segs)
	for k, s := range order {
		pass[s] = k
	}
	index := func(k, bi, ring int) int32 {
		return int32((k*nb+bi)*rings + ring)
	}

	numVerts := segs * nb * rings
	verts := make([]model.Vertex, numVerts)
	collapse := make([]int32, numVerts)
	for k, s := range order {
		theta := 2 * math32.Pi * float32(s) / float32(segs)
		sin, cos := math32.Sincos(theta)
		for bi, b := range bones {
			tb := &tubes[b]
			normal := tb.left.Mul(cos).Add(tb.up.Mul(sin))
			for ring := range rings {
				v := float32(ring) / float32(rings-1)
				pos := tb.origin.Add(tb.dir.Mul(tb.length * v)).Add(normal.Mul(tb.radius))

				idx := index(k, bi, ring)
				verts[idx] = skinVertex(b, ring == 0, pos, normal, tb.dir, rest)
				verts[idx].TexCoords = mgl32.Vec2{float32(s) / float32(segs), v}

				switch {
				case k > 0:
					collapse[idx] = index(pass[nearestSegment(s, order[:k], segs)], bi, ring)
				case ring > 0:
					collapse[idx] = index(0, bi, ring-1)
				case bi > 0:
					collapse[idx] = index(0, bi-1, rings-1)
				}
			}
		}
	}

	var tris []model.Triangle
	for bi := range bones {
		for ring := 0; ring < rings-1; ring++ {
			for s := range segs {
				s1 := (s + 1) % segs
				a := index(pass[s], bi, ring)
				b := index(pass[s1], bi, ring)
				c := index(pass[s1], bi, ring+1)
				d := index(pass[s], bi, ring+1)
				tris = append(tris, model.Triangle{a, b, c}, model.Triangle{a, c, d})
			}
		}
	}

	return &model.Surface{
		Name:           name,
		Vertices:       verts,
		Triangles:      tris,
		CollapseMap:    collapse,
		MinLod:         min(minLodPasses, segs) * nb * rings,
		BoneReferences: boneReferences(bones),
	}
}

// nearestSegment returns the segment of kept closest to s around a ring of n segments.
func nearestSegment(s int, kept []int, n int) int {
	best, bestDist := kept[0], n
	for _, k := range kept {
		d := s - k
		if d < 0 {
			d = -d
		}
		d = min(d, n-d)
		if d < bestDist {
			best, bestDist = k, d
		}
	}
	return best
}

// skinVertex binds pos to bone b, shared half and half with b's parent on the joint ring.
// Offsets and vectors are stored in bone space so the rest pose skins back to pos.
func skinVertex(b int32, joint bool, pos, normal, dir mgl32.Vec3, rest []skeleton.Bone) model.Vertex {
	inv := rest[b].Matrix.Transpose()
	vert := model.Vertex{
		Normal:   inv.Transform(normal),
		Tangent:  inv.Transform(dir),
		Binormal: inv.Transform(normal.Cross(dir)),
	}

	parent := humanoid[b].parent
	if joint && parent >= 0 {
		vert.Weights = []model.Weight{bindWeight(parent, 0.5, pos, rest), bindWeight(b, 0.5, pos, rest)}
	} else {
		vert.Weights = []model.Weight{bindWeight(b, 1, pos, rest)}
	}
	return vert
}

func bindWeight(b int32, w float32, pos mgl32.Vec3, rest []skeleton.Bone) model.Weight {
	inv := rest[b].Matrix.Transpose()
	return model.Weight{
		BoneIndex:  b,
		BoneWeight: w,
		Offset:     inv.Transform(pos.Sub(rest[b].Translation)),
	}
}

// boneReferences returns the skinned bones and their ancestors in ascending order.
func boneReferences(bones []int32) []int32 {
	var refs []int32
	for _, b := range bones {
		for _, a := range chain(b) {
			if !slices.Contains(refs, a) {
				refs = append(refs, a)
			}
		}
	}
	slices.Sort(refs)
	return refs
}

// buildTags places attachment points at the tips of the head, the right hand and both feet.
// Each tag's axis matches the model axes in the rest pose.
func buildTags(r Recipe, rest []skeleton.Bone) []model.Tag {
	tubes := restTubes(r, rest)
	defs := []struct {
		name string
		bone int32
	}{
		{"tag_head", boneHead},
		{"tag_weapon", boneForearmR},
		{"tag_foot_left", boneCalfL},
		{"tag_foot_right", boneCalfR},
	}

	tags := make([]model.Tag, len(defs))
	for i, d := range defs {
		inv := rest[d.bone].Matrix.Transpose()
		ident := common.IdentityAxis()
		var axis common.Axis
		for j := range axis {
			axis[j] = inv.Transform(ident[j])
		}
		tags[i] = model.Tag{
			Name:           d.name,
			BoneIndex:      d.bone,
			Offset:         inv.Transform(tubes[d.bone].dir.Mul(tubes[d.bone].length)),
			Axis:           axis,
			BoneReferences: chain(d.bone),
		}
	}
	return tags
}
