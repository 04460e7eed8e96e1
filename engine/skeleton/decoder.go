package skeleton

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-mdm/common"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// FuncTableShift is the default quantization shift: 16-bit angles are looked up in a table of
// 1<<(16-FuncTableShift) entries.
const FuncTableShift = 4

const (
	pitch = 0
	yaw   = 1
	roll  = 2
)

// SinTable is an immutable sine lookup table indexed by 16-bit integer angles ("ingles").
// It is safe to share between goroutines.
type SinTable struct {
	shift   uint
	mask    int32
	quarter int32
	values  []float32
}

// DefaultSinTable is the table built with FuncTableShift.
var DefaultSinTable = NewSinTable(FuncTableShift)

// NewSinTable builds a sine table for the given quantization shift.
// Shifts above 14 leave too few entries for a quarter-period offset and fall back to FuncTableShift.
//
// Parameters:
//   - shift: the number of low angle bits discarded by a lookup
//
// Returns:
//   - *SinTable: the table
func NewSinTable(shift uint) *SinTable {
	if shift > 14 {
		shift = FuncTableShift
	}
	size := int32(1) << (16 - shift)
	t := &SinTable{
		shift:   shift,
		mask:    size - 1,
		quarter: size / 4,
		values:  make([]float32, size),
	}
	for i := range t.values {
		t.values[i] = math32.Sin(float32(i) * 2 * math32.Pi / float32(size))
	}
	return t
}

var (
	sinTablesMu sync.Mutex
	sinTables   = map[uint]*SinTable{FuncTableShift: DefaultSinTable}
)

// SinTableFor returns the shared table for a quantization shift, building it on first use.
//
// Parameters:
//   - shift: the number of low angle bits discarded by a lookup
//
// Returns:
//   - *SinTable: the table
func SinTableFor(shift uint) *SinTable {
	sinTablesMu.Lock()
	defer sinTablesMu.Unlock()
	if t, ok := sinTables[shift]; ok {
		return t
	}
	t := NewSinTable(shift)
	sinTables[shift] = t
	return t
}

// Shift returns the quantization shift the table was built with.
func (t *SinTable) Shift() uint {
	return t.shift
}

// Sin looks up the sine of a 16-bit angle. Angles outside the 16-bit range wrap.
func (t *SinTable) Sin(ingle int32) float32 {
	return t.values[(ingle>>t.shift)&t.mask]
}

// Cos looks up the cosine of a 16-bit angle. Angles outside the 16-bit range wrap.
func (t *SinTable) Cos(ingle int32) float32 {
	return t.values[((ingle>>t.shift)+t.quarter)&t.mask]
}

// InglesToAxis converts pitch, yaw and roll to an orientation whose rows are the forward, left and up vectors.
//
// Parameters:
//   - ingles: pitch, yaw, roll as 16-bit angles
//
// Returns:
//   - common.Axis: the orientation
func (t *SinTable) InglesToAxis(ingles [3]int32) common.Axis {
	sy, cy := t.Sin(ingles[yaw]), t.Cos(ingles[yaw])
	sp, cp := t.Sin(ingles[pitch]), t.Cos(ingles[pitch])
	sr, cr := t.Sin(ingles[roll]), t.Cos(ingles[roll])

	srsp := sr * sp
	crsp := cr * sp
	return common.Axis{
		{cp * cy, cp * sy, -sp},
		{srsp*cy - cr*sy, srsp*sy + cr*cy, sr * cp},
		{crsp*cy + sr*sy, crsp*sy - sr*cy, cr * cp},
	}
}

// ForwardFromOffset decodes the pitch/yaw offset angles of a keyframe bone into a unit direction.
//
// Parameters:
//   - ofs: pitch and yaw as 16-bit angles
//
// Returns:
//   - mgl32.Vec3: the direction from the parent to the bone
func (t *SinTable) ForwardFromOffset(ofs [2]int16) mgl32.Vec3 {
	sp, cp := t.Sin(int32(ofs[pitch])), t.Cos(int32(ofs[pitch]))
	sy, cy := t.Sin(int32(ofs[yaw])), t.Cos(int32(ofs[yaw]))
	return mgl32.Vec3{cp * cy, cp * sy, -sp}
}

// Wrap16 maps an angle difference into [-32768, 32767], the shortest rotational path.
func Wrap16(d int32) int32 {
	d &= 0xffff
	if d > 32767 {
		d -= 65536
	}
	return d
}

// InterpolateIngle moves cur towards old by backLerp along the shortest path.
//
// Parameters:
//   - cur: the angle of the new keyframe
//   - old: the angle of the previous keyframe
//   - backLerp: 0 stays at cur, 1 reaches old
//
// Returns:
//   - int32: the interpolated angle, possibly outside the 16-bit range
func InterpolateIngle(cur, old int32, backLerp float32) int32 {
	return int32(float32(cur) - backLerp*float32(Wrap16(cur-old)))
}

// BlendIngle moves base towards target by weight along the shortest path.
//
// Parameters:
//   - base: the legs angle
//   - target: the torso angle
//   - weight: the bone's torso weight
//
// Returns:
//   - int32: the blended angle, possibly outside the 16-bit range
func BlendIngle(base, target int32, weight float32) int32 {
	return int32(float32(base) + weight*float32(Wrap16(target-base)))
}

// slerpNormal blends two unit vectors linearly and renormalizes the result.
// A zero-length blend is returned unnormalized.
func slerpNormal(from, to mgl32.Vec3, t float32) mgl32.Vec3 {
	v := from.Mul(1 - t).Add(to.Mul(t))
	l := v.Len()
	if l == 0 {
		return v
	}
	return v.Mul(1 / l)
}
