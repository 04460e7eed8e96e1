package game_object

import (
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-mdm/common"
	"github.com/Carmen-Shannon/oxy-mdm/engine/model"
	"github.com/Carmen-Shannon/oxy-mdm/engine/renderer/animator"
	"github.com/Carmen-Shannon/oxy-mdm/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

type gameObject struct {
	mu        *sync.Mutex
	id        uint64
	enabled   atomic.Bool
	ephemeral bool
	entity    skeleton.Entity
	animator  animator.Animator
	results   []animator.DrawResult
}

// GameObject defines the interface for a scene entity: its render state (model, keyframes,
// torso orientation, flags) and the Animator that solves and skins it.
// Each GameObject owns its Animator, so objects can be prepared concurrently.
type GameObject interface {
	// ID returns the object's unique identifier.
	//
	// Returns:
	//   - uint64: the object ID
	ID() uint64

	// Enabled returns whether this object is enabled for rendering.
	//
	// Returns:
	//   - bool: true if enabled
	Enabled() bool

	// Ephemeral returns whether this object is ephemeral.
	// Ephemeral objects are prepared for one frame and then dropped by the scene.
	//
	// Returns:
	//   - bool: true if ephemeral
	Ephemeral() bool

	// Model returns the Model associated with this object, or nil if not set.
	//
	// Returns:
	//   - model.Model: the associated model or nil
	Model() model.Model

	// Animator returns the Animator associated with this object.
	//
	// Returns:
	//   - animator.Animator: the associated Animator, or nil
	Animator() animator.Animator

	// Entity returns a copy of the object's render state.
	//
	// Returns:
	//   - skeleton.Entity: the render state
	Entity() skeleton.Entity

	// UpdateEntity mutates the object's render state under the object's lock.
	//
	// Parameters:
	//   - fn: the mutation
	UpdateEntity(fn func(e *skeleton.Entity))

	// Position returns the object's world position.
	//
	// Returns:
	//   - mgl32.Vec3: the position
	Position() mgl32.Vec3

	// Prepare draws every surface of the object's model through its Animator.
	// The Animator's output is rewound first, so the results describe this frame only.
	//
	// Returns:
	//   - []animator.DrawResult: one result per surface, valid until the next Prepare
	//   - skeleton.Stats: the detail reduction of this frame
	//   - error: the first draw error
	Prepare() ([]animator.DrawResult, skeleton.Stats, error)

	// Results returns the draw results of the last Prepare.
	//
	// Returns:
	//   - []animator.DrawResult: the results
	Results() []animator.DrawResult

	// Tag returns the model-space orientation of a named attachment point in the current pose.
	//
	// Parameters:
	//   - name: the tag name
	//
	// Returns:
	//   - common.Orientation: the tag orientation, zeroed when not found
	//   - bool: false if the tag was not found or the pose could not be solved
	Tag(name string) (common.Orientation, bool)

	// SetID sets the object's unique identifier.
	//
	// Parameters:
	//   - id: the ID to assign
	SetID(id uint64)

	// SetEnabled sets whether the object is enabled for rendering.
	//
	// Parameters:
	//   - enabled: true to enable
	SetEnabled(enabled bool)

	// SetModel assigns a Model to this object.
	//
	// Parameters:
	//   - m: the Model to associate
	SetModel(m model.Model)

	// SetAnimator sets the Animator associated with this object.
	//
	// Parameters:
	//   - anim: the Animator to associate
	SetAnimator(anim animator.Animator)

	// SetPosition updates the object's world position.
	//
	// Parameters:
	//   - pos: the new position
	SetPosition(pos mgl32.Vec3)
}

var _ GameObject = &gameObject{}

// NewGameObject creates a new GameObject configured with the given options.
// The torso orientation starts as the identity.
//
// Parameters:
//   - options: functional options to configure the object
//
// Returns:
//   - GameObject: the newly created object
func NewGameObject(options ...GameObjectBuilderOption) GameObject {
	obj := &gameObject{
		mu: &sync.Mutex{},
	}
	obj.entity.TorsoAxis = common.IdentityAxis()
	for _, option := range options {
		option(obj)
	}
	return obj
}

func (g *gameObject) ID() uint64 {
	return g.id
}

func (g *gameObject) Enabled() bool {
	return g.enabled.Load()
}

func (g *gameObject) Ephemeral() bool {
	return g.ephemeral
}

func (g *gameObject) Model() model.Model {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.entity.Model
}

func (g *gameObject) Animator() animator.Animator {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.animator
}

func (g *gameObject) Entity() skeleton.Entity {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.entity
}

func (g *gameObject) UpdateEntity(fn func(e *skeleton.Entity)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(&g.entity)
}

func (g *gameObject) Position() mgl32.Vec3 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.entity.Origin
}

func (g *gameObject) Prepare() ([]animator.DrawResult, skeleton.Stats, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var stats skeleton.Stats
	g.results = g.results[:0]
	if g.animator == nil || g.entity.Model == nil {
		return g.results, stats, nil
	}

	g.animator.Reset()
	var err error
	g.results, err = g.animator.DrawModel(&g.entity, g.results)
	for _, r := range g.results {
		surf := g.entity.Model.Surface(r.Surface)
		stats.RenderedVerts += r.NumVertexes
		stats.TotalVerts += len(surf.Vertices)
		stats.RenderedTris += r.NumIndexes / 3
		stats.TotalTris += len(surf.Triangles)
	}
	return g.results, stats, err
}

func (g *gameObject) Results() []animator.DrawResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.results
}

func (g *gameObject) Tag(name string) (common.Orientation, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.animator == nil {
		return common.Orientation{}, false
	}
	or, idx := g.animator.Solver().BoneTag(&g.entity, 0, name)
	return or, idx >= 0
}

func (g *gameObject) SetID(id uint64) {
	g.id = id
}

func (g *gameObject) SetEnabled(enabled bool) {
	g.enabled.Store(enabled)
}

func (g *gameObject) SetModel(m model.Model) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entity.Model = m
}

func (g *gameObject) SetAnimator(anim animator.Animator) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.animator = anim
}

func (g *gameObject) SetPosition(pos mgl32.Vec3) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entity.Origin = pos
}
