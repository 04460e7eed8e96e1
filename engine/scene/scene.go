package scene

import (
	"cmp"
	"errors"
	"fmt"
	"log"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-mdm/engine/camera"
	"github.com/Carmen-Shannon/oxy-mdm/engine/game_object"
	"github.com/Carmen-Shannon/oxy-mdm/engine/lod"
	"github.com/Carmen-Shannon/oxy-mdm/engine/profiler"
	"github.com/Carmen-Shannon/oxy-mdm/engine/renderer/animator"
	"github.com/Carmen-Shannon/oxy-mdm/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-mdm/engine/skeleton"
)

// FrameStats summarizes one PrepareFrame call.
type FrameStats struct {
	// Objects is the number of enabled objects that were prepared.
	Objects int

	// Draws is the number of surfaces emitted.
	Draws int

	// Failed is the number of objects whose preparation returned an error.
	Failed int

	// Skin is the detail reduction over all prepared objects.
	Skin skeleton.Stats
}

// Scene manages a registry of GameObjects viewed through one Camera. Each frame the scene prepares
// every enabled object on a pool of workers: the object's Animator solves its skeleton, picks a
// detail level from the camera and skins or stages its surfaces.
// Scenes can be hot-swapped via the Active flag to switch between different views or levels.
// Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Active returns whether this scene is currently active.
	Active() bool

	// SetActive sets whether this scene is active.
	SetActive(active bool)

	// Camera returns the scene's camera.
	Camera() camera.Camera

	// SetCamera replaces the scene's camera and points every object's Animator at it.
	//
	// Parameters:
	//   - cam: the new camera
	SetCamera(cam camera.Camera)

	// Count returns the number of persisted GameObjects in the scene's registry. Does not include ephemeral objects.
	//
	// Returns:
	//   - int: count of non-ephemeral GameObjects in the registry
	Count() int

	// CountEphemeral returns the number of ephemeral GameObjects waiting for the next frame.
	//
	// Returns:
	//   - int: count of pending ephemeral GameObjects
	CountEphemeral() int

	// Add adds a GameObject to the scene. The object must carry a Model. When the object has no
	// Animator the scene creates one with its configured backend and options. The Animator's viewer
	// is set to the scene camera. Non-ephemeral objects are persisted in the registry; ephemeral
	// objects are prepared by the next PrepareFrame and then dropped.
	//
	// Panics if the object has no Model.
	//
	// Parameters:
	//   - obj: the GameObject to add
	//
	// Returns:
	//   - uint64: the assigned object ID
	Add(obj game_object.GameObject) uint64

	// Get retrieves a non-ephemeral GameObject by its ID.
	// Returns nil if not found.
	//
	// Parameters:
	//   - id: the object's unique ID
	//
	// Returns:
	//   - game_object.GameObject: the object or nil
	Get(id uint64) game_object.GameObject

	// Objects returns the registered GameObjects ordered by ID.
	//
	// Returns:
	//   - []game_object.GameObject: the objects
	Objects() []game_object.GameObject

	// Remove removes a non-ephemeral GameObject from the registry by ID and releases the
	// Animator the scene created for it.
	//
	// Parameters:
	//   - id: the object's unique ID
	Remove(id uint64)

	// Clear removes all objects from the scene.
	Clear()

	// SetLodParams hands new detail tunables to every object's Animator and to Animators created later.
	//
	// Parameters:
	//   - p: the tunables
	SetLodParams(p lod.Params)

	// PrepareFrame updates the camera, prepares every enabled object in parallel and collects the
	// staged GPU buffer writes. Objects that fail are skipped for this frame and reported in the
	// returned error; the others are unaffected.
	//
	// Returns:
	//   - FrameStats: the frame summary
	//   - error: the joined per-object errors, or nil
	PrepareFrame() (FrameStats, error)

	// StagedWriteData returns the buffer writes collected by the last PrepareFrame.
	// The slice is reused by the next frame.
	//
	// Returns:
	//   - []bind_group_provider.BufferWrite: the writes
	StagedWriteData() []bind_group_provider.BufferWrite

	// Release releases the Animators the scene created and clears the scene.
	Release()
}

type scene struct {
	mu     *sync.RWMutex
	name   string
	active bool
	cam    camera.Camera

	registry  map[uint64]game_object.GameObject
	ephemeral []game_object.GameObject
	owned     map[uint64]animator.Animator
	nextID    uint64

	backendType animator.AnimatorBackendType
	animOpts    []animator.AnimatorBuilderOption
	params      lod.Params
	profiler    *profiler.Profiler

	// Pre-allocated slices reused each frame to avoid per-frame allocations.
	writePool []bind_group_provider.BufferWrite
	workPool  []game_object.GameObject

	// computePool manages a bounded set of reusable goroutines for the parallel
	// preparation phase. Workers persist across frames.
	computePool    worker.DynamicWorkerPool
	computeWorkers int
	queueSize      int
}

// Ensure scene implements Scene interface.
var _ Scene = &scene{}

// NewScene creates a new Scene with the given camera. The camera is required and NewScene
// panics if it is nil.
//
// Parameters:
//   - name: the name of the scene
//   - cam: the camera to attach (must not be nil)
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, cam camera.Camera, options ...SceneBuilderOption) Scene {
	if cam == nil {
		panic("scene: NewScene requires a non-nil Camera")
	}

	s := &scene{
		mu:             &sync.RWMutex{},
		name:           name,
		cam:            cam,
		registry:       make(map[uint64]game_object.GameObject),
		owned:          make(map[uint64]animator.Animator),
		nextID:         1,
		backendType:    animator.BackendTypeCPU,
		params:         lod.DefaultParams(),
		computeWorkers: max(runtime.NumCPU()-1, 1),
		queueSize:      256,
	}

	for _, option := range options {
		option(s)
	}

	// Initialize the compute pool after options so WithComputeWorkers can override the default.
	s.computePool = worker.NewDynamicWorkerPool(s.computeWorkers, s.queueSize, 1*time.Second)
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Camera() camera.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cam
}

func (s *scene) SetCamera(cam camera.Camera) {
	if cam == nil {
		panic("scene: SetCamera requires a non-nil Camera")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cam = cam
	for _, obj := range s.registry {
		if a := obj.Animator(); a != nil {
			a.SetViewer(cam)
		}
	}
	for _, obj := range s.ephemeral {
		if a := obj.Animator(); a != nil {
			a.SetViewer(cam)
		}
	}
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.registry)
}

func (s *scene) CountEphemeral() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ephemeral)
}

func (s *scene) Add(obj game_object.GameObject) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(obj)
}

// add wires obj into the scene. Caller must hold s.mu write lock.
func (s *scene) add(obj game_object.GameObject) uint64 {
	if obj.Model() == nil {
		panic("scene: cannot Add a GameObject without a Model")
	}

	if obj.ID() == 0 {
		obj.SetID(atomic.AddUint64(&s.nextID, 1) - 1)
	}

	anim := obj.Animator()
	if anim == nil {
		opts := append([]animator.AnimatorBuilderOption{animator.WithParams(s.params)}, s.animOpts...)
		anim = animator.NewAnimator(s.backendType, opts...)
		obj.SetAnimator(anim)
		s.owned[obj.ID()] = anim
	}
	anim.SetViewer(s.cam)

	if obj.Ephemeral() {
		s.ephemeral = append(s.ephemeral, obj)
	} else {
		s.registry[obj.ID()] = obj
	}
	return obj.ID()
}

func (s *scene) Get(id uint64) game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry[id]
}

func (s *scene) Objects() []game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedObjects(make([]game_object.GameObject, 0, len(s.registry)))
}

// sortedObjects appends the registry ordered by ID to out. Caller must hold s.mu.
func (s *scene) sortedObjects(out []game_object.GameObject) []game_object.GameObject {
	for _, obj := range s.registry {
		out = append(out, obj)
	}
	slices.SortFunc(out, func(a, b game_object.GameObject) int {
		return cmp.Compare(a.ID(), b.ID())
	})
	return out
}

func (s *scene) Remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, exists := s.registry[id]
	if !exists {
		return
	}
	delete(s.registry, id)
	s.releaseOwned(obj)
}

// releaseOwned releases and detaches the Animator the scene created for obj. Caller must hold s.mu write lock.
func (s *scene) releaseOwned(obj game_object.GameObject) {
	if anim, ok := s.owned[obj.ID()]; ok {
		anim.Release()
		obj.SetAnimator(nil)
		delete(s.owned, obj.ID())
	}
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, obj := range s.registry {
		s.releaseOwned(obj)
	}
	for _, obj := range s.ephemeral {
		s.releaseOwned(obj)
	}
	s.registry = make(map[uint64]game_object.GameObject)
	s.ephemeral = nil
}

func (s *scene) SetLodParams(p lod.Params) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params = p
	for _, obj := range s.registry {
		if a := obj.Animator(); a != nil {
			a.SetParams(p)
		}
	}
	for _, obj := range s.ephemeral {
		if a := obj.Animator(); a != nil {
			a.SetParams(p)
		}
	}
}

func (s *scene) PrepareFrame() (FrameStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats FrameStats
	if s.cam != nil {
		s.cam.Update()
	}

	work := s.sortedObjects(s.workPool[:0])
	work = append(work, s.ephemeral...)
	s.workPool = work

	// Phase 1: parallel preparation. Each object owns its Animator, so tasks share nothing but
	// the result slots. A WaitGroup provides the per-frame barrier.
	type slot struct {
		prepared bool
		draws    int
		skin     skeleton.Stats
		err      error
	}
	slots := make([]slot, len(work))

	var wg sync.WaitGroup
	for i, obj := range work {
		if !obj.Enabled() {
			continue
		}
		wg.Add(1)
		id := i
		objCap := obj
		s.computePool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				results, skin, err := objCap.Prepare()
				slots[id] = slot{prepared: true, draws: len(results), skin: skin, err: err}
				return nil, nil
			},
		})
	}
	wg.Wait()

	// Phase 2: collect statistics and the staged writes of every object in frame order.
	var errs []error
	allWrites := s.writePool[:0]
	for i, obj := range work {
		sl := slots[i]
		if !sl.prepared {
			continue
		}
		stats.Objects++
		if sl.err != nil {
			stats.Failed++
			errs = append(errs, fmt.Errorf("object %d: %w", obj.ID(), sl.err))
			log.Printf("[Scene] %s: dropped object %d: %v", s.name, obj.ID(), sl.err)
		}
		stats.Draws += sl.draws
		stats.Skin.RenderedVerts += sl.skin.RenderedVerts
		stats.Skin.TotalVerts += sl.skin.TotalVerts
		stats.Skin.RenderedTris += sl.skin.RenderedTris
		stats.Skin.TotalTris += sl.skin.TotalTris
		if s.profiler != nil {
			s.profiler.RecordSkin(sl.skin)
		}
		if a := obj.Animator(); a != nil {
			allWrites = append(allWrites, a.StagedWriteData()...)
		}
	}
	s.writePool = allWrites

	for _, obj := range s.ephemeral {
		s.releaseOwned(obj)
	}
	s.ephemeral = s.ephemeral[:0]

	return stats, errors.Join(errs...)
}

func (s *scene) StagedWriteData() []bind_group_provider.BufferWrite {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writePool
}

func (s *scene) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, obj := range s.registry {
		s.releaseOwned(obj)
	}
	for _, obj := range s.ephemeral {
		s.releaseOwned(obj)
	}
	s.registry = make(map[uint64]game_object.GameObject)
	s.ephemeral = nil
	s.writePool = nil
}
