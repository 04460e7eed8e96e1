package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-mdm/engine/config"
	"github.com/Carmen-Shannon/oxy-mdm/engine/profiler"
	"github.com/Carmen-Shannon/oxy-mdm/engine/scene"
)

// engine implements the Engine interface.
// Coordinates the fixed-rate tick loop and the frame loop.
type engine struct {
	mu              sync.RWMutex
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	frameCallback  func(deltaTime float32, stats scene.FrameStats)

	scenes map[int]scene.Scene

	store   *config.Store
	applied config.Config
	hasCfg  bool

	frameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the main entry point of the runtime.
// It orchestrates a fixed-rate tick loop for animation updates and a frame loop that prepares
// every active scene. There is no window: frames end with the prepared draw data staged on the
// scenes, ready for a renderer or a benchmark to consume.
type Engine interface {
	// Profiler returns the engine's profiler.
	//
	// Returns:
	//   - *profiler.Profiler: the profiler
	Profiler() *profiler.Profiler

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for animation updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	// Use this to advance keyframes, move entities and orbit the camera.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetFrameCallback registers the function called after each prepared frame.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds and the frame summary
	SetFrameCallback(callback func(deltaTime float32, stats scene.FrameStats))

	// SetFrameLimit sets an optional frame rate cap in frames per second.
	// Pass 0 to uncap the frame loop (default).
	//
	// Parameters:
	//   - fps: maximum frames per second (0 = uncapped)
	SetFrameLimit(fps float64)

	// AddScene registers a scene at the given z-index key.
	// Scenes are prepared in ascending key order.
	//
	// Parameters:
	//   - key: the z-index determining preparation order (lower first)
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given z-index key.
	//
	// Parameters:
	//   - key: the z-index of the scene to remove
	RemoveScene(key int)

	// Scene retrieves the scene registered at the given z-index key.
	// Returns nil if no scene exists at that key.
	//
	// Parameters:
	//   - key: the z-index of the scene to retrieve
	//
	// Returns:
	//   - scene.Scene: the scene at the key, or nil if not found
	Scene(key int) scene.Scene

	// Scenes returns a copy of all registered scenes keyed by z-index.
	//
	// Returns:
	//   - map[int]scene.Scene: a copy of the scenes map
	Scenes() map[int]scene.Scene

	// ApplyConfig hands the detail tunables of cfg to every registered scene.
	//
	// Parameters:
	//   - cfg: the configuration
	ApplyConfig(cfg config.Config)

	// Frame prepares every active scene once, in ascending key order. When a config store is
	// attached, a changed configuration is applied first.
	//
	// Returns:
	//   - scene.FrameStats: the summed frame summary
	//   - error: the joined scene errors, or nil
	Frame() (scene.FrameStats, error)

	// RunFrames drives n frames synchronously. Each frame calls the tick callback with the
	// fixed tick interval, prepares the scenes and ticks the profiler.
	//
	// Parameters:
	//   - ctx: stops the run early when done
	//   - n: the number of frames
	//
	// Returns:
	//   - scene.FrameStats: the summed summary of all frames
	//   - error: ctx.Err() when stopped early
	RunFrames(ctx context.Context, n int) (scene.FrameStats, error)

	// Run starts the tick and frame loops and blocks until ctx is done or Quit is called.
	//
	// Parameters:
	//   - ctx: stops the loops when done
	Run(ctx context.Context)

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// Options are applied directly to the engine struct via the option-builder pattern.
//
// Parameters:
//   - options: functional options for engine configuration (profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel:  make(chan time.Duration, 1),
		quitChannel:      make(chan struct{}),
		scenes:           make(map[int]scene.Scene),
		profiler:         profiler.NewProfiler(),
		profilingEnabled: false,
		engineTickRate:   time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	return e
}

func (e *engine) Profiler() *profiler.Profiler {
	return e.profiler
}

func (e *engine) Run(ctx context.Context) {
	e.mu.Lock()
	e.running = true
	e.mu.Unlock()

	e.wg.Add(3)
	go e.handleTick()
	go e.handleFrames()
	go e.handleQuit(ctx)
	e.wg.Wait()
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		close(e.quitChannel)
	})
}

// handleTick runs the fixed-rate tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleTick() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.tickRate())
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if cb := e.tick(); cb != nil {
				cb(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.mu.Lock()
			e.engineTickRate = newRate
			e.mu.Unlock()
		}
	}
}

// handleFrames runs the uncapped (or frame-limited) frame loop in its own goroutine.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleFrames() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Engine] frame goroutine recovered from panic: %v", r)
			e.signalQuit()
		}
	}()

	lastFrame := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastFrame).Seconds())
			lastFrame = now

			e.runFrame(dt)

			e.mu.RLock()
			limit := e.frameLimit
			e.mu.RUnlock()
			if limit > 0 {
				elapsed := time.Since(lastFrame)
				if remaining := limit - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// handleQuit waits for ctx or the quit channel, then makes sure the other loops stop.
func (e *engine) handleQuit(ctx context.Context) {
	defer e.wg.Done()
	select {
	case <-ctx.Done():
		e.signalQuit()
	case <-e.quitChannel:
	}
}

// runFrame prepares one frame, reports it and ticks the profiler.
func (e *engine) runFrame(dt float32) (scene.FrameStats, error) {
	stats, err := e.Frame()

	e.mu.RLock()
	cb := e.frameCallback
	profiling := e.profilingEnabled
	e.mu.RUnlock()

	if cb != nil {
		cb(dt, stats)
	}
	if profiling && e.profiler != nil {
		e.profiler.Tick()
	}
	return stats, err
}

func (e *engine) Frame() (scene.FrameStats, error) {
	if e.store != nil {
		cfg := e.store.Get()
		e.mu.RLock()
		stale := !e.hasCfg || cfg != e.applied
		e.mu.RUnlock()
		if stale {
			e.ApplyConfig(cfg)
		}
	}

	var total scene.FrameStats
	var errs []error
	for _, s := range e.activeScenes() {
		stats, err := s.PrepareFrame()
		addStats(&total, stats)
		if err != nil {
			errs = append(errs, fmt.Errorf("scene %s: %w", s.Name(), err))
		}
	}
	return total, errors.Join(errs...)
}

// activeScenes returns the active scenes in ascending key order.
func (e *engine) activeScenes() []scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()

	keys := make([]int, 0, len(e.scenes))
	for k := range e.scenes {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	var active []scene.Scene
	for _, k := range keys {
		if s := e.scenes[k]; s.Active() {
			active = append(active, s)
		}
	}
	return active
}

func (e *engine) RunFrames(ctx context.Context, n int) (scene.FrameStats, error) {
	var total scene.FrameStats
	dt := float32(e.tickRate().Seconds())
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		if cb := e.tick(); cb != nil {
			cb(dt)
		}
		stats, err := e.runFrame(dt)
		addStats(&total, stats)
		if err != nil {
			log.Printf("[Engine] frame %d: %v", i, err)
		}
	}
	return total, nil
}

func (e *engine) ApplyConfig(cfg config.Config) {
	e.mu.Lock()
	e.applied = cfg
	e.hasCfg = true
	scenes := make([]scene.Scene, 0, len(e.scenes))
	for _, s := range e.scenes {
		scenes = append(scenes, s)
	}
	e.mu.Unlock()

	p := cfg.LodParams()
	for _, s := range scenes {
		s.SetLodParams(p)
	}
	log.Printf("[Engine] applied config: lod scale %.2f bias %.2f to %d scenes", p.Scale, p.Bias, len(scenes))
}

// addStats sums frame summaries.
func addStats(dst *scene.FrameStats, s scene.FrameStats) {
	dst.Objects += s.Objects
	dst.Draws += s.Draws
	dst.Failed += s.Failed
	dst.Skin.RenderedVerts += s.Skin.RenderedVerts
	dst.Skin.TotalVerts += s.Skin.TotalVerts
	dst.Skin.RenderedTris += s.Skin.RenderedTris
	dst.Skin.TotalTris += s.Skin.TotalTris
}

func (e *engine) tick() func(float32) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tickCallback
}

func (e *engine) tickRate() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.engineTickRate
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	e.mu.Lock()
	running := e.running
	if !running {
		e.engineTickRate = newRate
	}
	e.mu.Unlock()

	if running {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickCallback = callback
}

// SetFrameCallback registers the function called after each frame.
func (e *engine) SetFrameCallback(callback func(deltaTime float32, stats scene.FrameStats)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.frameCallback = callback
}

// SetFrameLimit sets an optional frame rate cap.
// Pass 0 to uncap the frame loop.
func (e *engine) SetFrameLimit(fps float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if fps <= 0 {
		e.frameLimit = 0
		return
	}
	e.frameLimit = time.Duration(float64(time.Second) / fps)
}

func (e *engine) AddScene(key int, s scene.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.scenes, key)
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cp := make(map[int]scene.Scene, len(e.scenes))
	for k, v := range e.scenes {
		cp[k] = v
	}
	return cp
}
