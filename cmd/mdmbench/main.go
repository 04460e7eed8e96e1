// Command mdmbench drives a crowd of procedural skinned figures through the headless engine and
// reports how much work the detail selection saved.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/Carmen-Shannon/oxy-mdm/common"
	"github.com/Carmen-Shannon/oxy-mdm/engine"
	"github.com/Carmen-Shannon/oxy-mdm/engine/camera"
	"github.com/Carmen-Shannon/oxy-mdm/engine/config"
	"github.com/Carmen-Shannon/oxy-mdm/engine/game_object"
	"github.com/Carmen-Shannon/oxy-mdm/engine/loader"
	"github.com/Carmen-Shannon/oxy-mdm/engine/profiler"
	"github.com/Carmen-Shannon/oxy-mdm/engine/renderer/animator"
	"github.com/Carmen-Shannon/oxy-mdm/engine/scene"
	"github.com/Carmen-Shannon/oxy-mdm/engine/skeleton"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spf13/pflag"
)

const (
	// animFPS is the keyframe rate of the walk cycle.
	animFPS = 15
	// maxSide is the number of figures per row of the crowd grid.
	maxSide = 32
	// deadEvery marks every n-th figure as a corpse to exercise the dead detail path.
	deadEvery = 7
	// torsoTwist is the peak torso yaw against the legs, in degrees.
	torsoTwist = 25
)

// crowdMember is the animation state of one spawned figure.
type crowdMember struct {
	obj   game_object.GameObject
	phase float32
}

func main() {
	var (
		configPath = pflag.StringP("config", "c", "", "config file (.toml, .yaml or .yml)")
		watch      = pflag.BoolP("watch", "w", false, "reload the config file when it changes")
		entities   = pflag.IntP("entities", "n", 256, "number of figures")
		frames     = pflag.IntP("frames", "f", 600, "number of frames to prepare")
		backend    = pflag.StringP("backend", "b", "", "skinning backend (cpu or gpu), overrides the config")
		workers    = pflag.Int("workers", 0, "preparation workers, overrides the config")
		segments   = pflag.Int("segments", 12, "vertices around each limb")
		rings      = pflag.Int("rings", 4, "vertex rings along each bone")
		spacing    = pflag.Float32("spacing", 96, "distance between figures")
		tickRate   = pflag.Float64("tick-rate", 60, "simulation ticks per second")
		interval   = pflag.Duration("profile-interval", time.Second, "profiler log interval")
	)
	pflag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("[Bench] %v", err)
		}
	}
	if *backend != "" {
		cfg.Render.Backend = *backend
	}
	if *workers > 0 {
		cfg.Scene.Workers = *workers
	}
	cfg.Sanitize()
	store := config.NewStore(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if *watch && *configPath != "" {
		if err := config.Watch(ctx, *configPath, store, nil); err != nil {
			log.Fatalf("[Bench] watch %s: %v", *configPath, err)
		}
	}

	backendType, err := animator.ParseBackendType(cfg.Render.Backend)
	if err != nil {
		log.Fatalf("[Bench] %v", err)
	}

	ldr := loader.NewLoader(loader.BackendTypeProcedural,
		loader.WithSurfaceProviders(backendType == animator.BackendTypeGPU),
	)
	defer ldr.Release()
	asset, err := ldr.Load(loader.Recipe{Name: "walker", Segments: *segments, Rings: *rings})
	if err != nil {
		log.Fatalf("[Bench] %v", err)
	}

	side := min(*entities, maxSide)
	extent := float32(side) * *spacing
	ctrl := camera.NewOrbitController(
		camera.WithRadius(extent),
		camera.WithRadiusBounds(1, 100000),
		camera.WithElevation(0.4),
		camera.WithTarget(mgl32.Vec3{extent / 2, 0, extent / 2}),
	)
	cam := camera.NewCamera(
		camera.WithAspect(16.0/9.0),
		camera.WithFar(100000),
		camera.WithController(ctrl),
	)

	prof := profiler.NewProfiler()
	prof.SetInterval(*interval)

	sc := scene.NewScene("mdmbench", cam,
		scene.WithActive(true),
		scene.WithBackendType(backendType),
		scene.WithComputeWorkers(cfg.Scene.Workers),
		scene.WithQueueSize(cfg.Scene.QueueSize),
		scene.WithLodParams(cfg.LodParams()),
		scene.WithProfiler(prof),
		scene.WithAnimatorOptions(
			animator.WithSolverOptions(cfg.SolverOptions()...),
			animator.WithCapacity(cfg.Render.MaxVertices, cfg.Render.MaxIndices),
		),
	)
	defer sc.Release()

	crowd := spawnCrowd(sc, asset, *entities, *spacing)
	numFrames := int32(asset.Skeleton.NumFrames())
	log.Printf("[Bench] %d figures, %d bones, %d keyframes, %s backend, %d workers",
		len(crowd), asset.Skeleton.NumBones(), numFrames, backendType, cfg.Scene.Workers)

	var clock float32
	eng := engine.NewEngine(
		engine.WithProfiler(prof),
		engine.WithProfiling(true),
		engine.WithTickRate(*tickRate),
		engine.WithConfigStore(store),
		engine.WithScene(0, sc),
	)
	eng.SetTickCallback(func(dt float32) {
		clock += dt
		for _, m := range crowd {
			animate(m, asset, numFrames, clock)
		}
		ctrl.Orbit(dt*0.2, 0)
		ctrl.SetRadius(extent * (1 + 0.75*math32.Sin(clock*0.3)))
	})

	start := time.Now()
	total, err := eng.RunFrames(ctx, *frames)
	elapsed := time.Since(start)
	if err != nil {
		log.Printf("[Bench] stopped early: %v", err)
	}

	prepared := max(total.Objects, 1)
	log.Printf("[Bench] %d frames in %v (%.3f ms/frame, %.1f µs/figure)",
		*frames, elapsed.Round(time.Millisecond),
		float64(elapsed.Microseconds())/1000/float64(max(*frames, 1)),
		float64(elapsed.Microseconds())/float64(prepared))
	log.Printf("[Bench] draws %d, failed %d, verts %d/%d, tris %d/%d (%.2f%%)",
		total.Draws, total.Failed, total.Skin.RenderedVerts, total.Skin.TotalVerts,
		total.Skin.RenderedTris, total.Skin.TotalTris, total.Skin.Ratio())

	if len(crowd) > 0 {
		if or, ok := crowd[0].obj.Tag("tag_weapon"); ok {
			log.Printf("[Bench] figure %d tag_weapon at %v", crowd[0].obj.ID(), or.Origin)
		}
	}
}

// spawnCrowd places n figures on a grid in the XZ plane.
func spawnCrowd(sc scene.Scene, asset loader.Asset, n int, spacing float32) []crowdMember {
	crowd := make([]crowdMember, 0, n)
	for i := range n {
		pos := mgl32.Vec3{float32(i%maxSide) * spacing, 0, float32(i/maxSide) * spacing}
		obj := game_object.NewGameObject(
			game_object.WithEnabled(true),
			game_object.WithModel(asset.Model),
			game_object.WithPosition(pos),
		)
		if i%deadEvery == deadEvery-1 {
			obj.UpdateEntity(func(e *skeleton.Entity) {
				e.Flags |= common.FlagDeadLod
			})
		}
		sc.Add(obj)
		crowd = append(crowd, crowdMember{obj: obj, phase: float32(i) * 0.37})
	}
	return crowd
}

// animate sets the keyframes of one figure for the given time. The torso plays the same cycle a
// quarter behind the legs and twists back and forth.
func animate(m crowdMember, asset loader.Asset, numFrames int32, clock float32) {
	t := (clock + m.phase) * animFPS
	legs, legsOld, legsLerp := cycleFrames(t, numFrames)
	torso, torsoOld, torsoLerp := cycleFrames(t-float32(numFrames)/4, numFrames)
	twist := common.AngleToShort(torsoTwist * math32.Sin(clock+m.phase))

	m.obj.UpdateEntity(func(e *skeleton.Entity) {
		e.SetLegs(asset.Skeleton, legs, legsOld, legsLerp)
		e.SetTorso(asset.Skeleton, torso, torsoOld, torsoLerp)
		e.TorsoAxis = skeleton.DefaultSinTable.InglesToAxis([3]int32{0, int32(twist), 0})
	})
}

// cycleFrames splits a looping frame position into the keyframe pair around it and the weight towards the older one.
func cycleFrames(t float32, numFrames int32) (frame, oldFrame int32, backLerp float32) {
	base := math32.Floor(t)
	oldFrame = int32(math32.Mod(base, float32(numFrames)))
	if oldFrame < 0 {
		oldFrame += numFrames
	}
	frame = (oldFrame + 1) % numFrames
	return frame, oldFrame, 1 - (t - base)
}
