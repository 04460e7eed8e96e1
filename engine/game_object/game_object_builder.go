package game_object

import (
	"github.com/Carmen-Shannon/oxy-mdm/common"
	"github.com/Carmen-Shannon/oxy-mdm/engine/model"
	"github.com/Carmen-Shannon/oxy-mdm/engine/renderer/animator"
	"github.com/Carmen-Shannon/oxy-mdm/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// GameObjectBuilderOption is a functional option for configuring a GameObject during construction.
type GameObjectBuilderOption func(*gameObject)

// WithID sets the ID of the GameObject.
//
// Parameters:
//   - id: unique identifier for the GameObject
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the ID
func WithID(id uint64) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.id = id
	}
}

// WithEnabled sets whether the GameObject is enabled for rendering.
//
// Parameters:
//   - enabled: true to render the object, false to skip it
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the Enabled state
func WithEnabled(enabled bool) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.enabled.Store(enabled)
	}
}

// WithEphemeral marks the GameObject as ephemeral. Ephemeral objects are not
// persisted in the scene's registry when added via Scene.Add; they are prepared
// for the next frame only.
//
// Parameters:
//   - ephemeral: true to mark as ephemeral
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the Ephemeral flag
func WithEphemeral(ephemeral bool) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.ephemeral = ephemeral
	}
}

// WithModel sets the Model for this GameObject.
//
// Parameters:
//   - m: the Model to associate
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the Model
func WithModel(m model.Model) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.entity.Model = m
	}
}

// WithAnimator sets the Animator that solves and skins this GameObject.
//
// Parameters:
//   - anim: the Animator to associate
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the Animator
func WithAnimator(anim animator.Animator) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.animator = anim
	}
}

// WithPosition sets the initial world position of the GameObject.
//
// Parameters:
//   - pos: the position
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the initial position
func WithPosition(pos mgl32.Vec3) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.entity.Origin = pos
	}
}

// WithEntity replaces the whole render state of the GameObject. A zero torso axis is replaced by the identity.
//
// Parameters:
//   - e: the render state
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the render state
func WithEntity(e skeleton.Entity) GameObjectBuilderOption {
	return func(obj *gameObject) {
		if e.TorsoAxis == (common.Axis{}) {
			e.TorsoAxis = common.IdentityAxis()
		}
		obj.entity = e
	}
}
