package loader

import (
	"cmp"
	"errors"
	"fmt"
)

// ErrInvalidRecipe is returned when a recipe cannot produce a usable asset.
var ErrInvalidRecipe = errors.New("loader: invalid recipe")

// Recipe describes a procedural humanoid: a thirteen-bone skeleton with a looping walk cycle and
// tube-shaped limbs split into an upper and a lower surface. Zero fields take their defaults.
type Recipe struct {
	// Name is the cache key and the model name. Required.
	Name string

	// Frames is the number of keyframes in the walk cycle. Default 16.
	Frames int

	// Segments is the number of vertices around each limb ring. Default 8, minimum 3.
	Segments int

	// Rings is the number of vertex rings along each bone. Default 3, minimum 2.
	Rings int

	// Scale multiplies every length of the figure. Default 1.
	Scale float32

	// Swing is the peak limb swing of the walk cycle, in degrees. Default 30.
	Swing float32

	// LodBias is the model's detail bias.
	LodBias float32
}

// withDefaults fills the zero fields of r.
func (r Recipe) withDefaults() Recipe {
	r.Frames = cmp.Or(r.Frames, 16)
	r.Segments = cmp.Or(r.Segments, 8)
	r.Rings = cmp.Or(r.Rings, 3)
	r.Scale = cmp.Or(r.Scale, 1)
	r.Swing = cmp.Or(r.Swing, 30)
	return r
}

func (r Recipe) validate() error {
	switch {
	case r.Name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidRecipe)
	case r.Frames < 1:
		return fmt.Errorf("%w: %s has %d frames", ErrInvalidRecipe, r.Name, r.Frames)
	case r.Segments < 3:
		return fmt.Errorf("%w: %s has %d segments", ErrInvalidRecipe, r.Name, r.Segments)
	case r.Rings < 2:
		return fmt.Errorf("%w: %s has %d rings", ErrInvalidRecipe, r.Name, r.Rings)
	case r.Scale < 0:
		return fmt.Errorf("%w: %s has negative scale", ErrInvalidRecipe, r.Name)
	}
	return nil
}

// proceduralLoaderBackendImpl is the implementation of proceduralLoaderBackend.
type proceduralLoaderBackendImpl struct{}

// proceduralLoaderBackend is a loaderBackend that generates assets from recipes instead of files.
type proceduralLoaderBackend interface {
	loaderBackend
}

var _ proceduralLoaderBackend = &proceduralLoaderBackendImpl{}

// newProceduralLoaderBackend creates a new procedural loader backend.
//
// Returns:
//   - proceduralLoaderBackend: the loader backend
func newProceduralLoaderBackend() proceduralLoaderBackend {
	return &proceduralLoaderBackendImpl{}
}

func (b *proceduralLoaderBackendImpl) Load(r Recipe) (*importedAsset, error) {
	r = r.withDefaults()
	if err := r.validate(); err != nil {
		return nil, err
	}

	skel, err := buildSkeleton(r)
	if err != nil {
		return nil, err
	}
	rest, err := restPose(skel)
	if err != nil {
		return nil, err
	}

	return &importedAsset{
		name:     r.Name,
		skeleton: skel,
		surfaces: buildSurfaces(r, rest),
		tags:     buildTags(r, rest),
		lodBias:  r.LodBias,
		radius:   figureRadius * r.Scale,
	}, nil
}
