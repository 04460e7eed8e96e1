package loader

import (
	"github.com/Carmen-Shannon/oxy-mdm/engine/model"
)

// importedAsset is the CPU-side result of a backend load, before it is wrapped into a Model.
type importedAsset struct {
	name     string
	skeleton *model.Skeleton
	surfaces []*model.Surface
	tags     []model.Tag
	lodBias  float32
	radius   float32
}

// loaderBackend defines the generic interface for producing asset data.
// Concrete implementations (e.g., proceduralLoaderBackend) handle source-specific details.
type loaderBackend interface {
	// Load builds the asset described by the recipe.
	// This produces the skeleton with its keyframes, the skinned surfaces and the tags.
	//
	// Parameters:
	//   - r: the recipe
	//
	// Returns:
	//   - *importedAsset: the asset data
	//   - error: error if the recipe is invalid
	Load(r Recipe) (*importedAsset, error)
}
