package model

// ModelBuilderOption is a functional option for configuring a Model via NewModel.
type ModelBuilderOption func(*model)

// WithName is an option builder that sets the name of the Model.
//
// Parameters:
//   - name: the model identifier
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a model
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		m.name = name
	}
}

// WithSurfaces is an option builder that sets the skinned surfaces of the Model.
//
// Parameters:
//   - surfaces: the surfaces to set
//
// Returns:
//   - ModelBuilderOption: a function that applies the surfaces option to a model
func WithSurfaces(surfaces ...*Surface) ModelBuilderOption {
	return func(m *model) {
		m.surfaces = surfaces
	}
}

// WithTags is an option builder that sets the attachment tags of the Model.
//
// Parameters:
//   - tags: the tags to set, in lookup order
//
// Returns:
//   - ModelBuilderOption: a function that applies the tags option to a model
func WithTags(tags ...Tag) ModelBuilderOption {
	return func(m *model) {
		m.tags = tags
	}
}

// WithLodBias is an option builder that sets the per-model detail bias.
//
// Parameters:
//   - bias: the value subtracted from the detail factor
//
// Returns:
//   - ModelBuilderOption: a function that applies the bias option to a model
func WithLodBias(bias float32) ModelBuilderOption {
	return func(m *model) {
		m.lodBias = bias
	}
}

// WithLodScale is an option builder that sets the per-model projected radius multiplier.
//
// Parameters:
//   - scale: the multiplier
//
// Returns:
//   - ModelBuilderOption: a function that applies the scale option to a model
func WithLodScale(scale float32) ModelBuilderOption {
	return func(m *model) {
		m.lodScale = scale
	}
}

// WithBoundingRadius is an option builder that sets the radius used for screen projection.
//
// Parameters:
//   - radius: the bounding sphere radius
//
// Returns:
//   - ModelBuilderOption: a function that applies the radius option to a model
func WithBoundingRadius(radius float32) ModelBuilderOption {
	return func(m *model) {
		m.boundingRadius = radius
	}
}
