package placement

import (
	"math"

	"github.com/matzehuels/sceneguard/pkg/errors"
)

// =============================================================================
// Defaults
// =============================================================================

const (
	DefaultGridSize           = 8
	DefaultGridCols           = 4
	DefaultGridRows           = 3
	DefaultConfidenceFloor    = 0.5
	DefaultCollisionMargin    = 0.3
	DefaultMinRegionFraction  = 0.02
	DefaultSpiralRadiusStep   = 0.25
	DefaultSpiralAngleStep    = math.Pi / 8
	DefaultSpiralRiskLimit    = 0.3
	DefaultForceIterations    = 50
	DefaultRepulsion          = 1.0
	DefaultAttraction         = 0.05
	DefaultForceStep          = 0.2
	DefaultAltRiskLimit       = 0.7
	DefaultMaxAlternatives    = 5
	DefaultCameraHintFraction = 0.8
	DefaultTextSpacing        = 0.25
)

// FallbackConfidence is the confidence reported when no strategy produced an
// acceptable candidate.
const FallbackConfidence = 0.1

// Config holds the placement tunables. Zero fields are replaced by defaults in
// SetDefaults, so a partially filled Config decoded from TOML is usable.
type Config struct {
	GridSize           int     `toml:"grid_size" json:"grid_size"`
	GridCols           int     `toml:"grid_cols" json:"grid_cols"`
	GridRows           int     `toml:"grid_rows" json:"grid_rows"`
	ConfidenceFloor    float64 `toml:"confidence_floor" json:"confidence_floor"`
	CollisionMargin    float64 `toml:"collision_margin" json:"collision_margin"`
	MinRegionFraction  float64 `toml:"min_region_fraction" json:"min_region_fraction"`
	SpiralRadiusStep   float64 `toml:"spiral_radius_step" json:"spiral_radius_step"`
	SpiralAngleStep    float64 `toml:"spiral_angle_step" json:"spiral_angle_step"`
	SpiralRiskLimit    float64 `toml:"spiral_risk_limit" json:"spiral_risk_limit"`
	ForceIterations    int     `toml:"force_iterations" json:"force_iterations"`
	Repulsion          float64 `toml:"repulsion" json:"repulsion"`
	Attraction         float64 `toml:"attraction" json:"attraction"`
	ForceStep          float64 `toml:"force_step" json:"force_step"`
	AltRiskLimit       float64 `toml:"alt_risk_limit" json:"alt_risk_limit"`
	MaxAlternatives    int     `toml:"max_alternatives" json:"max_alternatives"`
	CameraHintFraction float64 `toml:"camera_hint_fraction" json:"camera_hint_fraction"`
	TextSpacing        float64 `toml:"text_spacing" json:"text_spacing"`
}

// DefaultConfig returns a Config with every field set to its default.
func DefaultConfig() Config {
	var c Config
	c.SetDefaults()
	return c
}

// SetDefaults fills zero-valued fields.
func (c *Config) SetDefaults() {
	setInt(&c.GridSize, DefaultGridSize)
	setInt(&c.GridCols, DefaultGridCols)
	setInt(&c.GridRows, DefaultGridRows)
	setInt(&c.ForceIterations, DefaultForceIterations)
	setInt(&c.MaxAlternatives, DefaultMaxAlternatives)
	setFloat(&c.ConfidenceFloor, DefaultConfidenceFloor)
	setFloat(&c.CollisionMargin, DefaultCollisionMargin)
	setFloat(&c.MinRegionFraction, DefaultMinRegionFraction)
	setFloat(&c.SpiralRadiusStep, DefaultSpiralRadiusStep)
	setFloat(&c.SpiralAngleStep, DefaultSpiralAngleStep)
	setFloat(&c.SpiralRiskLimit, DefaultSpiralRiskLimit)
	setFloat(&c.Repulsion, DefaultRepulsion)
	setFloat(&c.Attraction, DefaultAttraction)
	setFloat(&c.ForceStep, DefaultForceStep)
	setFloat(&c.AltRiskLimit, DefaultAltRiskLimit)
	setFloat(&c.CameraHintFraction, DefaultCameraHintFraction)
	setFloat(&c.TextSpacing, DefaultTextSpacing)
}

// Validate checks ranges. Call SetDefaults first.
func (c Config) Validate() error {
	if c.GridSize < 2 || c.GridSize > 256 {
		return errors.New(errors.ErrCodeInvalidConfig, "placement.grid_size must be within [2, 256], got %d", c.GridSize)
	}
	if c.GridCols < 1 || c.GridRows < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "placement grid layout must have at least one row and column")
	}
	if c.ForceIterations < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "placement.force_iterations must be positive")
	}
	if c.MaxAlternatives < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "placement.max_alternatives must be non-negative")
	}
	for name, v := range map[string]float64{
		"placement.confidence_floor":     c.ConfidenceFloor,
		"placement.spiral_risk_limit":    c.SpiralRiskLimit,
		"placement.alt_risk_limit":       c.AltRiskLimit,
		"placement.camera_hint_fraction": c.CameraHintFraction,
		"placement.min_region_fraction":  c.MinRegionFraction,
	} {
		if err := errors.ValidateUnit(name, v); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid placement config")
		}
	}
	if c.CollisionMargin < 0 || c.SpiralRadiusStep <= 0 || c.SpiralAngleStep <= 0 || c.ForceStep <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "placement step sizes must be positive and margin non-negative")
	}
	return nil
}

func setInt(p *int, def int) {
	if *p == 0 {
		*p = def
	}
}

func setFloat(p *float64, def float64) {
	if *p == 0 {
		*p = def
	}
}
