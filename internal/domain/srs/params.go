package srs

import (
	"github.com/nepalijets/nepalijets-api/internal/domain"
)

// Params defines all configurable parameters for the scheduling algorithm
type Params struct {
	// Ease factor limits
	DefaultEaseFactor float64
	MinEaseFactor     float64

	// Ratings at or above PassThreshold count as a successful recall
	PassThreshold int

	// Fixed intervals, in days
	FirstInterval   int
	SecondInterval  int
	FailureInterval int

	// Consecutive successful reviews after which an item is mastered
	MasteryRepetitions int
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance.
// Zero fields keep their default.
type ParamsConfig struct {
	DefaultEaseFactor  float64 `mapstructure:"default_ease_factor" validate:"omitempty,gte=1.3"`
	MinEaseFactor      float64 `mapstructure:"min_ease_factor"     validate:"omitempty,gt=1"`
	PassThreshold      int     `mapstructure:"pass_threshold"      validate:"omitempty,gte=1,lte=5"`
	FirstInterval      int     `mapstructure:"first_interval"      validate:"omitempty,gte=1"`
	SecondInterval     int     `mapstructure:"second_interval"     validate:"omitempty,gte=1"`
	FailureInterval    int     `mapstructure:"failure_interval"    validate:"omitempty,gte=1"`
	MasteryRepetitions int     `mapstructure:"mastery_repetitions" validate:"omitempty,gte=1"`
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		DefaultEaseFactor:  domain.DefaultEaseFactor,
		MinEaseFactor:      domain.MinimumEaseFactor,
		PassThreshold:      3,
		FirstInterval:      1,
		SecondInterval:     3,
		FailureInterval:    1,
		MasteryRepetitions: 8,
	}
}

// NewParams creates a new Params instance with custom configuration
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	if config.DefaultEaseFactor > 0 {
		params.DefaultEaseFactor = config.DefaultEaseFactor
	}
	if config.MinEaseFactor > 0 {
		params.MinEaseFactor = config.MinEaseFactor
	}
	if config.PassThreshold > 0 {
		params.PassThreshold = config.PassThreshold
	}
	if config.FirstInterval > 0 {
		params.FirstInterval = config.FirstInterval
	}
	if config.SecondInterval > 0 {
		params.SecondInterval = config.SecondInterval
	}
	if config.FailureInterval > 0 {
		params.FailureInterval = config.FailureInterval
	}
	if config.MasteryRepetitions > 0 {
		params.MasteryRepetitions = config.MasteryRepetitions
	}

	return params
}
