// Package validation validates configuration structs using struct tags.
//
//	type PipelineConfig struct {
//	    BatchSize int    `mapstructure:"batch_size" validate:"gte=1"`
//	    Match     string `mapstructure:"match" validate:"omitempty,regexp"`
//	}
//	err := validation.Validate(cfg)
//
// Failures are reported as a single INVALID_INPUT errors.AppError whose
// "fields" detail lists every offending field by its mapstructure name.
package validation
