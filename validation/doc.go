// Package validation validates configuration and query options.
//
// Struct tag validation (go-playground/validator) is used for configuration
// structs; the programmatic Validator collects ad-hoc checks. Both report a
// single *errors.AppError listing every failing field.
//
//	type CacheConfig struct {
//	    Policy string `mapstructure:"policy" validate:"oneof=stale-while-revalidate refetch"`
//	}
//	err := validation.Validate(cfg)
package validation
