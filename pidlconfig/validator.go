package pidlconfig

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validatorOnce sync.Once
	validatorInst *validator.Validate
)

// validatorInstance returns the shared validator instance used to check a
// Document before it is built into a pipeline. validator.Validate caches
// reflected struct metadata internally, so one process-wide instance is
// worth keeping rather than constructing one per Parse call.
func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		validatorInst = validator.New()
	})
	return validatorInst
}
