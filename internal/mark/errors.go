package mark

import (
	"errors"
	"fmt"
)

var errProbabilityRange = errors.New("classifier probability outside [0,1]")

type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("classifier panicked: %v", e.value)
}
