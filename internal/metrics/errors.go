package metrics

import (
	"errors"
	"fmt"
	"strconv"
)

// ContextualError, NamespacedError and NumberedError expose the parts of
// an error used to build its metrics identifier.
type ContextualError interface {
	error
	ErrorContext() string
}

type NamespacedError interface {
	error
	ErrorNamespace() string
}

type NumberedError interface {
	error
	ErrorNumber() int
}

// ErrorToID converts an error to an event name of the form
// error.<context>.<namespace>.<errno>.
func ErrorToID(err error) string {
	context := "unknown context"
	namespace := "unknown namespace"
	number := "unknown error"
	if err != nil && err.Error() != "" {
		number = err.Error()
	}

	var contextual ContextualError
	if errors.As(err, &contextual) && contextual.ErrorContext() != "" {
		context = contextual.ErrorContext()
	}
	var namespaced NamespacedError
	if errors.As(err, &namespaced) && namespaced.ErrorNamespace() != "" {
		namespace = namespaced.ErrorNamespace()
	}
	var numbered NumberedError
	if errors.As(err, &numbered) && numbered.ErrorNumber() != 0 {
		number = strconv.Itoa(numbered.ErrorNumber())
	}

	return fmt.Sprintf("error.%s.%s.%s", context, namespace, number)
}

func (m *Metrics) LogError(err error) {
	m.LogEvent(ErrorToID(err))
}
