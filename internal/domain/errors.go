package domain

import "fmt"

// Общие доменные ошибки. Вызывающий оборачивает их контекстом и различает через errors.Is.
var (
	ErrNotFound    = notFoundError("not found")
	ErrValidation  = validationError("invalid data")
	ErrAuth        = authError("not authenticated")
	ErrForbidden   = forbiddenError("forbidden")
	ErrPersistence = persistenceError("store write failed")
)

type notFoundError string

func (e notFoundError) Error() string { return string(e) }

type validationError string

func (e validationError) Error() string { return string(e) }

type authError string

func (e authError) Error() string { return string(e) }

type forbiddenError string

func (e forbiddenError) Error() string { return string(e) }

type persistenceError string

func (e persistenceError) Error() string { return string(e) }

// Invalid возвращает ошибку валидации с понятной причиной.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// JobFailure описывает сбой фоновой задачи. Воркер пишет его в лог, до запроса,
// поставившего задачу, он не доходит.
type JobFailure struct {
	Job string
	ID  string
	Err error
}

func (e *JobFailure) Error() string {
	return fmt.Sprintf("job %s (%s) failed: %v", e.Job, e.ID, e.Err)
}

func (e *JobFailure) Unwrap() error { return e.Err }
