package authsdk

// Result is the uniform outcome of every SDK operation. Failures never
// surface as Go errors or panics; callers branch on Success.
type Result[T any] struct {
	Success    bool
	Data       T
	Error      string
	Errors     []FieldError
	StatusCode int
}

func succeeded[T any](data T, status int) Result[T] {
	return Result[T]{Success: true, Data: data, StatusCode: status}
}

func failed[T any](err error) Result[T] {
	apiErr := AsAPIError(err)
	return Result[T]{
		Error:      apiErr.Message,
		Errors:     apiErr.Errors,
		StatusCode: apiErr.StatusCode,
	}
}
