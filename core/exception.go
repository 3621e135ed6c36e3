package core

import "fmt"

// ThrowError panics with err if err is non-nil.
func ThrowError(err error) {
	if err != nil {
		panic(err)
	}
}

// ThrowErrorString throws a string as an error
func ThrowErrorString(msg string) {
	panic(fmt.Errorf("%s", msg))
}

// Throw throws any value
func Throw(e interface{}) {
	if err, ok := e.(error); ok {
		panic(err)
	}
	panic(fmt.Errorf("%v", e))
}

// ThrowIf throws e if cond is true
func ThrowIf(cond bool, e interface{}) {
	if cond {
		Throw(e)
	}
}

// ThrowErrorf throws a formatted error
func ThrowErrorf(format string, args ...interface{}) {
	panic(fmt.Errorf(format, args...))
}

// Try executes fn and recovers from any panic, converting it to an error.
// This is the boundary used by Client.Connect and Client.Run: every lower
// layer fails fast via Throw*/ThrowIf and Try turns that into a normal
// Go error at the API surface.
func Try(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = fmt.Errorf("%v", r)
			}
		}
	}()
	fn()
	return nil
}

// TryCatch executes fn and invokes onError with the recovered panic value,
// if any. Used by decoders that need to classify the panic (tests assert
// on its concrete type) rather than flatten it into an error string.
func TryCatch(fn func(), onError func(e any)) {
	defer func() {
		if r := recover(); r != nil {
			onError(r)
		}
	}()
	fn()
}
