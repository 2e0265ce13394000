package session

import "errors"

// alreadyVisibleError is returned by Show outside NOT_SHOWN.
type alreadyVisibleError struct{ state State }

func (e alreadyVisibleError) Error() string {
	return "widget is already visible - you can only call show once per instance (state " + string(e.state) + ")"
}

// IsAlreadyVisible reports whether err comes from a repeated Show.
func IsAlreadyVisible(err error) bool {
	var e alreadyVisibleError
	return errors.As(err, &e)
}

// notVisibleError is returned when an operation needs a shown widget.
type notVisibleError struct{ op string }

func (e notVisibleError) Error() string { return e.op + ": widget is not visible" }

// IsNotVisible reports whether err indicates the widget was never shown.
func IsNotVisible(err error) bool {
	var e notVisibleError
	return errors.As(err, &e)
}

// closeWindowError wraps a failure to close the hosted widget window.
type closeWindowError struct{ err error }

func (e closeWindowError) Error() string {
	return "could not close the widget window: " + e.err.Error()
}

func (e closeWindowError) Unwrap() error { return e.err }

// IsCloseWindow reports whether err is a hosted window close failure.
func IsCloseWindow(err error) bool {
	var e closeWindowError
	return errors.As(err, &e)
}
