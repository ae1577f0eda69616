//go:build !windows

package errors

func platformKind(_ error) (Kind, bool) {
	return IoError, false
}
