//go:build windows

package filetime

import "golang.org/x/sys/windows"

// FromWindows converts the x/sys representation.
func FromWindows(ft windows.Filetime) Filetime {
	return Join(ft.LowDateTime, ft.HighDateTime)
}

// Windows returns the x/sys representation of ft.
func (ft Filetime) Windows() windows.Filetime {
	low, high := ft.Split()
	return windows.Filetime{LowDateTime: low, HighDateTime: high}
}
