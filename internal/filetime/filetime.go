// Package filetime converts between Windows FILETIME values and POSIX
// timestamps.
//
// A FILETIME counts 100ns intervals since 1601-01-01 UTC. POSIX timestamps
// are seconds since 1970-01-01 UTC plus a nanosecond (timespec) or
// microsecond (timeval) part. Converting to a FILETIME truncates to the
// nearest lower 100ns boundary.
package filetime

import (
	"time"

	"github.com/restic/winposix/internal/errors"
)

const (
	// TicksPerSecond is the number of FILETIME intervals per second.
	TicksPerSecond = 10_000_000

	// nanoseconds per tick
	tickNsec = 100

	// EpochDelta is the distance between 1601-01-01 and 1970-01-01 in ticks
	// (11644473600 seconds).
	EpochDelta = 116444736000000000

	epochDeltaSec = EpochDelta / TicksPerSecond

	nsecPerSec  = 1_000_000_000
	usecPerSec  = 1_000_000
	nsecPerUsec = 1_000
)

// Special values of Timespec.Nsec understood by utimensat.
const (
	UtimeNow  = (1 << 30) - 1
	UtimeOmit = (1 << 30) - 2
)

// Filetime is a count of 100ns intervals since 1601-01-01 UTC.
type Filetime uint64

// Timespec is a POSIX time with nanosecond resolution.
type Timespec struct {
	Sec  int64
	Nsec int64
}

// Timeval is a POSIX time with microsecond resolution.
type Timeval struct {
	Sec  int64
	Usec int64
}

// Join assembles a Filetime from the two halves stored in Win32 structures.
func Join(low, high uint32) Filetime {
	return Filetime(uint64(high)<<32 | uint64(low))
}

// Split returns the low and high halves of ft.
func (ft Filetime) Split() (low, high uint32) {
	return uint32(ft), uint32(ft >> 32)
}

// Timespec converts ft to POSIX time. Nsec is always in [0, 1e9), also for
// instants before 1970.
func (ft Filetime) Timespec() Timespec {
	// Win32 rejects FILETIME values with the high bit set, so int64 suffices
	ticks := int64(ft) - EpochDelta

	sec := ticks / TicksPerSecond
	rem := ticks % TicksPerSecond
	if rem < 0 {
		sec--
		rem += TicksPerSecond
	}
	return Timespec{Sec: sec, Nsec: rem * tickNsec}
}

// Time converts ft to a time.Time in UTC.
func (ft Filetime) Time() time.Time {
	return ft.Timespec().Time()
}

func (ft Filetime) String() string {
	return ft.Time().Format(time.RFC3339Nano)
}

// IsZero reports whether ft is unset.
func (ft Filetime) IsZero() bool {
	return ft == 0
}

// Time converts ts to a time.Time in UTC.
func (ts Timespec) Time() time.Time {
	return time.Unix(ts.Sec, ts.Nsec).UTC()
}

// IsNow reports whether ts carries the UtimeNow marker.
func (ts Timespec) IsNow() bool {
	return ts.Nsec == UtimeNow
}

// IsOmit reports whether ts carries the UtimeOmit marker.
func (ts Timespec) IsOmit() bool {
	return ts.Nsec == UtimeOmit
}

// FromTimespec converts ts to a Filetime, truncating to 100ns. Nsec must be
// in [0, 1e9) and the instant must not be before 1601-01-01.
func FromTimespec(ts Timespec) (Filetime, error) {
	if ts.Nsec < 0 || ts.Nsec >= nsecPerSec {
		return 0, errors.Kindf(errors.InvalidArgument, "nanoseconds %d out of range", ts.Nsec)
	}
	if ts.Sec < -epochDeltaSec {
		return 0, errors.Kindf(errors.InvalidArgument, "time %d is before 1601", ts.Sec)
	}
	if ts.Sec > (1<<63-1)/TicksPerSecond-epochDeltaSec-1 {
		return 0, errors.Kindf(errors.InvalidArgument, "time %d out of range", ts.Sec)
	}

	ticks := (ts.Sec+epochDeltaSec)*TicksPerSecond + ts.Nsec/tickNsec
	return Filetime(ticks), nil
}

// FromTimeval converts tv to a Filetime. Usec must be in [0, 1e6).
func FromTimeval(tv Timeval) (Filetime, error) {
	if tv.Usec < 0 || tv.Usec >= usecPerSec {
		return 0, errors.Kindf(errors.InvalidArgument, "microseconds %d out of range", tv.Usec)
	}
	return FromTimespec(Timespec{Sec: tv.Sec, Nsec: tv.Usec * nsecPerUsec})
}

// FromTime converts t to a Filetime, truncating to 100ns. Instants before
// 1601 are clamped to zero.
func FromTime(t time.Time) Filetime {
	ft, err := FromTimespec(Timespec{Sec: t.Unix(), Nsec: int64(t.Nanosecond())})
	if err != nil {
		return 0
	}
	return ft
}

// TimespecOf returns the Timespec for t.
func TimespecOf(t time.Time) Timespec {
	return Timespec{Sec: t.Unix(), Nsec: int64(t.Nanosecond())}
}
