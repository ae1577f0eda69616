package filetime_test

import (
	"testing"
	"time"

	"github.com/restic/winposix/internal/errors"
	"github.com/restic/winposix/internal/filetime"
	rtest "github.com/restic/winposix/internal/test"
)

func TestEpoch(t *testing.T) {
	// 1970-01-01 00:00:00 UTC
	ts := filetime.Filetime(filetime.EpochDelta).Timespec()
	rtest.Equals(t, filetime.Timespec{}, ts)

	ft, err := filetime.FromTimespec(filetime.Timespec{})
	rtest.OK(t, err)
	rtest.Equals(t, filetime.Filetime(filetime.EpochDelta), ft)

	// 1601-01-01 00:00:00 UTC
	ts = filetime.Filetime(0).Timespec()
	rtest.Equals(t, filetime.Timespec{Sec: -11644473600}, ts)
	rtest.Assert(t, filetime.Filetime(0).Time().Equal(time.Date(1601, 1, 1, 0, 0, 0, 0, time.UTC)),
		"wrong time for FILETIME zero: %v", filetime.Filetime(0).Time())
}

func TestToTimespec(t *testing.T) {
	var tests = []struct {
		ft filetime.Filetime
		ts filetime.Timespec
	}{
		{filetime.EpochDelta + 1, filetime.Timespec{Sec: 0, Nsec: 100}},
		{filetime.EpochDelta + filetime.TicksPerSecond, filetime.Timespec{Sec: 1}},
		{filetime.EpochDelta + 15*filetime.TicksPerSecond + 1234567, filetime.Timespec{Sec: 15, Nsec: 123456700}},
		// before 1970 the nanoseconds must stay positive
		{filetime.EpochDelta - 1, filetime.Timespec{Sec: -1, Nsec: 999999900}},
		{filetime.EpochDelta - filetime.TicksPerSecond, filetime.Timespec{Sec: -1}},
	}

	for _, test := range tests {
		t.Run("", func(t *testing.T) {
			ts := test.ft.Timespec()
			if ts != test.ts {
				t.Fatalf("wrong timespec for %d: want %+v, got %+v", test.ft, test.ts, ts)
			}

			ft, err := filetime.FromTimespec(ts)
			rtest.OK(t, err)
			rtest.Equals(t, test.ft, ft)
		})
	}
}

func TestFromTimespecTruncates(t *testing.T) {
	ft, err := filetime.FromTimespec(filetime.Timespec{Sec: 1000, Nsec: 123456789})
	rtest.OK(t, err)
	rtest.Equals(t, filetime.Timespec{Sec: 1000, Nsec: 123456700}, ft.Timespec())

	ft, err = filetime.FromTimespec(filetime.Timespec{Sec: 1000, Nsec: 99})
	rtest.OK(t, err)
	rtest.Equals(t, filetime.Timespec{Sec: 1000}, ft.Timespec())
}

func TestFromTimespecInvalid(t *testing.T) {
	var tests = []filetime.Timespec{
		{Sec: 0, Nsec: -1},
		{Sec: 0, Nsec: 1_000_000_000},
		{Sec: 0, Nsec: filetime.UtimeNow},
		{Sec: -11644473601, Nsec: 0},
		{Sec: 1 << 62, Nsec: 0},
	}

	for _, ts := range tests {
		_, err := filetime.FromTimespec(ts)
		rtest.ErrorKind(t, err, errors.InvalidArgument)
	}
}

func TestFromTimeval(t *testing.T) {
	ft, err := filetime.FromTimeval(filetime.Timeval{Sec: 42, Usec: 999999})
	rtest.OK(t, err)
	rtest.Equals(t, filetime.Timespec{Sec: 42, Nsec: 999999000}, ft.Timespec())

	_, err = filetime.FromTimeval(filetime.Timeval{Sec: 42, Usec: 1_000_000})
	rtest.ErrorKind(t, err, errors.InvalidArgument)
	_, err = filetime.FromTimeval(filetime.Timeval{Sec: 42, Usec: -1})
	rtest.ErrorKind(t, err, errors.InvalidArgument)
}

func TestSplitJoin(t *testing.T) {
	ft := filetime.Filetime(0x01d9_a5b4_c3d2_e1f0)
	low, high := ft.Split()
	rtest.Equals(t, uint32(0xc3d2e1f0), low)
	rtest.Equals(t, uint32(0x01d9a5b4), high)
	rtest.Equals(t, ft, filetime.Join(low, high))
}

func TestFromTime(t *testing.T) {
	now := time.Date(2024, 2, 29, 12, 30, 45, 987654321, time.UTC)
	ft := filetime.FromTime(now)
	rtest.Equals(t, filetime.Timespec{Sec: now.Unix(), Nsec: 987654300}, ft.Timespec())
	rtest.Assert(t, ft.Time().Equal(now.Truncate(100*time.Nanosecond)), "wrong time %v", ft.Time())

	rtest.Equals(t, filetime.Filetime(0), filetime.FromTime(time.Date(1500, 1, 1, 0, 0, 0, 0, time.UTC)))
	rtest.Equals(t, filetime.TimespecOf(now), filetime.Timespec{Sec: now.Unix(), Nsec: 987654321})
}

func TestUtimeMarkers(t *testing.T) {
	rtest.Assert(t, filetime.Timespec{Nsec: filetime.UtimeNow}.IsNow(), "UtimeNow not detected")
	rtest.Assert(t, filetime.Timespec{Nsec: filetime.UtimeOmit}.IsOmit(), "UtimeOmit not detected")
	rtest.Assert(t, !filetime.Timespec{Nsec: 5}.IsNow(), "plain timespec detected as UtimeNow")
}
