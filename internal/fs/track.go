package fs

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/restic/winposix/internal/debug"
	"github.com/restic/winposix/internal/filetime"
	"github.com/restic/winposix/internal/table"
)

// Track wraps another Win32 layer and records the number of calls, failures
// and the time spent per operation.
type Track struct {
	sys Win32

	m     sync.Mutex
	stats map[string]*CallStats
}

// statically ensure that Track implements Win32.
var _ Win32 = &Track{}

// CallStats summarizes the calls of one Win32 operation.
type CallStats struct {
	Op       string
	Calls    int
	Failures int
	Duration time.Duration
}

// NewTrack returns a Track wrapping sys.
func NewTrack(sys Win32) *Track {
	return &Track{
		sys:   sys,
		stats: make(map[string]*CallStats),
	}
}

func (t *Track) record(op string, arg any, start time.Time, err error) {
	d := time.Since(start)
	debug.Log("%v %v took %v, err %v", op, arg, d, err)

	t.m.Lock()
	defer t.m.Unlock()

	st, ok := t.stats[op]
	if !ok {
		st = &CallStats{Op: op}
		t.stats[op] = st
	}
	st.Calls++
	st.Duration += d
	if err != nil {
		st.Failures++
	}
}

// Stats returns the statistics of all operations called so far, sorted by
// operation.
func (t *Track) Stats() []CallStats {
	t.m.Lock()
	defer t.m.Unlock()

	res := make([]CallStats, 0, len(t.stats))
	for _, st := range t.stats {
		res = append(res, *st)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Op < res[j].Op
	})
	return res
}

// WriteStats prints the statistics as a table.
func (t *Track) WriteStats(w io.Writer) error {
	tab := table.New()
	tab.AddColumn("Operation", "{{.Op}}")
	tab.AddColumn("Calls", "{{.Calls}}")
	tab.AddColumn("Failed", "{{.Failures}}")
	tab.AddColumn("Time", "{{.Duration}}")

	for _, st := range t.Stats() {
		if err := tab.AddRow(st); err != nil {
			return err
		}
	}
	return tab.Write(w)
}

func (t *Track) FindFirstFile(path string) (FindData, error) {
	start := time.Now()
	data, err := t.sys.FindFirstFile(path)
	t.record("FindFirstFile", path, start, err)
	return data, err
}

func (t *Track) GetFileAttributesEx(path string) (AttributeData, error) {
	start := time.Now()
	data, err := t.sys.GetFileAttributesEx(path)
	t.record("GetFileAttributesEx", path, start, err)
	return data, err
}

func (t *Track) CreateFile(path string, access, flags uint32) (Handle, error) {
	start := time.Now()
	h, err := t.sys.CreateFile(path, access, flags)
	t.record("CreateFile", path, start, err)
	return h, err
}

func (t *Track) GetFileInformationByHandle(fd uintptr) (HandleInfo, error) {
	start := time.Now()
	info, err := t.sys.GetFileInformationByHandle(fd)
	t.record("GetFileInformationByHandle", handleArg(fd), start, err)
	return info, err
}

func (t *Track) GetFinalPathNameByHandle(fd uintptr) (string, error) {
	start := time.Now()
	name, err := t.sys.GetFinalPathNameByHandle(fd)
	t.record("GetFinalPathNameByHandle", handleArg(fd), start, err)
	return name, err
}

func (t *Track) SetFileTime(fd uintptr, atime, mtime *filetime.Filetime) error {
	start := time.Now()
	err := t.sys.SetFileTime(fd, atime, mtime)
	t.record("SetFileTime", handleArg(fd), start, err)
	return err
}

func (t *Track) DeleteFile(path string) error {
	start := time.Now()
	err := t.sys.DeleteFile(path)
	t.record("DeleteFile", path, start, err)
	return err
}

// handleArg formats a handle for the debug log.
type handleArg uintptr

func (h handleArg) String() string {
	return fmt.Sprintf("handle %#x", uintptr(h))
}
