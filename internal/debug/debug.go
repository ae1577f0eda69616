// Package debug implements the environment controlled debug log.
//
// DEBUG_LOG names a file every message is appended to. DEBUG_FILES and
// DEBUG_FUNCS select messages that are also printed to stderr. Both take a
// comma separated list of patterns, the first matching pattern decides and a
// leading "-" excludes:
//
//	DEBUG_FILES=posix,-winpath      all of package posix, nothing of winpath
//	DEBUG_FILES=lookup.go           one file, in any package
//	DEBUG_FILES=posix/mutate.go:1*  lines 1, 10-19, 100-199, ... of a file
//	DEBUG_FUNCS=posix.*.lookup*     functions, matched with path.Match
//
// A bare package name selects the package, "all" selects everything.
package debug

import (
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

var state struct {
	enabled bool
	logger  *log.Logger
	files   filter
	funcs   filter
}

// make sure that all the initialization happens before the init() functions
// are called, cf https://golang.org/ref/spec#Package_initialization
var _ = initDebug()

func initDebug() bool {
	var err error
	state.files, err = parseFilter(os.Getenv("DEBUG_FILES"))
	if err == nil {
		state.funcs, err = parseFilter(os.Getenv("DEBUG_FUNCS"))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "debug: %v\n", err)
		os.Exit(5)
	}

	if name := os.Getenv("DEBUG_LOG"); name != "" {
		f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			fmt.Fprintf(os.Stderr, "unable to open debug log file: %v\n", err)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "debug log file %v\n", name)
		state.logger = log.New(f, "", log.LstdFlags)
	}

	state.enabled = state.logger != nil || len(state.files) > 0 || len(state.funcs) > 0
	if state.enabled {
		fmt.Fprintf(os.Stderr, "debug enabled\n")
	}
	return state.enabled
}

// Enabled reports whether debug logging is active. Callers use it to skip
// collecting values that are only logged.
func Enabled() bool {
	return state.enabled
}

// site is the source position a message was logged from.
type site struct {
	pkg  string // last element of the package directory
	file string
	fn   string // package qualified, e.g. posix.(*POSIX).lookup
	line int
}

func (s site) String() string {
	return s.pkg + "/" + s.file + ":" + strconv.Itoa(s.line)
}

// selected reports whether messages from s go to stderr.
func (s site) selected() bool {
	pos := s.String()
	if include, ok := state.files.match(s.pkg, pos, s.pkg+"/"+s.file, s.file); ok {
		return include
	}
	include, _ := state.funcs.match(s.pkg, s.fn)
	return include
}

func caller(skip int) site {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return site{}
	}

	s := site{
		pkg:  filepath.Base(filepath.Dir(file)),
		file: filepath.Base(file),
		line: line,
	}
	if fn := runtime.FuncForPC(pc); fn != nil {
		s.fn = path.Base(fn.Name())
	}
	return s
}

// goroutineNum parses the id from the header of the current goroutine's
// stack, "goroutine 42 [running]:".
func goroutineNum() int {
	buf := make([]byte, 32)
	buf = buf[:runtime.Stack(buf, false)]

	fields := strings.Fields(string(buf))
	if len(fields) < 2 {
		return 0
	}
	n, _ := strconv.Atoi(fields[1])
	return n
}

// Shortener is implemented by values with a compact debug form, such as
// normalized paths.
type Shortener interface {
	Str() string
}

// Log prints a message to the debug log (if debug is enabled).
func Log(f string, args ...any) {
	if !state.enabled {
		return
	}

	s := caller(1)

	if !strings.HasSuffix(f, "\n") {
		f += "\n"
	}
	for i, item := range args {
		if shortener, ok := item.(Shortener); ok {
			args[i] = shortener.Str()
		}
	}

	msg := fmt.Sprintf("%v\t%s\t%d\t", s, s.fn, goroutineNum()) + fmt.Sprintf(f, args...)

	if state.logger != nil {
		state.logger.Print(msg)
	}
	if s.selected() {
		_, _ = os.Stderr.WriteString(msg)
	}
}
