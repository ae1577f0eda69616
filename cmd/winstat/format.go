package main

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/restic/winposix/internal/table"
	"github.com/restic/winposix/posix"
)

// statRecord is the JSON representation of a stat result.
type statRecord struct {
	MessageType string `json:"message_type"` // stat
	Path        string `json:"path"`

	Dev        uint64    `json:"dev"`
	Ino        uint64    `json:"ino"`
	Mode       uint32    `json:"mode"`
	Nlink      uint32    `json:"nlink"`
	UID        int       `json:"uid,omitempty"`
	Size       int64     `json:"size"`
	Blocks     int64     `json:"blocks"`
	BlockSize  int64     `json:"blksize,omitempty"`
	Atime      time.Time `json:"atime"`
	Mtime      time.Time `json:"mtime"`
	Ctime      time.Time `json:"ctime"`
	Birthtime  time.Time `json:"birthtime"`
	Attributes uint32    `json:"attributes,omitempty"`

	Error string `json:"error,omitempty"`
	Code  int    `json:"code,omitempty"`
}

func newStatRecord(path string, st *posix.FileStat, code int) statRecord {
	rec := statRecord{
		MessageType: "stat",
		Path:        path,
	}
	if code != 0 {
		rec.Code = code
		if st.Err() != nil {
			rec.Error = st.Err().Error()
		}
		return rec
	}

	rec.Dev = st.Dev()
	rec.Ino = st.Ino()
	rec.Mode = st.Mode()
	rec.Nlink = st.Nlink()
	rec.UID = st.UID()
	rec.Size = st.Size()
	rec.Blocks = st.Blocks()
	rec.BlockSize = st.BlockSize()
	rec.Atime = st.Atime().Time()
	rec.Mtime = st.Mtime().Time()
	rec.Ctime = st.Ctime().Time()
	rec.Birthtime = st.Birthtime().Time()
	rec.Attributes = st.Attributes()
	return rec
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// printRecords writes the successful records to w, as JSON lines or a
// table. The table is aligned on terminals and tab separated otherwise.
func printRecords(w io.Writer, asJSON bool, records []statRecord) error {
	if asJSON {
		enc := json.NewEncoder(w)
		for _, rec := range records {
			if err := enc.Encode(rec); err != nil {
				return err
			}
		}
		return nil
	}

	tab := table.New()
	tab.Plain = !isTerminal(w)
	tab.AddColumn("Mode", "{{octal .Mode}}")
	tab.AddColumn("Links", "{{.Nlink}}")
	tab.AddColumn("Size", "{{.Size}}")
	tab.AddColumn("Device", `{{printf "%#x" .Dev}}`)
	tab.AddColumn("Inode", `{{printf "%#x" .Ino}}`)
	tab.AddColumn("Modified", `{{.Mtime.Format "2006-01-02 15:04:05.000000000"}}`)
	tab.AddColumn("Path", "{{.Path}}")

	for _, rec := range records {
		if rec.Code != 0 {
			continue
		}
		if err := tab.AddRow(rec); err != nil {
			return err
		}
	}
	if tab.Len() == 0 {
		return nil
	}
	return tab.Write(w)
}
