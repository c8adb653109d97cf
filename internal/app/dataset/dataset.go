/*
Package dataset reports on the external CSV dataset that relay clients display.

A Provider produces a Snapshot describing the most recently modified dataset
file (local disk or S3). The Watcher polls a Provider on a fixed interval and
hands each result to the relay, flagging the ones that represent a change.
*/
package dataset

import (
	"bytes"
	"context"
	"io"
	"time"
)

// MaxRowCountBytes caps the size of a dataset whose rows are counted.
// Larger files report zero rows.
const MaxRowCountBytes = 10 << 20

// Snapshot describes the current dataset file.
type Snapshot struct {
	Exists       bool       `json:"exists"`
	ModifiedTime *time.Time `json:"modifiedTime"`
	Size         int64      `json:"size"`
	Rows         int        `json:"rows"`
	Path         string     `json:"path,omitempty"`
}

// Missing is the snapshot reported when no dataset file exists.
var Missing = Snapshot{}

// ChangedFrom reports whether s should be announced given the previously announced snapshot.
// Only existing datasets are announced: a new file, a new modification time or a new size.
func (s Snapshot) ChangedFrom(prev Snapshot) bool {
	if !s.Exists {
		return false
	}
	if !prev.Exists {
		return true
	}
	if !sameTime(s.ModifiedTime, prev.ModifiedTime) {
		return true
	}
	return s.Size != prev.Size
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// Provider produces dataset snapshots.
type Provider interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// countRows counts newline-terminated rows after the header line,
// i.e. the number of newline characters in r.
func countRows(r io.Reader) (int, error) {
	buf := make([]byte, 32*1024)
	rows := 0
	for {
		n, err := r.Read(buf)
		rows += bytes.Count(buf[:n], []byte{'\n'})
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return 0, err
		}
	}
}
