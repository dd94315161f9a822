package driver

import "time"

// Stage is a pipeline step reported to progress listeners.
type Stage uint8

const (
	StageLoad Stage = iota
	StageParse
	StageCheck
	StageCompile
	StageRun
)

func (s Stage) String() string {
	switch s {
	case StageLoad:
		return "loading"
	case StageParse:
		return "parsing"
	case StageCheck:
		return "checking"
	case StageCompile:
		return "compiling"
	case StageRun:
		return "running"
	}
	return ""
}

// Status reports whether a stage started or finished.
type Status uint8

const (
	StatusQueued Status = iota
	StatusWorking
	StatusDone
	StatusError
)

// Event is one progress step. File is empty for events about the whole
// build.
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Elapsed time.Duration
}
