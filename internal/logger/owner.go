package logger

import (
	"errors"
	"math"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// ownerState describes the process a log file is named after.
type ownerState struct {
	Alive   bool
	Started time.Time
}

// probeOwner inspects pid. Inspection errors other than "not running" count
// as alive so a live batch never loses its log.
func probeOwner(pid int) ownerState {
	if pid <= 0 || pid > math.MaxInt32 {
		return ownerState{}
	}
	pid32 := int32(pid)

	exists, err := process.PidExists(pid32)
	if err == nil && !exists {
		return ownerState{}
	}
	if errors.Is(err, process.ErrorProcessNotRunning) {
		return ownerState{}
	}

	state := ownerState{Alive: true}
	proc, err := process.NewProcess(pid32)
	if err != nil {
		return state
	}
	if ms, err := proc.CreateTime(); err == nil && ms > 0 {
		state.Started = time.UnixMilli(ms)
	}
	return state
}

// outlivedBy reports whether the pid was recycled: its current process
// started after the log was last written.
func (s ownerState) outlivedBy(logModTime time.Time) bool {
	return !s.Started.IsZero() && s.Started.After(logModTime)
}
