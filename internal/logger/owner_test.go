package logger

import (
	"math"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"testing"
	"time"
)

func TestProbeOwner(t *testing.T) {
	t.Run("boundary values", func(t *testing.T) {
		for _, pid := range []int{0, -1} {
			if state := probeOwner(pid); state.Alive || !state.Started.IsZero() {
				t.Fatalf("probeOwner(%d) = %+v, want zero state", pid, state)
			}
		}
	})

	t.Run("pid out of int32 range", func(t *testing.T) {
		if strconv.IntSize <= 32 {
			t.Skip("int cannot represent values above int32 range")
		}
		pid := int(int64(math.MaxInt32) + 1)
		if probeOwner(pid).Alive {
			t.Fatalf("pid %d should not be alive", pid)
		}
	})

	t.Run("current process", func(t *testing.T) {
		state := probeOwner(os.Getpid())
		if !state.Alive {
			t.Fatalf("current process should be alive")
		}
		if state.Started.IsZero() {
			t.Fatalf("current process should report a start time")
		}
		if state.Started.After(time.Now().Add(5 * time.Second)) {
			t.Fatalf("start time in the future: %v", state.Started)
		}
	})

	t.Run("fake pid", func(t *testing.T) {
		if probeOwner(1 << 30).Alive {
			t.Fatalf("pid %d should not be alive", 1<<30)
		}
	})

	t.Run("exited process", func(t *testing.T) {
		pid := exitedProcessPID(t)
		if probeOwner(pid).Alive {
			t.Fatalf("exited child %d should not be alive", pid)
		}
	})
}

func TestOwnerStateOutlivedBy(t *testing.T) {
	written := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		started time.Time
		want    bool
	}{
		{"unknown start", time.Time{}, false},
		{"started before write", written.Add(-time.Minute), false},
		{"started after write", written.Add(time.Minute), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := ownerState{Alive: true, Started: tt.started}
			if got := state.outlivedBy(written); got != tt.want {
				t.Fatalf("outlivedBy = %v, want %v", got, tt.want)
			}
		})
	}
}

func exitedProcessPID(t *testing.T) int {
	t.Helper()

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command("cmd", "/c", "exit 0")
	} else {
		cmd = exec.Command("sh", "-c", "exit 0")
	}
	if err := cmd.Start(); err != nil {
		t.Fatalf("failed to start helper process: %v", err)
	}
	pid := cmd.Process.Pid
	if err := cmd.Wait(); err != nil {
		t.Fatalf("helper process did not exit cleanly: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	return pid
}
