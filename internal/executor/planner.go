package executor

import "sort"

// PlannedTask is a task together with its 0-based submission index.
type PlannedTask struct {
	Index int
	Task  PromptTask
}

// Phase is the set of tasks sharing one sequence number.
type Phase struct {
	Sequence int
	Tasks    []PlannedTask
}

// PlanPhases groups tasks by sequence number and orders the phases ascending.
// Tasks inside a phase keep submission order.
func PlanPhases(tasks []PromptTask) []Phase {
	bySeq := make(map[int][]PlannedTask)
	var seqs []int
	for i, task := range tasks {
		if _, ok := bySeq[task.Sequence]; !ok {
			seqs = append(seqs, task.Sequence)
		}
		bySeq[task.Sequence] = append(bySeq[task.Sequence], PlannedTask{Index: i, Task: task})
	}
	sort.Ints(seqs)

	phases := make([]Phase, 0, len(seqs))
	for _, seq := range seqs {
		phases = append(phases, Phase{Sequence: seq, Tasks: bySeq[seq]})
	}
	return phases
}

// largestPhase returns the phase with the most tasks; ties go to the earliest.
func largestPhase(phases []Phase) (Phase, bool) {
	if len(phases) == 0 {
		return Phase{}, false
	}
	largest := phases[0]
	for _, p := range phases[1:] {
		if len(p.Tasks) > len(largest.Tasks) {
			largest = p
		}
	}
	return largest, true
}
