package pkpass

import "fmt"

// Stage is a step of the issuance of a pass
type Stage int

// Stages a request goes through, in order. Any stage may move to
// StageFailed, which is terminal.
const (
	StageIdle Stage = iota
	StageCredentialsReady
	StageContentBuilt
	StageManifestComputed
	StageSigned
	StagePackaged
	StageDone
	StageFailed
)

var stageNames = map[Stage]string{
	StageIdle:             "idle",
	StageCredentialsReady: "credentials ready",
	StageContentBuilt:     "content built",
	StageManifestComputed: "manifest computed",
	StageSigned:           "signed",
	StagePackaged:         "packaged",
	StageDone:             "done",
	StageFailed:           "failed",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// StageError is returned when a request fails. Stage is the stage the
// request was moving to and After the last stage it completed.
type StageError struct {
	Stage Stage
	After Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pkpass: failed to move from %s to %s: %v", e.After, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// issuance tracks the stage of one request. Transitions only go
// forward one stage at a time, there are no retries.
type issuance struct {
	stage Stage
}

// advance moves to next, or to StageFailed when err is set
func (i *issuance) advance(next Stage, err error) error {
	if i.stage == StageFailed {
		return &StageError{Stage: next, After: StageFailed, Err: fmt.Errorf("request already failed")}
	}
	if err == nil && next != i.stage+1 {
		err = fmt.Errorf("invalid transition")
	}
	if err != nil {
		serr := &StageError{Stage: next, After: i.stage, Err: err}
		i.stage = StageFailed
		return serr
	}
	i.stage = next
	return nil
}
