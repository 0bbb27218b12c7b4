package status

import (
	"fmt"
	"time"

	"github.com/jbweber/volcheck/api/v1alpha1"
)

// Start moves the run from Pending to Running.
func Start(vc *v1alpha1.VolumeCheck, runID string, now time.Time) error {
	if vc.GetPhase() != v1alpha1.RunPhasePending && vc.GetPhase() != "" {
		return fmt.Errorf("cannot start run from phase %s", vc.GetPhase())
	}

	vc.SetPhase(v1alpha1.RunPhaseRunning)
	vc.Status.RunID = runID
	vc.Status.StartTime = v1alpha1.NewTime(now)
	SetCondition(vc, v1alpha1.ConditionSucceeded, v1alpha1.ConditionUnknown, "Running", "run in progress", now)
	return nil
}

// Finish moves the run to Succeeded, or Failed when err is non-nil.
func Finish(vc *v1alpha1.VolumeCheck, err error, now time.Time) {
	vc.Status.CompletionTime = v1alpha1.NewTime(now)
	if err != nil {
		vc.SetPhase(v1alpha1.RunPhaseFailed)
		SetCondition(vc, v1alpha1.ConditionSucceeded, v1alpha1.ConditionFalse, "StageFailed", err.Error(), now)
		return
	}
	vc.SetPhase(v1alpha1.RunPhaseSucceeded)
	SetCondition(vc, v1alpha1.ConditionSucceeded, v1alpha1.ConditionTrue, "AllStagesPassed", "every stage passed", now)
}

// StartStage appends a Running entry for the stage, or resets an existing one.
func StartStage(vc *v1alpha1.VolumeCheck, name string, now time.Time) *v1alpha1.StageStatus {
	st := vc.Stage(name)
	if st == nil {
		vc.Status.Stages = append(vc.Status.Stages, v1alpha1.StageStatus{Name: name})
		st = &vc.Status.Stages[len(vc.Status.Stages)-1]
	}
	st.Phase = v1alpha1.StagePhaseRunning
	st.StartTime = v1alpha1.NewTime(now)
	st.CompletionTime = v1alpha1.Time{}
	st.Message = ""
	return st
}

// SkipStage records a stage that was not run.
func SkipStage(vc *v1alpha1.VolumeCheck, name, reason string) {
	vc.Status.Stages = append(vc.Status.Stages, v1alpha1.StageStatus{
		Name:    name,
		Phase:   v1alpha1.StagePhaseSkipped,
		Message: reason,
	})
}

// FinishStage marks a Running stage Succeeded, or Failed when err is non-nil.
func FinishStage(vc *v1alpha1.VolumeCheck, name string, err error, now time.Time) error {
	st := vc.Stage(name)
	if st == nil {
		return fmt.Errorf("stage %s was never started", name)
	}
	if st.Phase != v1alpha1.StagePhaseRunning {
		return fmt.Errorf("cannot finish stage %s from phase %s", name, st.Phase)
	}

	st.CompletionTime = v1alpha1.NewTime(now)
	if err != nil {
		st.Phase = v1alpha1.StagePhaseFailed
		st.Message = err.Error()
		return nil
	}
	st.Phase = v1alpha1.StagePhaseSucceeded
	return nil
}

// AddResource records an href created by the stage.
func AddResource(vc *v1alpha1.VolumeCheck, stage, href string) {
	if st := vc.Stage(stage); st != nil {
		st.Resources = append(st.Resources, href)
	}
}

// Duration returns how long a finished stage took, or zero.
func Duration(st *v1alpha1.StageStatus) time.Duration {
	if st.StartTime.IsZero() || st.CompletionTime.IsZero() {
		return 0
	}
	return st.CompletionTime.Sub(st.StartTime.Time)
}

// IsTerminal returns true if the run phase is terminal.
func IsTerminal(phase v1alpha1.RunPhase) bool {
	return phase == v1alpha1.RunPhaseSucceeded || phase == v1alpha1.RunPhaseFailed
}
