package scenario

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jbweber/volcheck/internal/faults"
	"github.com/jbweber/volcheck/internal/logging"
	"github.com/jbweber/volcheck/internal/status"
)

// Run executes every stage of the session in order and records the outcome
// on the session's VolumeCheck status.
//
// The first failing stage aborts the run. Whatever the run still holds is
// then released in reverse order; cleanup errors are logged and recorded in
// the CleanedUp condition, and the stage failure is returned. Cleanup runs
// even when ctx has been cancelled.
func Run(ctx context.Context, s *Session) (err error) {
	vc := s.Check
	log := logging.ForRun(s.Logger, s.RunID)

	if len(s.Slots) == 0 {
		return faults.ConfigurationFault("platform %q has no device slots", s.Platform)
	}
	if err := status.Start(vc, s.RunID, s.now()); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"platform": s.Platform,
		"slots":    len(s.Slots),
	}).Info("Run started.")

	defer func() {
		s.log = log
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.stageTimeout())
		defer cancel()
		if left := s.cleanup.len(); left > 0 {
			log.WithField("actions", left).Warn("Releasing leftover resources.")
		}
		cleanupErr := s.cleanup.unwind(cleanupCtx, log)
		status.MarkCleanup(vc, cleanupErr, s.now())
		status.Finish(vc, err, s.now())

		entry := log.WithField("phase", vc.Status.Phase)
		if err != nil {
			entry.WithError(err).Error("Run failed.")
			return
		}
		entry.Info("Run finished.")
	}()

	s.instance, err = s.API.Instance(ctx)
	if err != nil {
		return fmt.Errorf("failed to look up instance: %w", err)
	}

	for _, st := range s.stages() {
		if reason := s.skipReason(st); reason != "" {
			status.SkipStage(vc, st.name, reason)
			log.WithField(logging.FieldStage, st.name).WithField("reason", reason).Info("Stage skipped.")
			continue
		}
		if err := s.runStage(ctx, st, log); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) skipReason(st stage) string {
	if s.Check.Skips(st.name) || (st.group != "" && s.Check.Skips(st.group)) {
		return "listed in spec.skipStages"
	}
	if st.blocked != nil {
		return st.blocked()
	}
	return ""
}

func (s *Session) runStage(ctx context.Context, st stage, log logrus.FieldLogger) error {
	stageCtx, cancel := context.WithTimeout(ctx, s.stageTimeout())
	defer cancel()

	s.log = log.WithField(logging.FieldStage, st.name)
	status.StartStage(s.Check, st.name, s.now())
	s.log.Info("Stage started.")

	err := st.run(stageCtx, st.name)
	if err != nil && !faults.IsTimeout(err) && ctx.Err() == nil && errors.Is(stageCtx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %v", faults.Timeout("stage "+st.name, s.stageTimeout(), ""), err)
	}
	if ferr := status.FinishStage(s.Check, st.name, err, s.now()); ferr != nil {
		s.log.WithError(ferr).Warn("Could not record stage result.")
	}
	if err != nil {
		s.log.WithError(err).Error("Stage failed.")
		return fmt.Errorf("stage %s: %w", st.name, err)
	}
	s.log.WithField("elapsed", status.Duration(s.Check.Stage(st.name))).Info("Stage passed.")
	return nil
}
