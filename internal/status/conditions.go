// Package status records a run's progress on the VolumeCheck status:
// per-stage phases, the run phase and conditions.
package status

import (
	"time"

	"github.com/jbweber/volcheck/api/v1alpha1"
)

// SetCondition adds or updates a condition in the run status.
// The LastTransitionTime is only updated if the status changes.
func SetCondition(vc *v1alpha1.VolumeCheck, condType string, status v1alpha1.ConditionStatus, reason, message string, now time.Time) {
	for i := range vc.Status.Conditions {
		existing := &vc.Status.Conditions[i]
		if existing.Type != condType {
			continue
		}
		if existing.Status != status {
			existing.LastTransitionTime = v1alpha1.NewTime(now)
		}
		existing.Status = status
		existing.Reason = reason
		existing.Message = message
		return
	}

	vc.Status.Conditions = append(vc.Status.Conditions, v1alpha1.Condition{
		Type:               condType,
		Status:             status,
		LastTransitionTime: v1alpha1.NewTime(now),
		Reason:             reason,
		Message:            message,
	})
}

// GetCondition returns a condition by type, or nil if not found.
func GetCondition(vc *v1alpha1.VolumeCheck, condType string) *v1alpha1.Condition {
	for i := range vc.Status.Conditions {
		if vc.Status.Conditions[i].Type == condType {
			return &vc.Status.Conditions[i]
		}
	}
	return nil
}

// IsConditionTrue returns true if the condition exists and has status True.
func IsConditionTrue(vc *v1alpha1.VolumeCheck, condType string) bool {
	cond := GetCondition(vc, condType)
	return cond != nil && cond.Status == v1alpha1.ConditionTrue
}

// IsConditionFalse returns true if the condition exists and has status False.
func IsConditionFalse(vc *v1alpha1.VolumeCheck, condType string) bool {
	cond := GetCondition(vc, condType)
	return cond != nil && cond.Status == v1alpha1.ConditionFalse
}

// MarkDataIntact records the fingerprint comparison of the restore stage.
func MarkDataIntact(vc *v1alpha1.VolumeCheck, original, restored string, now time.Time) {
	vc.Status.OriginalFingerprint = original
	vc.Status.RestoredFingerprint = restored
	if original == restored {
		SetCondition(vc, v1alpha1.ConditionDataIntact, v1alpha1.ConditionTrue, "FingerprintMatch",
			"restored test file matches the original", now)
		return
	}
	SetCondition(vc, v1alpha1.ConditionDataIntact, v1alpha1.ConditionFalse, "FingerprintMismatch",
		"restored "+restored+" != original "+original, now)
}

// MarkCleanup records whether cleanup released everything.
func MarkCleanup(vc *v1alpha1.VolumeCheck, err error, now time.Time) {
	if err == nil {
		SetCondition(vc, v1alpha1.ConditionCleanedUp, v1alpha1.ConditionTrue, "Released",
			"all resources released", now)
		return
	}
	SetCondition(vc, v1alpha1.ConditionCleanedUp, v1alpha1.ConditionFalse, "LeftBehind", err.Error(), now)
}
