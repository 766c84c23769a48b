// Package pose defines the keypoint contract consumed from external pose
// estimators and the sources that deliver it to the frame loop.
//
// A Pose always carries the standard 17-keypoint layout; a joint the estimator
// could not see is a zero-confidence Point rather than a missing entry. Sources
// return a nil Pose for frames without a detected subject and ErrNotReady while
// the estimator is still warming up, so callers can treat both as per-frame
// conditions instead of fatal errors.
package pose
