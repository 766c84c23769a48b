package pose

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NumJoints is the size of the keypoint layout shared with the estimator.
const NumJoints = 17

// Joint indexes a keypoint in the standard 17-point layout.
type Joint int

const (
	Nose Joint = iota
	LeftEye
	RightEye
	LeftEar
	RightEar
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
)

var jointNames = [NumJoints]string{
	"nose",
	"left_eye",
	"right_eye",
	"left_ear",
	"right_ear",
	"left_shoulder",
	"right_shoulder",
	"left_elbow",
	"right_elbow",
	"left_wrist",
	"right_wrist",
	"left_hip",
	"right_hip",
	"left_knee",
	"right_knee",
	"left_ankle",
	"right_ankle",
}

// String returns the estimator's snake_case keypoint name.
func (j Joint) String() string {
	if j < 0 || int(j) >= NumJoints {
		return fmt.Sprintf("joint(%d)", int(j))
	}
	return jointNames[j]
}

// Label returns a human-readable joint name such as "Left Knee".
func (j Joint) Label() string {
	return cases.Title(language.Und).String(strings.ReplaceAll(j.String(), "_", " "))
}

// JointByName resolves an estimator keypoint name.
func JointByName(name string) (Joint, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, candidate := range jointNames {
		if candidate == name {
			return Joint(i), true
		}
	}
	return 0, false
}

// Point is a 2-D keypoint estimate. Confidence is 0 when the estimator did not
// report one.
type Point struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"score"`
}

// Pose is one detected subject at one instant.
type Pose struct {
	Keypoints [NumJoints]Point
}

// At returns the keypoint for j, or a zero Point for an out-of-range index.
func (p *Pose) At(j Joint) Point {
	if p == nil || j < 0 || int(j) >= NumJoints {
		return Point{}
	}
	return p.Keypoints[j]
}

// Triple is three joints whose angle is measured at the middle one.
type Triple struct {
	A, B, C Joint
}

// Confidence sums the three joint confidences.
func (t Triple) Confidence(p *Pose) float64 {
	return p.At(t.A).Confidence + p.At(t.B).Confidence + p.At(t.C).Confidence
}

// Side labels the half of the body a triple belongs to.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// JointSet is a pair of anatomically symmetric triples tracked for one exercise.
type JointSet struct {
	Name  string
	Left  Triple
	Right Triple
}

var (
	// KneeSet tracks hip-knee-ankle; the default for squats and lunges.
	KneeSet = JointSet{
		Name:  "knee",
		Left:  Triple{LeftHip, LeftKnee, LeftAnkle},
		Right: Triple{RightHip, RightKnee, RightAnkle},
	}
	// ElbowSet tracks shoulder-elbow-wrist for presses and curls.
	ElbowSet = JointSet{
		Name:  "elbow",
		Left:  Triple{LeftShoulder, LeftElbow, LeftWrist},
		Right: Triple{RightShoulder, RightElbow, RightWrist},
	}
	// HipSet tracks shoulder-hip-knee for hinges.
	HipSet = JointSet{
		Name:  "hip",
		Left:  Triple{LeftShoulder, LeftHip, LeftKnee},
		Right: Triple{RightShoulder, RightHip, RightKnee},
	}
)

// JointSetByName resolves a configured joint set name.
func JointSetByName(name string) (JointSet, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "knee":
		return KneeSet, nil
	case "elbow":
		return ElbowSet, nil
	case "hip":
		return HipSet, nil
	default:
		return JointSet{}, fmt.Errorf("unknown joint set %q (want knee, elbow, or hip)", name)
	}
}
