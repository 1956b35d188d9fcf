package drive

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const (
	SpeedStep    = 1.0
	SteeringStep = math.Pi / 36

	SteeringAngleVelocity = math.Pi / 72
	Acceleration          = 0.5
)

// State is the command sent to one vehicle. Values are not bounded.
type State struct {
	Speed         float64
	SteeringAngle float64
}

func (s *State) Faster() { s.Speed += SpeedStep }
func (s *State) Slower() { s.Speed -= SpeedStep }
func (s *State) Left() { s.SteeringAngle += SteeringStep }
func (s *State) Right() { s.SteeringAngle -= SteeringStep }
func (s *State) Straight() { s.SteeringAngle = 0. }
func (s *State) Reset() { *s = State{} }

// String renders the state as a console status line
func (s State) String() string {
	return "speed: " + FormatFloat(s.Speed) + " steering_angle: " + FormatFloat(s.SteeringAngle)
}

// Message builds the outbound drive message for this state
func (s State) Message(now time.Time, frameID string) *AckermannDriveStamped {
	return &AckermannDriveStamped{
		Header: Header{
			Stamp: Time{
				Sec:     int32(now.Unix()),
				Nanosec: uint32(now.Nanosecond()),
			},
			FrameID: frameID,
		},
		Drive: AckermannDrive{
			SteeringAngle:         s.SteeringAngle,
			SteeringAngleVelocity: SteeringAngleVelocity,
			Speed:                 s.Speed,
			Acceleration:          Acceleration,
		},
	}
}

// FormatFloat prints v in shortest form, keeping a trailing ".0" on integral values. Exponent
// notation is only used below 1e-4 or from 1e16.
func FormatFloat(v float64) string {
	abs := math.Abs(v)
	if v != 0 && !(abs >= 1e-4 && abs < 1e16) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if strings.Contains(s, ".") {
		return s
	}
	return s + ".0"
}

// Vehicles holds the two driven cars
type Vehicles struct {
	Ego      State
	Opponent State
}

// Apply updates states for key, case-insensitive. It returns true when key asks to quit,
// in which case both states are zeroed.
func (v *Vehicles) Apply(key rune) (quit bool) {
	switch unicode.ToLower(key) {
	case 'w':
		v.Ego.Faster()
	case 's':
		v.Ego.Slower()
	case 'a':
		v.Ego.Left()
	case 'd':
		v.Ego.Right()
	case 'r':
		v.Ego.Straight()

	case 'i':
		v.Opponent.Faster()
	case 'k':
		v.Opponent.Slower()
	case 'j':
		v.Opponent.Left()
	case 'l':
		v.Opponent.Right()
	case 'o':
		v.Opponent.Straight()

	case 'q':
		v.Ego.Reset()
		v.Opponent.Reset()
		return true
	}
	return false
}

// Normalized converts the state to robocar conventions: steering and throttle in [-1, 1],
// steering positive to the right. Only the returned values are clamped.
func (s State) Normalized(maxSteering, maxSpeed float64) (steering, throttle float64) {
	return clamp(-s.SteeringAngle / maxSteering), clamp(s.Speed / maxSpeed)
}

func clamp(v float64) float64 {
	if v == 0 || math.IsNaN(v) {
		return 0.
	}
	if v > 1. {
		return 1.
	}
	if v < -1. {
		return -1.
	}
	return v
}
