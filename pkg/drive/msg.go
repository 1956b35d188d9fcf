package drive

/*
	Json messages shaped after ackermann_msgs/AckermannDriveStamped so that a ros bridge can
	forward them without translation.
*/

type Time struct {
	Sec     int32  `json:"sec"`
	Nanosec uint32 `json:"nanosec"`
}

type Header struct {
	Stamp   Time   `json:"stamp"`
	FrameID string `json:"frame_id"`
}

type AckermannDrive struct {
	SteeringAngle         float64 `json:"steering_angle"`
	SteeringAngleVelocity float64 `json:"steering_angle_velocity"`
	Speed                 float64 `json:"speed"`
	Acceleration          float64 `json:"acceleration"`
	Jerk                  float64 `json:"jerk"`
}

type AckermannDriveStamped struct {
	Header Header         `json:"header"`
	Drive  AckermannDrive `json:"drive"`
}
