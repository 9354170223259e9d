/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package sensors defines how the robot's synchronous measurements are
// read and laid out as telemetry channels.
package sensors

//go:generate mockgen -destination=mock_bridge.go -package=sensors github.com/carverauto/robotlogger/pkg/sensors Bridge

// Kind identifies a family of named sensors.
type Kind string

const (
	ForceTorque     Kind = "force_torque"
	Gyroscope       Kind = "gyroscope"
	Accelerometer   Kind = "accelerometer"
	Orientation     Kind = "orientation"
	Magnetometer    Kind = "magnetometer"
	IMU             Kind = "imu"
	CartesianWrench Kind = "cartesian_wrench"
	Temperature     Kind = "temperature"
)

// Kinds lists every sensor kind in sampling order.
var Kinds = []Kind{ForceTorque, Temperature, Gyroscope, Accelerometer, Orientation, Magnetometer, IMU, CartesianWrench}

// Size is the number of values one measurement of the kind carries.
func (k Kind) Size() int {
	switch k {
	case ForceTorque, CartesianWrench:
		return 6
	case Gyroscope, Accelerometer, Orientation, Magnetometer:
		return 3
	case IMU:
		return imuSize
	case Temperature:
		return 1
	default:
		return 0
	}
}

// Quantity selects one per-joint reading.
type Quantity string

const (
	Positions     Quantity = "positions"
	Velocities    Quantity = "velocities"
	Accelerations Quantity = "accelerations"
	Torques       Quantity = "torques"
	Currents      Quantity = "currents"
	PWM           Quantity = "PWM"
)

var (
	jointQuantities = []Quantity{Positions, Velocities, Accelerations, Torques}
	motorQuantities = []Quantity{Positions, Velocities, Accelerations, Currents}
)

// Bridge gives access to the robot's latest measurements. Getters fill dst
// and report false when the value is not available this cycle; dst always
// has the expected size.
type Bridge interface {
	// Advance latches a fresh set of measurements.
	Advance() error
	Joints() []string
	Sensors(kind Kind) []string
	JointState(q Quantity, dst []float64) bool
	MotorState(q Quantity, dst []float64) bool
	PIDs(dst []float64) bool
	Measure(kind Kind, name string, dst []float64) bool
}
