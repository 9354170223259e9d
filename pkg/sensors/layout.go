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

package sensors

import (
	"github.com/carverauto/robotlogger/pkg/schema"
)

// IMU measurements pack orientation, linear acceleration, angular velocity
// and magnetic field, three values each.
const imuSize = 12

var (
	wrenchLabels      = []string{"f_x", "f_y", "f_z", "mu_x", "mu_y", "mu_z"}
	gyroLabels        = []string{"omega_x", "omega_y", "omega_z"}
	accelLabels       = []string{"a_x", "a_y", "a_z"}
	orientationLabels = []string{"r", "p", "y"}
	magnetLabels      = []string{"mag_x", "mag_y", "mag_z"}
	temperatureLabels = []string{"temperature"}
)

// Streams selects the sampled categories.
type Streams struct {
	JointStates       bool `json:"stream_joint_states" yaml:"stream_joint_states"`
	MotorStates       bool `json:"stream_motor_states" yaml:"stream_motor_states"`
	MotorPWM          bool `json:"stream_motor_PWM" yaml:"stream_motor_PWM"`
	PIDs              bool `json:"stream_pids" yaml:"stream_pids"`
	ForceTorque       bool `json:"stream_forcetorque_sensors" yaml:"stream_forcetorque_sensors"`
	Inertials         bool `json:"stream_inertials" yaml:"stream_inertials"`
	CartesianWrenches bool `json:"stream_cartesian_wrenches" yaml:"stream_cartesian_wrenches"`
	Temperatures      bool `json:"stream_temperatures" yaml:"stream_temperatures"`
}

// Enabled reports whether kind is sampled.
func (s Streams) Enabled(kind Kind) bool {
	switch kind {
	case ForceTorque:
		return s.ForceTorque
	case Gyroscope, Accelerometer, Orientation, Magnetometer, IMU:
		return s.Inertials
	case CartesianWrench:
		return s.CartesianWrenches
	case Temperature:
		return s.Temperatures
	default:
		return false
	}
}

// JointChannel names the channel of a joint reading.
func JointChannel(q Quantity) string { return schema.Join("joints_state", string(q)) }

// MotorChannel names the channel of a motor reading.
func MotorChannel(q Quantity) string { return schema.Join("motors_state", string(q)) }

// PIDChannel holds the PID position references.
const PIDChannel = "PIDs"

// part is a slice of a measurement pushed to one channel.
type part struct {
	channel schema.Channel
	from    int
	to      int
}

func whole(name string, labels []string) part {
	return part{
		channel: schema.Channel{Name: name, Length: len(labels), Labels: labels},
		to:      len(labels),
	}
}

// sensorParts returns the channels a sensor of kind feeds.
func sensorParts(kind Kind, name string) []part {
	switch kind {
	case ForceTorque:
		return []part{whole(schema.Join("FTs", name), wrenchLabels)}
	case CartesianWrench:
		return []part{whole(schema.Join("cartesian_wrenches", name), wrenchLabels)}
	case Gyroscope:
		return []part{whole(schema.Join("gyros", name), gyroLabels)}
	case Accelerometer:
		return []part{whole(schema.Join("accelerometers", name), accelLabels)}
	case Orientation:
		return []part{whole(schema.Join("orientations", name), orientationLabels)}
	case Magnetometer:
		return []part{whole(schema.Join("magnetometers", name), magnetLabels)}
	case Temperature:
		return []part{whole(schema.Join("temperatures", name), temperatureLabels)}
	case IMU:
		return imuParts(name)
	default:
		return nil
	}
}

// imuParts maps the IMU vector onto accelerometer, gyroscope and
// orientation channels.
func imuParts(name string) []part {
	acc := whole(schema.Join("accelerometers", name), accelLabels)
	acc.from, acc.to = 3, 6

	gyro := whole(schema.Join("gyros", name), gyroLabels)
	gyro.from, gyro.to = 6, 9

	orientation := whole(schema.Join("orientations", name), orientationLabels)
	orientation.from, orientation.to = 0, 3

	return []part{acc, gyro, orientation}
}
