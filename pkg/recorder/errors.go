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

package recorder

import "errors"

var (
	// ErrConfiguration wraps every setup validation failure.
	ErrConfiguration = errors.New("invalid recorder configuration")
	// ErrRotation is returned by the save callback when a camera output
	// could not be finalized or reopened.
	ErrRotation = errors.New("camera rotation failed")

	errAlreadyStarted = errors.New("recorder already started")
	errClosed         = errors.New("recorder is closed")
	errNoSensors      = errors.New("sensor streams are enabled but no sensor bridge is set")
	errNoCameras      = errors.New("cameras are configured but no camera bridge is set")
	errNoNamespace    = errors.New("signals or text logging require a transport namespace")
)
