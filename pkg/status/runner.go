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

// Package status records the software and host state of a recording next
// to its data files.
package status

//go:generate mockgen -destination=mock_runner.go -package=status github.com/carverauto/robotlogger/pkg/status Runner

import (
	"context"
	"errors"
	"os/exec"
)

const DefaultShell = "bash"

// Runner runs a shell command line and returns its standard output and
// exit code. err is set only when the command could not be run at all.
type Runner interface {
	Run(ctx context.Context, cmd string) (stdout []byte, exit int, err error)
}

// ShellRunner runs commands with `<Shell> -c`.
type ShellRunner struct {
	Shell string
}

func (r ShellRunner) Run(ctx context.Context, cmd string) ([]byte, int, error) {
	shell := r.Shell
	if shell == "" {
		shell = DefaultShell
	}

	out, err := exec.CommandContext(ctx, shell, "-c", cmd).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return out, exitErr.ExitCode(), nil
		}

		return nil, -1, err
	}

	return out, 0, nil
}
