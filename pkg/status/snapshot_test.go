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

package status

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/robotlogger/pkg/logger"
	"github.com/carverauto/robotlogger/pkg/models"
)

func fixedEnvironment(context.Context) []Fact {
	return []Fact{{Name: "hostname", Value: "ergocub"}}
}

func testSession() Session {
	return Session{
		ID:        uuid.MustParse("6f1c2d3e-4b5a-4c7d-8e9f-0a1b2c3d4e5f"),
		Start:     time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC),
		RobotName: "ergoCubSN000",
	}
}

func TestRenderDefaultCommands(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := NewMockRunner(ctrl)

	runner.EXPECT().Run(gomock.Any(), DefaultCommands()[0].Cmd).Return([]byte("superbuild: clean"), 0, nil)
	runner.EXPECT().Run(gomock.Any(), "apt list --installed").Return([]byte("partial"), 100, nil)

	w := NewWriter(logger.NewTestLogger(), runner, testSession(), Config{}, WithEnvironment(fixedEnvironment))
	doc := string(w.Render(context.Background(), "/data/robot_logger_device_2025_03_14_09_26_53"))

	assert.True(t, strings.HasPrefix(doc, "# robot_logger_device_2025_03_14_09_26_53\n"))
	assert.Contains(t, doc, "- id: 6f1c2d3e-4b5a-4c7d-8e9f-0a1b2c3d4e5f\n")
	assert.Contains(t, doc, "- start: 2025-03-14T09:26:53Z\n")
	assert.Contains(t, doc, "- robot: ergoCubSN000\n")
	assert.Contains(t, doc, "## Environment\n- hostname: ergocub\n")
	assert.Contains(t, doc, "### ROBOTOLOGY\n```\nsuperbuild: clean\n```\n")
	assert.NotContains(t, doc, "### APT")
}

func TestRenderWithPrefixes(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := NewMockRunner(ctrl)

	cfg := Config{
		Commands: []Command{{Title: "GIT", Cmd: "git -C /src describe"}},
		Prefixes: []string{"ssh head", "ssh torso"},
	}

	gomock.InOrder(
		runner.EXPECT().Run(gomock.Any(), `ssh head "git -C /src describe"`).Return([]byte("v1.2.0"), 0, nil),
		runner.EXPECT().Run(gomock.Any(), `ssh torso "git -C /src describe"`).Return(nil, -1, errors.New("no shell")),
	)

	w := NewWriter(logger.NewTestLogger(), runner, testSession(), cfg, WithEnvironment(fixedEnvironment))
	doc := string(w.Render(context.Background(), "rec"))

	head := strings.Index(doc, "## `ssh head`\n")
	torso := strings.Index(doc, "## `ssh torso`\n")

	require.GreaterOrEqual(t, head, 0)
	require.Greater(t, torso, head)
	assert.Contains(t, doc[head:torso], "### GIT\n```\nv1.2.0\n```\n")
	assert.NotContains(t, doc[torso:], "### GIT")
}

func TestCommandsRunWithTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := NewMockRunner(ctrl)

	runner.EXPECT().Run(gomock.Any(), "sleep 10").DoAndReturn(func(ctx context.Context, _ string) ([]byte, int, error) {
		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, time.Second)

		return nil, 0, nil
	})

	cfg := Config{
		Commands: []Command{{Title: "SLOW", Cmd: "sleep 10"}},
		Timeout:  models.Duration(50 * time.Millisecond),
	}

	w := NewWriter(logger.NewTestLogger(), runner, testSession(), cfg, WithEnvironment(fixedEnvironment))
	w.Render(context.Background(), "rec")
}

func TestWriteCreatesMarkdownFile(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := NewMockRunner(ctrl)
	runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return([]byte("ok"), 0, nil).Times(2)

	prefix := filepath.Join(t.TempDir(), "robot_2025_03_14_09_26_53")

	w := NewWriter(logger.NewTestLogger(), runner, testSession(), Config{}, WithEnvironment(fixedEnvironment))
	path, err := w.Write(context.Background(), prefix)
	require.NoError(t, err)
	assert.Equal(t, prefix+".md", path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "### APT")
}

func TestWriteFailsOnMissingFolder(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := NewMockRunner(ctrl)
	runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(nil, 1, nil).AnyTimes()

	w := NewWriter(logger.NewTestLogger(), runner, testSession(), Config{}, WithEnvironment(fixedEnvironment))
	_, err := w.Write(context.Background(), filepath.Join(t.TempDir(), "missing", "rec"))
	require.Error(t, err)
}

func TestShellRunner(t *testing.T) {
	if _, err := exec.LookPath(DefaultShell); err != nil {
		t.Skip("bash not available")
	}

	ctx := context.Background()
	r := ShellRunner{}

	out, exit, err := r.Run(ctx, "echo recorded")
	require.NoError(t, err)
	assert.Equal(t, 0, exit)
	assert.Equal(t, "recorded\n", string(out))

	_, exit, err = r.Run(ctx, "exit 3")
	require.NoError(t, err)
	assert.Equal(t, 3, exit)

	_, _, err = ShellRunner{Shell: "/nonexistent/shell"}.Run(ctx, "true")
	require.Error(t, err)
}

func TestHostEnvironment(t *testing.T) {
	facts := HostEnvironment(logger.NewTestLogger())(context.Background())
	require.NotEmpty(t, facts)
	assert.Equal(t, Fact{Name: "robot_logger", Value: "dev (build: dev)"}, facts[0])
	assert.Equal(t, "go_runtime", facts[1].Name)
}
