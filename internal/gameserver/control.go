package gameserver

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/pwvale/panel-backend/pkg/config"
	pkgerrors "github.com/pwvale/panel-backend/pkg/errors"
	"github.com/pwvale/panel-backend/pkg/logger"
)

// DaemonStatus reports one game daemon's liveness.
type DaemonStatus struct {
	Name    string `json:"name"`
	Running bool   `json:"running"`
	PIDs    []int  `json:"pids,omitempty"`
}

// Control manages the game server process group. Implementations run under a
// bounded timeout and must report real process state, never assumed success.
type Control interface {
	Status(ctx context.Context) ([]DaemonStatus, error)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// ScriptControl drives the daemons through the operator-provided start/stop
// shell scripts and inspects liveness with pgrep.
type ScriptControl struct {
	startScript string
	stopScript  string
	timeout     time.Duration
	daemons     []string
	logger      *logger.Logger

	// runCommand is swapped in tests.
	runCommand func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewScriptControl builds the script-backed controller.
func NewScriptControl(cfg config.GameServerConfig, logg *logger.Logger) (*ScriptControl, error) {
	if strings.TrimSpace(cfg.StartScript) == "" || strings.TrimSpace(cfg.StopScript) == "" {
		return nil, fmt.Errorf("start and stop scripts are required")
	}
	if len(cfg.Daemons) == 0 {
		return nil, fmt.Errorf("at least one daemon name is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}

	timeout := cfg.ScriptTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &ScriptControl{
		startScript: cfg.StartScript,
		stopScript:  cfg.StopScript,
		timeout:     timeout,
		daemons:     cfg.Daemons,
		logger:      logg,
		runCommand:  runCommand,
	}, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

// Status checks each configured daemon with pgrep. A missing process is a
// normal "not running" answer, not an error.
func (c *ScriptControl) Status(ctx context.Context) ([]DaemonStatus, error) {
	statuses := make([]DaemonStatus, 0, len(c.daemons))
	for _, daemon := range c.daemons {
		runCtx, cancel := context.WithTimeout(ctx, c.timeout)
		out, err := c.runCommand(runCtx, "pgrep", "-x", daemon)
		cancel()

		status := DaemonStatus{Name: daemon}
		if err == nil {
			status.PIDs = parsePIDs(out)
			status.Running = len(status.PIDs) > 0
		} else if runCtx.Err() != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, runCtx.Err(),
				fmt.Sprintf("pgrep timed out for %s", daemon))
		}
		// pgrep exit code 1 means no processes matched
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// Start runs the configured start script.
func (c *ScriptControl) Start(ctx context.Context) error {
	return c.runScript(ctx, c.startScript, "start")
}

// Stop runs the configured stop script.
func (c *ScriptControl) Stop(ctx context.Context) error {
	return c.runScript(ctx, c.stopScript, "stop")
}

func (c *ScriptControl) runScript(ctx context.Context, script, action string) error {
	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.runCommand(runCtx, script)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err,
			fmt.Sprintf("server %s script failed", action)).
			WithDetails(strings.TrimSpace(string(out)))
	}
	c.logger.Info(c.logger.WithField(ctx, "action", action), "server script completed")
	return nil
}

func parsePIDs(out []byte) []int {
	var pids []int
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var pid int
		if _, err := fmt.Sscanf(line, "%d", &pid); err == nil {
			pids = append(pids, pid)
		}
	}
	return pids
}
