package dispatch

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/ydjemai93/test-drive/internal/agent"
	"github.com/ydjemai93/test-drive/internal/worker"
	"github.com/ydjemai93/test-drive/pkg/logger"
)

// Dispatcher hands a call job to whichever agent pool will run it.
type Dispatcher interface {
	Dispatch(ctx context.Context, job agent.Job) error
}

// Embedded dispatches into this process's worker pool.
type Embedded struct {
	Manager *worker.Manager
}

func (d *Embedded) Dispatch(ctx context.Context, job agent.Job) error {
	return d.Manager.Enqueue(job)
}

// LKCLI shells out to the LiveKit CLI so a separately deployed agent
// fleet picks the job up. Mirrors the original dispatch script.
type LKCLI struct {
	Bin       string
	AgentName string
}

func (d *LKCLI) Dispatch(ctx context.Context, job agent.Job) error {
	bin := d.Bin
	if bin == "" {
		bin = "lk"
	}
	args := []string{
		"dispatch", "create",
		"--new-room",
		"--agent-name", d.AgentName,
		"--metadata", job.Metadata,
	}

	logger.Log.Infof("Executing command: %s %s", bin, strings.Join(args, " "))
	out, err := exec.CommandContext(ctx, bin, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("lk dispatch failed: %w: %s", err, strings.TrimSpace(string(out)))
	}

	output := string(out)
	logger.Log.Infof("lk dispatch output: %s", strings.TrimSpace(output))
	if !strings.Contains(output, "Dispatch created") && !strings.Contains(output, "id: ") {
		logger.Log.Warn("Dispatch command executed but success message/ID not found in output")
	}
	return nil
}
