package agent

import (
	"context"
	"fmt"

	"github.com/relaycore/relaycore/internal/tools"
	"github.com/relaycore/relaycore/pkg/models"
)

// TaskRunner implements scheduler.Runner over a Loop and an adapter
// client, so internal/scheduler never has to import internal/agent or
// internal/tools directly.
type TaskRunner struct {
	loop    *Loop
	adapter *tools.AdapterClient
}

// NewTaskRunner builds a TaskRunner. adapter may be a client with an
// empty base URL; RunMessageTask then fails per-task rather than at
// construction time.
func NewTaskRunner(loop *Loop, adapter *tools.AdapterClient) *TaskRunner {
	return &TaskRunner{loop: loop, adapter: adapter}
}

// RunMessageTask delivers a verbatim reminder through the chat adapter.
func (r *TaskRunner) RunMessageTask(ctx context.Context, t models.Task) error {
	if r.adapter == nil || !r.adapter.Configured() {
		return fmt.Errorf("adapter not configured")
	}
	return r.adapter.SendDM(ctx, t.UserID, "⏰ Reminder: "+t.Content)
}

// RunAgentTask re-enters the agent loop with the task's content as the
// turn's user message, with username "scheduler", the task's own source
// and a private chat type (equivalent to a POST to /api/chat over the
// HTTP surface; here, in-process, that's a direct Run call instead).
func (r *TaskRunner) RunAgentTask(ctx context.Context, t models.Task) error {
	if r.loop == nil {
		return fmt.Errorf("agent loop not configured")
	}
	_, err := r.loop.Run(ctx, t.UserID, t.ChatID, t.Content, "scheduler", models.ChatPrivate, t.Source)
	return err
}
