// Package jobrunner executes rule scripts as child processes and reports
// their completion asynchronously, the portable substitute for fork/execv
// plus a SIGCHLD handler.
package jobrunner

import (
	"os"
	"os/exec"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/msageha/remake/internal/model"
)

// Completion reports that the job identified by JobID has finished.
type Completion struct {
	JobID   int
	Success bool
}

// Runner spawns job scripts and funnels their completions onto a single
// channel, owned and drained by the scheduler. group tracks every
// in-flight wait goroutine so Wait can guarantee none outlives the
// process.
type Runner struct {
	done  chan Completion
	group errgroup.Group
}

// New returns a Runner. Its Done channel receives a Completion for every
// job started with Start.
func New() *Runner {
	return &Runner{done: make(chan Completion, 16)}
}

// Done returns the channel on which job completions are delivered.
func (r *Runner) Done() <-chan Completion {
	return r.done
}

// Start spawns rule's script as "sh -e -c <script> remake-shell <targets...>"
// with REMAKE_JOB_ID set in its environment, and reports its completion on
// the Done channel once it exits. It returns false if the process could
// not even be started, in which case a failure completion is still posted
// to Done so callers always drive a single completion path.
func (r *Runner) Start(jobID int, rule model.Rule) bool {
	argv := append([]string{"-e", "-c", rule.Script, "remake-shell"}, rule.Targets...)
	cmd := exec.Command("/bin/sh", argv...)
	cmd.Env = append(os.Environ(), "REMAKE_JOB_ID="+strconv.Itoa(jobID))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		r.done <- Completion{JobID: jobID, Success: false}
		return false
	}

	r.group.Go(func() error {
		err := cmd.Wait()
		r.done <- Completion{JobID: jobID, Success: err == nil}
		return nil
	})
	return true
}

// Wait blocks until every job started with Start has exited and posted its
// completion. Called during shutdown so no wait goroutine outlives the
// process.
func (r *Runner) Wait() {
	_ = r.group.Wait()
}
