// Package orchestrator wires together rule loading, the dependency
// database, the wire server, and the scheduler into the two top-level
// modes the binary runs in: server (the normal invocation) and client (a
// script's recursive call back into its parent).
package orchestrator

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/msageha/remake/internal/buildstatus"
	"github.com/msageha/remake/internal/config"
	"github.com/msageha/remake/internal/depstore"
	"github.com/msageha/remake/internal/jobrunner"
	"github.com/msageha/remake/internal/lock"
	"github.com/msageha/remake/internal/notify"
	"github.com/msageha/remake/internal/rlog"
	"github.com/msageha/remake/internal/rules"
	"github.com/msageha/remake/internal/scheduler"
	"github.com/msageha/remake/internal/wire"
)

// ErrBuildFailed is returned by RunClient and RunServer when the build
// itself failed (as opposed to a configuration or I/O error); callers
// should exit 1 without printing anything extra.
var ErrBuildFailed = errors.New("build failed")

const (
	dbPath     = ".remake"
	lockPath   = ".remake.lock"
	remakefile = "Remakefile"
)

// RunClient sends a build request for targets to the server at socketPath,
// using REMAKE_JOB_ID (or -1 if unset) to attribute it to the calling job,
// and waits for the reply.
func RunClient(socketPath string, targets []string) error {
	if len(targets) == 0 {
		return nil
	}

	jobID := int32(-1)
	if id := os.Getenv("REMAKE_JOB_ID"); id != "" {
		if n, err := strconv.Atoi(id); err == nil {
			jobID = int32(n)
		}
	}

	ok, err := wire.SendRequest(socketPath, jobID, targets)
	if err != nil {
		return err
	}
	if !ok {
		return ErrBuildFailed
	}
	return nil
}

// RunServer loads the dependency database and Remakefile, creates the
// request socket, and builds opts.Targets. If Remakefile itself is
// obsolete, it is rebuilt and the rules are reloaded before the requested
// targets are built, mirroring a fresh call to the tool with the
// regenerated rule file.
func RunServer(opts config.Options, logger *rlog.Logger) (runErr error) {
	fl := lock.New(lockPath)
	if err := fl.TryLock(); err != nil {
		return err
	}
	defer fl.Unlock()

	if opts.Notify {
		defer func() {
			if err := notify.BuildComplete(runErr == nil); err != nil {
				logger.Debug("desktop notification failed: %v", err)
			}
		}()
	}

	deps, err := depstore.Load(dbPath)
	if err != nil {
		return fmt.Errorf("load dependency database: %w", err)
	}

	loadedRules, err := rules.Load(remakefile, deps)
	if err != nil {
		return err
	}

	sockPath, err := wire.TempSocketPath(opts.SocketDir)
	if err != nil {
		return err
	}
	server, err := wire.Listen(sockPath)
	if err != nil {
		return err
	}
	defer server.Close()

	if err := os.Setenv("REMAKE_SOCKET", sockPath); err != nil {
		return fmt.Errorf("set REMAKE_SOCKET: %w", err)
	}

	runner := jobrunner.New()
	defer runner.Wait()
	sched := scheduler.New(loadedRules, deps, runner, server, opts.Jobs, logger)

	if sched.Status(remakefile).Status == buildstatus.Todo {
		logger.Debug("Remakefile is obsolete, rebuilding it first")
		sched.Build([]string{remakefile})
		if sched.BuildFailure() {
			return finish(deps, sched, logger)
		}

		loadedRules, err = rules.Load(remakefile, deps)
		if err != nil {
			return err
		}
		sched.SetRules(loadedRules)
	}

	sched.Build(opts.Targets)
	return finish(deps, sched, logger)
}

func finish(deps *depstore.Store, sched *scheduler.Scheduler, logger *rlog.Logger) error {
	if err := deps.Save(dbPath); err != nil {
		logger.Error("failed to save dependency database: %v", err)
	}
	if sched.BuildFailure() {
		return ErrBuildFailed
	}
	return nil
}
