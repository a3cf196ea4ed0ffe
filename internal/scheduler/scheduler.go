// Package scheduler drives the build: it owns the client queue, starts and
// reaps jobs, and answers recursive build requests arriving over the wire
// server. It has a single owner goroutine; nothing here is safe to call
// concurrently.
package scheduler

import (
	"bufio"
	"container/list"
	"net"
	"os"
	"strings"

	"github.com/msageha/remake/internal/buildstatus"
	"github.com/msageha/remake/internal/depstore"
	"github.com/msageha/remake/internal/jobrunner"
	"github.com/msageha/remake/internal/match"
	"github.com/msageha/remake/internal/model"
	"github.com/msageha/remake/internal/rlog"
	"github.com/msageha/remake/internal/wire"
)

// Client is either a real client (a running script's recursive request,
// holding an open connection) or a pseudo client: an original client
// seeded from the command line (JobID < 0), or a dependency client
// synthesized to build a rule's static deps before running its script
// (Delayed set).
type Client struct {
	Conn    net.Conn
	JobID   int
	Pending []string
	Running map[string]struct{}
	Delayed *model.Rule
}

func newClient() *Client {
	return &Client{JobID: -1, Running: make(map[string]struct{})}
}

// Scheduler is the client/job state machine described by the build
// orchestrator's core loop.
type Scheduler struct {
	rules  []model.Rule
	deps   *depstore.Store
	status *buildstatus.Store
	runner *jobrunner.Runner
	server *wire.Server
	logger *rlog.Logger

	clients      *list.List
	jobTargets   map[int][]string
	jobCounter   int
	runningJobs  int
	waitingJobs  int
	maxJobs      int
	buildFailure bool
}

// New returns a Scheduler. maxJobs <= 0 means unbounded concurrency.
func New(rules []model.Rule, deps *depstore.Store, runner *jobrunner.Runner, server *wire.Server, maxJobs int, logger *rlog.Logger) *Scheduler {
	return &Scheduler{
		rules:      rules,
		deps:       deps,
		status:     buildstatus.New(deps),
		runner:     runner,
		server:     server,
		logger:     logger,
		clients:    list.New(),
		jobTargets: make(map[int][]string),
		maxJobs:    maxJobs,
	}
}

// SetRules replaces the loaded rule set, used after Remakefile is
// regenerated and reloaded partway through a build.
func (s *Scheduler) SetRules(rules []model.Rule) {
	s.rules = rules
}

// BuildFailure reports whether any original client's build has failed so
// far, across every call to Build on this scheduler.
func (s *Scheduler) BuildFailure() bool {
	return s.buildFailure
}

// Status returns the memoized build status of target.
func (s *Scheduler) Status(target string) buildstatus.Info {
	return s.status.Get(target)
}

// Build seeds a new original client with the given pending targets and
// drives the event loop until every client and job has settled.
func (s *Scheduler) Build(targets []string) {
	client := newClient()
	client.Pending = append([]string(nil), targets...)
	s.clients.PushBack(client)
	s.run()
}

// run alternates updateClients with waiting for the next accepted
// connection or job completion, the goroutine-and-channel substitute for
// pselect-then-accept-or-reap.
func (s *Scheduler) run() {
	conns := s.server.Conns()
	for {
		s.updateClients()
		if s.runningJobs == 0 {
			return
		}
		select {
		case conn, ok := <-conns:
			if ok {
				s.acceptClient(conn)
			} else {
				// Accept loop exited; stop selecting on a permanently
				// ready closed channel and just drain job completions.
				conns = nil
			}
		case c := <-s.runner.Done():
			s.runningJobs--
			s.completeJob(c.JobID, c.Success)
		}
	}
}

func (s *Scheduler) hasFreeSlots() bool {
	if s.maxJobs <= 0 {
		return true
	}
	return s.runningJobs-s.waitingJobs < s.maxJobs
}

// start finds the rule for target and either runs its script directly, or,
// if the rule has static dependencies, inserts a dependency client right
// before cur to build them first and defers the script until that client's
// request completes. It returns the element that subsequent processing of
// the enclosing client loop should continue from: cur itself if no
// dependency client was inserted, or the newly inserted element otherwise.
func (s *Scheduler) start(target string, cur *list.Element) (*list.Element, bool) {
	rule := match.Find(s.rules, target)
	if rule.Empty() {
		s.status.Set(target, buildstatus.Failed)
		s.logger.Error("no rule for building %s", target)
		return cur, false
	}

	for _, t := range rule.Targets {
		s.status.Set(t, buildstatus.Running)
		s.deps.Replace(t, rule.Deps)
	}

	jobID := s.jobCounter
	if len(rule.Deps) > 0 {
		depClient := newClient()
		depClient.JobID = jobID
		depClient.Pending = append([]string(nil), rule.Deps...)
		delayed := rule.Clone()
		depClient.Delayed = &delayed
		cur = s.clients.InsertBefore(depClient, cur)
	} else {
		s.runner.Start(jobID, rule)
		s.runningJobs++
	}
	s.jobTargets[jobID] = rule.Targets
	s.jobCounter++
	return cur, true
}

// completeRequest replies to and retires client: if it was a dependency
// client, either starts its delayed script (on success) or fails the job
// outright; if it was a real client, sends the reply byte and closes its
// connection. An original client's failure sets buildFailure.
func (s *Scheduler) completeRequest(client *Client, success bool) {
	if client.Delayed != nil {
		if success {
			s.runner.Start(client.JobID, *client.Delayed)
			s.runningJobs++
		} else {
			s.completeJob(client.JobID, false)
		}
		client.Delayed = nil
	} else if client.Conn != nil {
		_ = wire.WriteReply(client.Conn, success)
		_ = client.Conn.Close()
		s.waitingJobs--
	}

	if client.JobID < 0 && !success {
		s.buildFailure = true
	}
}

// completeJob records the outcome of a finished job: on success its
// targets become Remade; on failure they become Failed and their output
// files are removed.
func (s *Scheduler) completeJob(jobID int, success bool) {
	targets, ok := s.jobTargets[jobID]
	if !ok {
		return
	}
	if success {
		for _, t := range targets {
			s.status.Set(t, buildstatus.Remade)
		}
	} else {
		s.logger.Error("failed to build %s", strings.Join(targets, " "))
		for _, t := range targets {
			s.status.Set(t, buildstatus.Failed)
			_ = os.Remove(t)
		}
	}
	delete(s.jobTargets, jobID)
}

// updateClients advances the client queue as long as there are free job
// slots: it clears finished running targets, starts pending ones, and
// completes and removes a client once it has neither pending nor running
// targets left, or once one of them has failed.
//
// Starting a target whose rule has dependencies inserts a new dependency
// client immediately before the current one and continues the pending-loop
// on that new client instead, so the prerequisite subtree is drained
// depth-first before returning to the client that requested it.
func (s *Scheduler) updateClients() {
	e := s.clients.Front()
	for e != nil && s.hasFreeSlots() {
		next := e.Next()
		cur := e
		client := cur.Value.(*Client)
		failed := false

		for target := range client.Running {
			info := s.status.Get(target)
			switch info.Status {
			case buildstatus.Uptodate, buildstatus.Remade:
				delete(client.Running, target)
			case buildstatus.Running:
			case buildstatus.Todo:
				panic("scheduler: running target has status Todo")
			case buildstatus.Failed:
				failed = true
			}
			if failed {
				break
			}
		}

		if !failed {
		pending:
			for len(client.Pending) > 0 {
				target := client.Pending[0]
				client.Pending = client.Pending[1:]

				switch s.status.Get(target).Status {
				case buildstatus.Failed:
					failed = true
					break pending
				case buildstatus.Running:
					client.Running[target] = struct{}{}
				case buildstatus.Uptodate, buildstatus.Remade:
				case buildstatus.Todo:
					origClient := client
					newCur, ok := s.start(target, cur)
					if !ok {
						failed = true
						break pending
					}
					origClient.Running[target] = struct{}{}
					cur = newCur
					client = cur.Value.(*Client)
					if !s.hasFreeSlots() {
						return
					}
					next = cur.Next()
				}
			}
		}

		if failed {
			s.completeRequest(client, false)
			s.clients.Remove(cur)
			e = next
			continue
		}

		if len(client.Running) == 0 {
			s.completeRequest(client, true)
			s.clients.Remove(cur)
		}

		e = next
	}
}

// acceptClient reads a request off conn: the job id it was spawned from,
// and the list of targets it wants built. Any protocol violation or
// unknown job id closes the connection and drops the partial client.
func (s *Scheduler) acceptClient(conn net.Conn) {
	client := newClient()
	elem := s.clients.PushFront(client)

	reject := func() {
		s.logger.Error("received an ill-formed client message")
		_ = conn.Close()
		s.clients.Remove(elem)
	}

	r := bufio.NewReader(conn)
	jobID, err := wire.ReadJobID(r)
	if err != nil {
		reject()
		return
	}
	ownerTargets, ok := s.jobTargets[int(jobID)]
	if !ok {
		reject()
		return
	}
	client.JobID = int(jobID)
	client.Conn = conn

	targets, err := wire.ReadTargets(r)
	if err != nil {
		reject()
		return
	}

	for _, target := range targets {
		client.Pending = append(client.Pending, target)
		for _, owner := range ownerTargets {
			s.deps.Add(owner, target)
		}
	}
	s.waitingJobs++
}
