// Package topology fans work out across CPU cores with a primary/worker
// process split. The primary re-invokes its own binary once per worker
// slot with a role marker in the environment and supervises the children;
// it never serves traffic itself. Workers bind SO_REUSEPORT listeners on
// the shared port, so the kernel balances accepted connections.
package topology

import (
	"context"
	"log"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"syscall"
	"time"
)

// RoleEnv is the environment variable carrying the process role.
const RoleEnv = "MICRO_SERVER_ROLE"

const roleWorker = "worker"

// IsWorker reports whether this process was spawned as a worker.
func IsWorker() bool {
	return os.Getenv(RoleEnv) == roleWorker
}

// Supervisor spawns and monitors worker processes. Respawn is bounded:
// a worker that dies quickly waits an exponentially growing delay before
// its slot restarts, and a worker that stayed up past healthyAfter resets
// its slot's backoff.
type Supervisor struct {
	workers      int
	minBackoff   time.Duration
	maxBackoff   time.Duration
	healthyAfter time.Duration
	waitDelay    time.Duration
}

// NewSupervisor creates a supervisor for n worker slots (<= 0 selects one
// per CPU core). drainTimeout bounds how long a signaled worker may keep
// draining before it is forcibly killed.
func NewSupervisor(n int, drainTimeout time.Duration) *Supervisor {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	waitDelay := drainTimeout + time.Second
	if drainTimeout <= 0 {
		waitDelay = 10 * time.Second
	}
	return &Supervisor{
		workers:      n,
		minBackoff:   200 * time.Millisecond,
		maxBackoff:   10 * time.Second,
		healthyAfter: 10 * time.Second,
		waitDelay:    waitDelay,
	}
}

// Run spawns every worker slot and blocks until ctx is canceled and all
// children have exited. Each worker receives the same command-line
// invocation as the primary.
func (s *Supervisor) Run(ctx context.Context) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}

	log.Printf("👑 Primary %d supervising %d workers", os.Getpid(), s.workers)

	var wg sync.WaitGroup
	for slot := 0; slot < s.workers; slot++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			s.superviseSlot(ctx, exe, slot)
		}(slot)
	}
	wg.Wait()

	log.Printf("Primary %d stopped", os.Getpid())
	return nil
}

// superviseSlot keeps one worker slot populated until ctx is canceled.
func (s *Supervisor) superviseSlot(ctx context.Context, exe string, slot int) {
	backoff := s.minBackoff

	for {
		start := time.Now()

		cmd := s.workerCommand(ctx, exe)
		err := cmd.Run()
		if ctx.Err() != nil {
			return
		}

		uptime := time.Since(start)
		backoff = s.nextBackoff(backoff, uptime)

		log.Printf("Worker slot %d exited after %s (%v); respawning in %s",
			slot, uptime.Round(time.Millisecond), err, backoff)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
	}
}

// workerCommand builds the command for one worker process. Cancellation
// forwards SIGTERM so the worker drains its own connections before
// exiting; a worker still alive after waitDelay is killed.
func (s *Supervisor) workerCommand(ctx context.Context, exe string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, exe, os.Args[1:]...)
	cmd.Env = append(os.Environ(), RoleEnv+"="+roleWorker)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = s.waitDelay
	return cmd
}

// nextBackoff doubles the respawn delay for a worker that died quickly and
// resets it once a worker stayed up past the healthy threshold.
func (s *Supervisor) nextBackoff(current, uptime time.Duration) time.Duration {
	if uptime >= s.healthyAfter {
		return s.minBackoff
	}
	next := current * 2
	if next > s.maxBackoff {
		next = s.maxBackoff
	}
	return next
}
