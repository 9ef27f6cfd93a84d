// Package guard renders, installs, and executes the commit/push hooks that
// enforce exclusive reservations. The rendered script is a thin shim: it
// chains any pre-existing hook, then execs `agentmail hook run`, which runs
// Check below in a fresh process reading only the filesystem and environment.
// The same routine therefore backs both the unit tests (as a library call)
// and the end-to-end path (as a spawned hook).
package guard

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/mistakeknot/agentmail/internal/config"
	"github.com/mistakeknot/agentmail/internal/core"
	"github.com/mistakeknot/agentmail/internal/gitx"
	"github.com/mistakeknot/agentmail/internal/glob"
	"github.com/mistakeknot/agentmail/internal/reservation"
)

type HookKind string

const (
	PreCommit HookKind = "pre-commit"
	PrePush   HookKind = "pre-push"
)

// Exit codes shared by both hook kinds.
const (
	ExitOK    = 0
	ExitBlock = 1
)

// Stubbed in tests to pin "now" for expiry checks.
var nowFn = time.Now

// Input is the runtime contract of one hook invocation. Env holds the
// AGENT_MAIL_* variables; Stdin carries the pre-push ref lines.
type Input struct {
	Kind            HookKind
	RepoDir         string
	ReservationsDir string
	Env             map[string]string
	Stdin           io.Reader
	Stderr          io.Writer
}

// Check runs the conflict check and returns the hook's exit code. All errors
// are resolved locally: the process has no caller beyond its exit status and
// stderr text.
func Check(ctx context.Context, in Input) int {
	env := func(key string) (string, bool) {
		v, ok := in.Env[key]
		return v, ok
	}
	stderr := in.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	if v, ok := env(config.EnvRepoCoordination); ok && !config.Truthy(v) {
		return ExitOK
	}
	if v, _ := env(config.EnvBypass); config.Truthy(v) {
		return ExitOK
	}
	agent, _ := env(config.EnvAgent)
	agent = strings.TrimSpace(agent)
	if agent == "" {
		fmt.Fprintf(stderr, "agent-mail: %s is not set; the %s guard cannot tell who is committing.\n", config.EnvAgent, in.Kind)
		fmt.Fprintf(stderr, "agent-mail: export %s=<your agent name>, or set %s=1 to override.\n", config.EnvAgent, config.EnvBypass)
		return ExitBlock
	}

	changed, err := changedPaths(ctx, in)
	if err != nil {
		fmt.Fprintf(stderr, "agent-mail: could not list changed paths: %v\n", err)
		return ExitBlock
	}
	if len(changed) == 0 {
		return ExitOK
	}

	reservations, skipped, err := reservation.ReadDir(in.ReservationsDir)
	if err != nil {
		fmt.Fprintf(stderr, "agent-mail: could not read reservations: %v\n", err)
		return ExitBlock
	}
	for _, p := range skipped {
		fmt.Fprintf(stderr, "agent-mail: skipping unreadable reservation artifact %s\n", p)
	}

	conflicts := Conflicts(agent, changed, reservations)
	if len(conflicts) == 0 {
		return ExitOK
	}

	mode := config.GuardModeBlock
	if v, _ := env(config.EnvGuardMode); config.GuardMode(strings.TrimSpace(v)) == config.GuardModeWarn {
		mode = config.GuardModeWarn
	}

	verb := "blocked"
	if mode == config.GuardModeWarn {
		verb = "warning"
	}
	fmt.Fprintf(stderr, "agent-mail: %s by exclusive reservations held by other agents:\n", verb)
	for _, c := range conflicts {
		fmt.Fprintf(stderr, "  %s matches exclusive pattern %q held by %s", c.Path, c.Pattern, c.HeldBy)
		if c.Reason != "" {
			fmt.Fprintf(stderr, " (%s)", c.Reason)
		}
		fmt.Fprintln(stderr)
	}
	if mode == config.GuardModeWarn {
		return ExitOK
	}
	fmt.Fprintf(stderr, "agent-mail: set %s=1 to override in an emergency.\n", config.EnvBypass)
	return ExitBlock
}

// PathConflict pairs a changed path with the foreign reservation it hits.
type PathConflict struct {
	Path    string
	Pattern string
	HeldBy  string
	Reason  string
}

// Conflicts tests each changed path against every active exclusive
// reservation not owned by agent. Shared, expired, released, and own
// reservations are never conflict sources.
func Conflicts(agent string, changed []string, reservations []core.Reservation) []PathConflict {
	now := nowFn()
	var out []PathConflict
	for _, path := range changed {
		for _, r := range reservations {
			if !r.Exclusive || r.Agent == agent || !r.IsActive(now) {
				continue
			}
			if glob.MatchPath(r.PathPattern, path) {
				out = append(out, PathConflict{Path: path, Pattern: r.PathPattern, HeldBy: r.Agent, Reason: r.Reason})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Pattern < out[j].Pattern
	})
	return out
}

func changedPaths(ctx context.Context, in Input) ([]string, error) {
	git := gitx.New(in.RepoDir)
	switch in.Kind {
	case PreCommit:
		return git.StagedPaths(ctx)
	case PrePush:
		return pushedPaths(ctx, git, in.Stdin)
	default:
		return nil, fmt.Errorf("unknown hook kind %q", in.Kind)
	}
}

// pushedPaths unions the paths touched in every ref range git feeds the
// pre-push hook on stdin: "<local ref> <local sha> <remote ref> <remote sha>"
// per line. A zero remote sha means a new remote ref; the diff then runs
// against the empty tree. Ref deletions (zero local sha) change nothing.
func pushedPaths(ctx context.Context, git gitx.Runner, stdin io.Reader) ([]string, error) {
	if stdin == nil {
		return nil, nil
	}
	seen := make(map[string]struct{})
	var out []string
	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 4 {
			continue
		}
		localSHA, remoteSHA := fields[1], fields[3]
		if strings.Trim(localSHA, "0") == "" {
			continue
		}
		paths, err := git.RangePaths(ctx, remoteSHA, localSHA)
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				out = append(out, p)
			}
		}
	}
	return out, scanner.Err()
}
