// Package envutil prepares the environment for processes tooldeck spawns.
//
// MCP clients on macOS are typically GUI applications, and anything they
// launch inherits the minimal launchd PATH. The agent CLI is usually
// installed under a Homebrew or user-local prefix that PATH misses, so
// spawned commands get the login-shell PATH merged in first.
package envutil

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"
)

const (
	skipEnv  = "TOOLDECK_NO_PATH_PATCH"
	termEnv  = "TERM"
	shellEnv = "SHELL"
	pathEnv  = "PATH"
)

const probeTimeout = 2 * time.Second

type probeResult struct {
	path string
	err  error
}

var probeCache sync.Map // shell path -> probeResult

// SpawnEnv returns env with the login-shell PATH merged in on macOS. A set
// TERM means the process came from a terminal and already has a usable
// PATH; TOOLDECK_NO_PATH_PATCH disables the probe outright.
func SpawnEnv(env []string) []string {
	if runtime.GOOS != "darwin" {
		return env
	}
	if strings.TrimSpace(lastValue(env, skipEnv)) != "" {
		return env
	}
	if strings.TrimSpace(lastValue(env, termEnv)) != "" {
		return env
	}

	shell := strings.TrimSpace(lastValue(env, shellEnv))
	if shell == "" {
		shell = "/bin/zsh"
	}
	loginPath, err := loginShellPATH(shell)
	if err != nil || strings.TrimSpace(loginPath) == "" {
		return env
	}

	current := lastValue(env, pathEnv)
	merged := mergePaths(loginPath, current)
	if merged == "" || merged == current {
		return env
	}
	return withValue(env, pathEnv, merged)
}

// lastValue returns the value of the last key= entry, matching what the OS
// hands a child process when env holds duplicates.
func lastValue(env []string, key string) string {
	if key == "" {
		return ""
	}
	prefix := key + "="
	var value string
	for _, entry := range env {
		if strings.HasPrefix(entry, prefix) {
			value = strings.TrimPrefix(entry, prefix)
		}
	}
	return value
}

// withValue removes every key= entry and appends key=value.
func withValue(env []string, key, value string) []string {
	if key == "" {
		return env
	}
	prefix := key + "="
	out := make([]string, 0, len(env)+1)
	for _, entry := range env {
		if strings.HasPrefix(entry, prefix) {
			continue
		}
		out = append(out, entry)
	}
	return append(out, prefix+value)
}

func loginShellPATH(shell string) (string, error) {
	if cached, ok := probeCache.Load(shell); ok {
		result := cached.(probeResult)
		return result.path, result.err
	}
	path, err := probeLoginShell(shell)
	probeCache.Store(shell, probeResult{path: path, err: err})
	return path, err
}

func probeLoginShell(shell string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, shell, "-lc", "echo $PATH")
	cmd.Env = append(os.Environ(), "LANG=C", "LC_ALL=C")
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// mergePaths keeps the first occurrence of each entry, login shell first.
func mergePaths(primary, fallback string) string {
	sep := string(os.PathListSeparator)
	seen := map[string]struct{}{}
	out := make([]string, 0, 8)

	add := func(list string) {
		for _, entry := range strings.Split(list, sep) {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			if _, ok := seen[entry]; ok {
				continue
			}
			seen[entry] = struct{}{}
			out = append(out, entry)
		}
	}

	add(primary)
	add(fallback)

	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, sep)
}
