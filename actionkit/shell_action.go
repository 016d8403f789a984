package actionkit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/pidl-project/pidl/paction"
	"github.com/pidl-project/pidl/pctx"
)

// ShellAction runs a shell command via os/exec, capturing stdout/stderr
// into the pipeline Context. A non-zero exit status is a run() error, so
// it flows through the action's configured error policy exactly like any
// other failure.
type ShellAction struct {
	paction.BaseAction
	TaskName string
	Command  string
	Shell    string
	WorkDir  string
	Env      map[string]string
}

// NewShellAction constructs a ShellAction. taskName is the owning task's
// name, used to key the stdout/stderr context entries.
func NewShellAction(taskName, name, command string) *ShellAction {
	return &ShellAction{
		BaseAction: paction.NewBaseAction("ShellAction", name, "run"),
		TaskName:   taskName,
		Command:    command,
	}
}

// Run executes Command in a shell, recording its output in the pipeline
// Context under "<task>.<action>.stdout" / ".stderr".
func (a *ShellAction) Run(ctx context.Context, pipelineCtx *pctx.Context) error {
	shell, shellArgs, err := a.resolveShell()
	if err != nil {
		return fmt.Errorf("shell action %s: %w", a.Name(), err)
	}

	args := append(shellArgs, a.Command)
	cmd := exec.CommandContext(ctx, shell, args...)
	cmd.Env = a.environ()
	if a.WorkDir != "" {
		cmd.Dir = a.WorkDir
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("shell action %s: stdout pipe: %w", a.Name(), err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("shell action %s: stderr pipe: %w", a.Name(), err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("shell action %s: start: %w", a.Name(), err)
	}

	stdout, _ := io.ReadAll(stdoutPipe)
	stderr, _ := io.ReadAll(stderrPipe)

	waitErr := cmd.Wait()

	pipelineCtx.Set(a.TaskName+"."+a.Name()+".stdout", string(stdout))
	pipelineCtx.Set(a.TaskName+"."+a.Name()+".stderr", string(stderr))

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return fmt.Errorf("shell action %s: exit status %d: %s", a.Name(), exitErr.ExitCode(), string(stderr))
		}
		return fmt.Errorf("shell action %s: %w", a.Name(), waitErr)
	}
	return nil
}

// resolveShell picks the interpreter and its "run this string" flag: the
// action's explicit Shell field first, then $SHELL, then bash, then sh.
// Windows falls back straight to cmd /C, since none of the Unix candidates
// apply there.
func (a *ShellAction) resolveShell() (string, []string, error) {
	if a.Shell != "" {
		return a.Shell, []string{"-c"}, nil
	}

	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C"}, nil
	}

	candidates := []string{"bash", "sh"}
	if fromEnv := strings.TrimSpace(os.Getenv("SHELL")); fromEnv != "" {
		candidates = append([]string{fromEnv}, candidates...)
	}

	for _, candidate := range candidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, []string{"-c"}, nil
		}
	}
	return "", nil, fmt.Errorf("no suitable shell found (tried %s)", strings.Join(candidates, ", "))
}

// environ builds the child process's environment: the action's own Env
// overrides any inherited variable of the same name rather than appending
// a duplicate entry after it, so Command sees exactly one value per key
// regardless of which os/exec picks when a variable is set twice.
func (a *ShellAction) environ() []string {
	merged := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			merged[k] = v
		}
	}
	for k, v := range a.Env {
		merged[k] = v
	}

	out := make([]string, 0, len(merged))
	for k, v := range merged {
		out = append(out, k+"="+v)
	}
	return out
}
