package engine

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/planhaus/planhaus/internal/config"
	"go.uber.org/zap"
)

// Runner prepares per-offer scratch directories and spawns the Python
// engine. The job description travels in the environment rather than argv
// to avoid size and escaping limits.
type Runner struct {
	cfg config.ComputeConfig
	log *zap.Logger
}

func NewRunner(cfg config.Config, log *zap.Logger) *Runner {
	return &Runner{cfg: cfg.Compute, log: log.Named("compute.runner")}
}

// PrepareJob writes the plan bytes and the serialized job description into
// the offer's scratch directory and returns the local plan path.
func (r *Runner) PrepareJob(jobID string, planExt string, planBytes, jobJSON []byte) (string, error) {
	jobDir := filepath.Join(r.cfg.JobsDir, jobID)
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return "", fmt.Errorf("create job dir: %w", err)
	}

	jsonPath := filepath.Join(jobDir, "frontend_data.json")
	if err := os.WriteFile(jsonPath, jobJSON, 0o644); err != nil {
		return "", fmt.Errorf("write job description: %w", err)
	}

	planPath := filepath.Join(jobDir, "input_plan."+planExt)
	if err := os.WriteFile(planPath, planBytes, 0o644); err != nil {
		return "", fmt.Errorf("write plan input: %w", err)
	}

	abs, err := filepath.Abs(planPath)
	if err != nil {
		return planPath, nil
	}
	return abs, nil
}

// Launch spawns the engine orchestrator for one job and returns the live
// process without waiting for it.
func (r *Runner) Launch(jobID, planPath string, jobJSON []byte) (*Process, error) {
	root, err := filepath.Abs(r.cfg.EngineRoot)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("engine root not found at %s", root)
	}

	bin := r.pythonBin(root)
	cmd := exec.Command(bin, "-m", "runner.orchestrator", planPath, "--job-id", jobID)
	cmd.Dir = root
	cmd.Env = append(os.Environ(),
		"PYTHONUNBUFFERED=1",
		"PYTHONPATH="+root,
		"FRONTEND_DATA_JSON="+string(jobJSON),
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn engine: %w", err)
	}

	r.log.Info("engine spawned",
		zap.String("job_id", jobID),
		zap.String("python", bin),
		zap.Int("pid", cmd.Process.Pid))
	return &Process{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

// pythonBin prefers a project virtualenv interpreter over the configured
// system one.
func (r *Runner) pythonBin(root string) string {
	candidates := []string{
		filepath.Join(root, "runner", "venv", "bin", "python"),
		filepath.Join(root, "runner", ".venv", "bin", "python"),
		filepath.Join(root, "venv", "bin", "python"),
		filepath.Join(root, ".venv", "bin", "python"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return r.cfg.PythonBin
}

// Process is a live engine invocation.
type Process struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr io.ReadCloser
}

func (p *Process) Stdout() io.Reader { return p.stdout }
func (p *Process) Stderr() io.Reader { return p.stderr }

// Wait blocks until the process exits and returns its exit code. Returns
// -1 when the exit status is unknowable.
func (p *Process) Wait() int {
	err := p.cmd.Wait()
	if err == nil {
		return 0
	}
	if exit, ok := err.(*exec.ExitError); ok {
		return exit.ExitCode()
	}
	return -1
}

// Kill force-terminates the process. Safe to call after exit.
func (p *Process) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	err := p.cmd.Process.Kill()
	if err == os.ErrProcessDone {
		return nil
	}
	return err
}
