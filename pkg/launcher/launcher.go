package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/genclm/genctl/pkg/config"

	"gopkg.in/yaml.v3"
)

var DebugLog func(string, ...interface{})

// Launcher hands a validated run off to the external training entry point
// (python -m genc.main). genctl owns nothing past the exec boundary: the
// trainer's exit code is the run's exit code.
type Launcher struct {
	PythonBin string
	Module    string
	Stdout    io.Writer
	Stderr    io.Writer
}

func New(trainer config.Trainer) *Launcher {
	return &Launcher{
		PythonBin: trainer.PythonBin,
		Module:    trainer.Module,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
	}
}

// Args builds the trainer argv from the resolved config. Only flags the
// trainer reads on its command line are passed; everything else travels in the
// config file.
func (l *Launcher) Args(configPath string, cfg *config.TrainingConfig) []string {
	args := []string{
		"-m", l.Module,
		"--config_file", configPath,
		"--mode", cfg.Mode,
		"--nodes", strconv.Itoa(cfg.Nodes),
		"--devices", strconv.Itoa(cfg.Devices),
		"--output_dir", cfg.OutputDir,
	}
	if cfg.RefModelNameOrPath != nil {
		args = append(args, "--ref_model_name_or_path", *cfg.RefModelNameOrPath)
	}
	if cfg.CheckpointPath != nil {
		args = append(args, "--checkpoint_path", *cfg.CheckpointPath)
	}
	return args
}

// CommandLine renders the invocation for dry runs and logs.
func (l *Launcher) CommandLine(configPath string, cfg *config.TrainingConfig) string {
	return l.PythonBin + " " + strings.Join(l.Args(configPath, cfg), " ")
}

// Run executes the trainer and streams its output. The returned error is the
// trainer's failure, if any; use ExitCode to recover the process status.
func (l *Launcher) Run(ctx context.Context, configPath string, cfg *config.TrainingConfig) error {
	cmd := exec.CommandContext(ctx, l.PythonBin, l.Args(configPath, cfg)...)
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr

	if DebugLog != nil {
		DebugLog("launching trainer: %s", l.CommandLine(configPath, cfg))
	}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("trainer exited with error: %w", err)
	}
	return nil
}

// ExitCode maps a Run error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}

// WriteResolvedConfig persists the effective (defaulted, overridden,
// normalized) config into the run's output directory, the same artifact the
// trainer itself writes, so the run stays reproducible from its output dir
// alone. Returns the written path.
func WriteResolvedConfig(cfg *config.TrainingConfig) (string, error) {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal resolved config: %w", err)
	}

	path := filepath.Join(cfg.OutputDir, "config.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write resolved config: %w", err)
	}
	return path, nil
}
