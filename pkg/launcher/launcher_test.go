package launcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/genclm/genctl/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.TrainingConfig {
	cfg, _, err := config.Load([]byte(`
data_dir: dataset/msmarco
model_name_or_path: mistralai/Mistral-7B-v0.1
pretrained_type: mistral
global_batch_size: 32
max_seq_length: 512
learning_rate: 2e-5
`), map[string]string{"mode": "edpo", "nodes": "2", "devices": "4", "output_dir": "out/run1"})
	if err != nil {
		panic(err)
	}
	return cfg
}

func TestArgs(t *testing.T) {
	l := New(config.Trainer{PythonBin: "python3", Module: "genc.main"})
	cfg := testConfig()

	args := l.Args("out/run1/config.yaml", cfg)
	assert.Equal(t, []string{
		"-m", "genc.main",
		"--config_file", "out/run1/config.yaml",
		"--mode", "edpo",
		"--nodes", "2",
		"--devices", "4",
		"--output_dir", "out/run1",
	}, args)
}

func TestArgsOptionalFlags(t *testing.T) {
	l := New(config.Trainer{PythonBin: "python3", Module: "genc.main"})
	cfg := testConfig()
	ref := "mistralai/Mistral-7B-Instruct-v0.1"
	ckpt := "out/run0/model.ckpt"
	cfg.RefModelNameOrPath = &ref
	cfg.CheckpointPath = &ckpt

	args := l.Args("out/run1/config.yaml", cfg)
	assert.Contains(t, args, "--ref_model_name_or_path")
	assert.Contains(t, args, ref)
	assert.Contains(t, args, "--checkpoint_path")
	assert.Contains(t, args, ckpt)
}

func TestCommandLine(t *testing.T) {
	l := New(config.Trainer{PythonBin: "python3", Module: "genc.main"})
	line := l.CommandLine("out/run1/config.yaml", testConfig())
	assert.Contains(t, line, "python3 -m genc.main")
	assert.Contains(t, line, "--mode edpo")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(assert.AnError))
}

func TestWriteResolvedConfig(t *testing.T) {
	cfg := testConfig()
	cfg.OutputDir = filepath.Join(t.TempDir(), "run1")

	path, err := WriteResolvedConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.OutputDir, "config.yaml"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	again, _, err := config.Load(data, nil)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}
