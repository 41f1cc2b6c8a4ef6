package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const validDoc = `
data_name: msmarco
data_dir: dataset/msmarco
model_name_or_path: meta-llama/Llama-2-7b-hf

global_batch_size: 32
max_seq_length: 512
learning_rate: 1e-4
`

func mustLoad(t *testing.T, doc string, overrides map[string]string) *TrainingConfig {
	t.Helper()
	cfg, _, err := Load([]byte(doc), overrides)
	require.NoError(t, err)
	return cfg
}

func loadErr(t *testing.T, doc string, overrides map[string]string) *ValidationError {
	t.Helper()
	_, _, err := Load([]byte(doc), overrides)
	require.Error(t, err)
	verr, ok := err.(*ValidationError)
	require.True(t, ok, "expected *ValidationError, got %T: %v", err, err)
	return verr
}

func messagesContain(msgs []string, substr string) bool {
	for _, m := range msgs {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func TestLoadValidConfig(t *testing.T) {
	cfg := mustLoad(t, validDoc, nil)

	assert.Equal(t, "msmarco", cfg.DataName)
	assert.Equal(t, "dataset/msmarco", cfg.DataDir)
	assert.Equal(t, "meta-llama/Llama-2-7b-hf", cfg.ModelNameOrPath)
	assert.Equal(t, 32, cfg.GlobalBatchSize)
	assert.Equal(t, 512, cfg.MaxSeqLength)
	assert.InDelta(t, 1e-4, cfg.LearningRate, 1e-12)

	// documented defaults
	assert.Equal(t, "esft", cfg.Mode)
	assert.Equal(t, 42, cfg.Seed)
	assert.Equal(t, "bf16-true", cfg.Precision)
	assert.Equal(t, "fsdp", cfg.Strategy)
	assert.Equal(t, "full_shard", cfg.ShardingStrategy)
	assert.Equal(t, 1, cfg.Nodes)
	assert.Equal(t, 1, cfg.Devices)
	assert.Equal(t, "tensorboard", cfg.LoggerName)

	// neither epochs nor steps set: the default stop condition applies
	require.NotNil(t, cfg.NumTrainEpochs)
	assert.Equal(t, 1.0, *cfg.NumTrainEpochs)
	assert.Nil(t, cfg.MaxSteps)
}

func TestMissingRequiredFields(t *testing.T) {
	verr := loadErr(t, "", nil)
	msgs := verr.Messages()

	for _, field := range []string{"data_dir", "model_name_or_path", "global_batch_size", "max_seq_length", "learning_rate"} {
		assert.True(t, messagesContain(msgs, "missing required field: "+field), "missing %s in %v", field, msgs)
	}
}

func TestAllViolationsCollected(t *testing.T) {
	doc := validDoc + `
use_lora: true
use_gc: true
apply_gradient_clipping: true
mini_batch_size: 7
`
	verr := loadErr(t, doc, nil)
	msgs := verr.Messages()

	assert.True(t, messagesContain(msgs, "missing LoRA fields"))
	assert.True(t, messagesContain(msgs, "missing gc_mini_batch_size"))
	assert.True(t, messagesContain(msgs, "grad_norm_clip"))
	assert.True(t, messagesContain(msgs, "batch size mismatch"))
}

func TestLoRARules(t *testing.T) {
	verr := loadErr(t, validDoc+"\nuse_lora: true\nlora_alpha: 32\nlora_dropout: 0.1\nemb_adapter_name: emb\n", nil)
	assert.True(t, messagesContain(verr.Messages(), "missing LoRA fields"))

	cfg := mustLoad(t, validDoc+`
use_lora: true
lora_r: 16
lora_alpha: 32
lora_dropout: 0.1
emb_adapter_name: emb
`, nil)
	require.NotNil(t, cfg.LoraR)
	assert.Equal(t, 16, *cfg.LoraR)
	// normalization mirrors the single adapter name
	require.NotNil(t, cfg.GenAdapterName)
	assert.Equal(t, "emb", *cfg.GenAdapterName)
}

func TestLoRADropoutRange(t *testing.T) {
	verr := loadErr(t, validDoc+`
use_lora: true
lora_r: 16
lora_alpha: 32
lora_dropout: 1.0
gen_adapter_name: gen
`, nil)
	assert.True(t, messagesContain(verr.Messages(), "lora_dropout"))
}

func TestBatchDivisibility(t *testing.T) {
	doc := strings.Replace(validDoc, "global_batch_size: 32", "global_batch_size: 512", 1)

	cfg := mustLoad(t, doc+"\nmini_batch_size: 8\n", nil)
	require.NotNil(t, cfg.MiniBatchSize)
	assert.Equal(t, 8, *cfg.MiniBatchSize)

	verr := loadErr(t, doc+"\nmini_batch_size: 7\n", nil)
	assert.True(t, messagesContain(verr.Messages(), "batch size mismatch"))
}

func TestGradientCaching(t *testing.T) {
	verr := loadErr(t, validDoc+"\nuse_gc: true\n", nil)
	assert.True(t, messagesContain(verr.Messages(), "missing gc_mini_batch_size"))

	cfg := mustLoad(t, validDoc+"\nuse_gc: true\nmini_batch_size: 8\ngc_mini_batch_size: 2\n", nil)
	assert.Equal(t, 2, *cfg.GCMiniBatchSize)

	verr = loadErr(t, validDoc+"\nuse_gc: true\nmini_batch_size: 8\ngc_mini_batch_size: 16\n", nil)
	assert.True(t, messagesContain(verr.Messages(), "must not exceed mini_batch_size"))
}

func TestGradientClipping(t *testing.T) {
	verr := loadErr(t, validDoc+"\napply_gradient_clipping: true\n", nil)
	assert.True(t, messagesContain(verr.Messages(), "grad_norm_clip"))

	cfg := mustLoad(t, validDoc+"\napply_gradient_clipping: true\ngrad_norm_clip: 1.0\n", nil)
	require.NotNil(t, cfg.GradNormClip)
	assert.Equal(t, 1.0, *cfg.GradNormClip)
}

func TestCLIOverridesWin(t *testing.T) {
	cfg := mustLoad(t, validDoc, map[string]string{"mode": "edpo", "nodes": "4", "devices": "8"})
	assert.Equal(t, "edpo", cfg.Mode)
	assert.Equal(t, 4, cfg.Nodes)
	assert.Equal(t, 8, cfg.Devices)

	// file value present, override still wins
	cfg = mustLoad(t, validDoc+"\nmode: sft\n", map[string]string{"mode": "ecpo"})
	assert.Equal(t, "ecpo", cfg.Mode)
}

func TestUnknownKeysWarnNotFail(t *testing.T) {
	cfg, warnings, err := Load([]byte(validDoc+"\nsome_future_knob: 3\n"), nil)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "some_future_knob")
}

func TestTypeMismatch(t *testing.T) {
	doc := strings.Replace(validDoc, "global_batch_size: 32", "global_batch_size: lots", 1)
	verr := loadErr(t, doc, nil)

	found := false
	for _, e := range verr.Errors {
		if tm, ok := e.(*TypeMismatchError); ok {
			assert.Equal(t, "global_batch_size", tm.Field)
			found = true
		}
	}
	assert.True(t, found, "expected a TypeMismatchError in %v", verr.Messages())

	// the field was present, just unreadable: one report, not two
	assert.False(t, messagesContain(verr.Messages(), "missing required field: global_batch_size"),
		"type mismatch double-reported as missing: %v", verr.Messages())
	assert.False(t, messagesContain(verr.Messages(), "global_batch_size: must be positive"),
		"type mismatch double-reported as a range violation: %v", verr.Messages())
}

func TestExplicitZeroRequired(t *testing.T) {
	doc := strings.Replace(validDoc, "global_batch_size: 32", "global_batch_size: 0", 1)
	doc = strings.Replace(doc, "learning_rate: 1e-4", "learning_rate: 0", 1)
	verr := loadErr(t, doc, nil)
	msgs := verr.Messages()

	assert.True(t, messagesContain(msgs, "global_batch_size") && messagesContain(msgs, "must be positive"))
	assert.True(t, messagesContain(msgs, "learning_rate"))
	assert.False(t, messagesContain(msgs, "missing required field: global_batch_size"),
		"explicit zero reported as missing: %v", msgs)
	assert.False(t, messagesContain(msgs, "missing required field: learning_rate"),
		"explicit zero reported as missing: %v", msgs)
}

func TestExplicitEmptyRequired(t *testing.T) {
	doc := strings.Replace(validDoc, "data_dir: dataset/msmarco", `data_dir: ""`, 1)
	verr := loadErr(t, doc, nil)
	msgs := verr.Messages()

	assert.True(t, messagesContain(msgs, "data_dir") && messagesContain(msgs, "must be non-empty"))
	assert.False(t, messagesContain(msgs, "missing required field: data_dir"), "empty value reported as missing: %v", msgs)
}

func TestMismatchedOptionalStaysUnset(t *testing.T) {
	verr := loadErr(t, validDoc+"\nmini_batch_size: tiny\n", nil)
	msgs := verr.Messages()

	assert.True(t, messagesContain(msgs, "mini_batch_size"))
	assert.False(t, messagesContain(msgs, "must be positive"),
		"failed coercion left a zero behind: %v", msgs)
}

func TestBoolLiteralForms(t *testing.T) {
	cfg := mustLoad(t, validDoc+`
use_gc: "True"
gc_mini_batch_size: 2
quantization: "false"
use_bidirectional: true
`, nil)
	assert.True(t, cfg.UseGC)
	assert.False(t, cfg.Quantization)
	assert.True(t, cfg.UseBidirectional)
}

func TestNumericStringCoercion(t *testing.T) {
	cfg := mustLoad(t, validDoc+`
seed: "1234"
temperature: "0.02"
max_steps: "1000"
`, nil)
	assert.Equal(t, 1234, cfg.Seed)
	assert.InDelta(t, 0.02, cfg.Temperature, 1e-12)
	require.NotNil(t, cfg.MaxSteps)
	assert.Equal(t, 1000, *cfg.MaxSteps)
}

func TestBareNumericPrecision(t *testing.T) {
	cfg := mustLoad(t, validDoc+"\nprecision: 32\n", nil)
	assert.Equal(t, "32", cfg.Precision)
}

func TestEnumRejected(t *testing.T) {
	verr := loadErr(t, validDoc+"\nprecision: fp99\n", nil)
	assert.True(t, messagesContain(verr.Messages(), "precision"))

	verr = loadErr(t, validDoc+"\ndpo_loss_type: square\n", nil)
	assert.True(t, messagesContain(verr.Messages(), "dpo_loss_type"))
}

func TestIdempotence(t *testing.T) {
	doc := validDoc + "\nuse_lora: true\nlora_r: 16\nlora_alpha: 32\nlora_dropout: 0.05\ngen_adapter_name: gen\n"
	a := mustLoad(t, doc, nil)
	b := mustLoad(t, doc, nil)
	assert.Equal(t, a, b)
}

func TestRoundTrip(t *testing.T) {
	cfg := mustLoad(t, validDoc+"\nmini_batch_size: 8\nnum_train_epochs: 2\n", nil)

	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)

	again := mustLoad(t, string(data), nil)
	assert.Equal(t, cfg, again)
}

func TestStoppingCondition(t *testing.T) {
	cfg := mustLoad(t, validDoc+"\nnum_train_epochs: 2\nmax_steps: 5000\n", nil)
	assert.Contains(t, cfg.StoppingCondition(), "first reached")

	cfg = mustLoad(t, validDoc+"\nmax_steps: 5000\n", nil)
	assert.Equal(t, "5000 step(s)", cfg.StoppingCondition())
}

func TestNoSyncCorrections(t *testing.T) {
	// cpu offload + accumulation forces no_sync on
	cfg := mustLoad(t, validDoc+"\nmini_batch_size: 4\nuse_cpu_offload: true\n", nil)
	assert.Equal(t, 8, cfg.GradAccumIters())
	assert.True(t, cfg.NoSync)

	// no accumulation configured: no_sync is dropped
	cfg = mustLoad(t, validDoc+"\nno_sync: true\n", nil)
	assert.Equal(t, 1, cfg.GradAccumIters())
	assert.False(t, cfg.NoSync)
}

func TestWorldSize(t *testing.T) {
	cfg := mustLoad(t, validDoc, map[string]string{"nodes": "2", "devices": "8"})
	assert.Equal(t, 16, cfg.WorldSize())
}
