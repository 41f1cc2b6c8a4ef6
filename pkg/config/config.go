package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var DebugLog func(string, ...interface{})

// TrainingConfig is the full hyperparameter surface the genc trainer consumes.
// The yaml document is flat: every field is a top-level key. Pointer fields are
// optional and stay nil when the document omits them.
type TrainingConfig struct {
	// Data
	DataName       string  `yaml:"data_name"`
	DataDir        string  `yaml:"data_dir"`
	TrainFile      *string `yaml:"train_file,omitempty"`
	ValFile        *string `yaml:"val_file,omitempty"`
	NumWorkers     int     `yaml:"num_workers"`
	MaxDataSamples *int    `yaml:"max_data_samples,omitempty"`
	IgnoreIndex    int     `yaml:"ignore_index"`

	// Model
	ModelNameOrPath    string  `yaml:"model_name_or_path"`
	RefModelNameOrPath *string `yaml:"ref_model_name_or_path,omitempty"`
	PretrainedType     string  `yaml:"pretrained_type"`
	UseBidirectional   bool    `yaml:"use_bidirectional"`
	AttnImplementation string  `yaml:"attn_implementation"`
	Normalized         bool    `yaml:"normalized"`
	PoolingMethod      string  `yaml:"pooling_method"`
	LossGenType        string  `yaml:"loss_gen_type"`
	Temperature        float64 `yaml:"temperature"`

	// LoRA
	UseLora        bool     `yaml:"use_lora"`
	LoraR          *int     `yaml:"lora_r,omitempty"`
	LoraAlpha      *int     `yaml:"lora_alpha,omitempty"`
	LoraDropout    *float64 `yaml:"lora_dropout,omitempty"`
	EmbAdapterName *string  `yaml:"emb_adapter_name,omitempty"`
	GenAdapterName *string  `yaml:"gen_adapter_name,omitempty"`

	// Quantization
	Quantization bool `yaml:"quantization"`

	// Run identity
	Mode           string  `yaml:"mode"`
	Seed           int     `yaml:"seed"`
	Precision      string  `yaml:"precision"`
	OutputDir      string  `yaml:"output_dir"`
	CheckpointPath *string `yaml:"checkpoint_path,omitempty"`
	Nodes          int     `yaml:"nodes"`
	Devices        int     `yaml:"devices"`

	// Distributed
	Strategy         string `yaml:"strategy"`
	ShardingStrategy string `yaml:"sharding_strategy"`
	UseCPUOffload    bool   `yaml:"use_cpu_offload"`
	NoSync           bool   `yaml:"no_sync"`
	LowMemory        *bool  `yaml:"low_memory,omitempty"`

	// Batch / schedule
	GlobalBatchSize    int      `yaml:"global_batch_size"`
	MiniBatchSize      *int     `yaml:"mini_batch_size,omitempty"`
	MaxSeqLength       int      `yaml:"max_seq_length"`
	NumTrainEpochs     *float64 `yaml:"num_train_epochs,omitempty"`
	MaxSteps           *int     `yaml:"max_steps,omitempty"`
	NumPositiveSamples int      `yaml:"num_positive_samples"`
	NumNegativeSamples int      `yaml:"num_negative_samples"`

	// Gradient caching
	UseGC           bool `yaml:"use_gc"`
	GCMiniBatchSize *int `yaml:"gc_mini_batch_size,omitempty"`

	// Objective
	PromptLossWeight     float64  `yaml:"prompt_loss_weight"`
	GenLossWeight        *float64 `yaml:"gen_loss_weight,omitempty"`
	KLLossWeight         *float64 `yaml:"kl_loss_weight,omitempty"`
	UseMiner             *bool    `yaml:"use_miner,omitempty"`
	DPOLossType          *string  `yaml:"dpo_loss_type,omitempty"`
	DPOBeta              *float64 `yaml:"dpo_beta,omitempty"`
	LabelSmoothingFactor float64  `yaml:"label_smoothing_factor"`

	// Optimizer
	LearningRate          float64  `yaml:"learning_rate"`
	WeightDecay           float64  `yaml:"weight_decay"`
	AdamBeta1             float64  `yaml:"adam_beta1"`
	AdamBeta2             float64  `yaml:"adam_beta2"`
	ApplyGradientClipping bool     `yaml:"apply_gradient_clipping"`
	GradNormClip          *float64 `yaml:"grad_norm_clip,omitempty"`
	GradientCheckpointing bool     `yaml:"gradient_checkpointing"`

	// Checkpointing / logging
	LoggerName   string `yaml:"logger_name"`
	SaveInterval int    `yaml:"save_interval"`
	LogInterval  int    `yaml:"log_interval"`
}

// Manager loads one training document, applies CLI overrides, coerces and
// validates it. The loader is pure: it never writes anything and the same
// inputs always produce the same config.
type Manager struct {
	configPath string
	overrides  map[string]string
	config     *TrainingConfig
	warnings   []string
}

func NewManager(configPath string, overrides map[string]string) *Manager {
	return &Manager{
		configPath: configPath,
		overrides:  overrides,
	}
}

func (m *Manager) LoadConfig() error {
	if DebugLog != nil {
		DebugLog("loading training config from %s", m.configPath)
	}

	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found at %s", m.configPath)
	}

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, warnings, err := Load(data, m.overrides)
	m.warnings = warnings
	if err != nil {
		return err
	}

	m.config = cfg
	return nil
}

func (m *Manager) GetConfig() *TrainingConfig {
	return m.config
}

func (m *Manager) Warnings() []string {
	return m.warnings
}

// Load runs the full pipeline on a raw yaml document: parse, apply overrides,
// coerce to the typed schema, apply defaults, then validate every cross-field
// rule. All violations are collected before reporting; the returned error is a
// *ValidationError carrying the ordered list.
func Load(data []byte, overrides map[string]string) (*TrainingConfig, []string, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if raw == nil {
		raw = map[string]interface{}{}
	}

	for key, value := range overrides {
		raw[key] = value
	}

	cfg := defaultTrainingConfig()
	warnings, status, errs := decodeInto(cfg, raw)
	errs = append(errs, cfg.validate(status)...)

	if len(errs) > 0 {
		return nil, warnings, &ValidationError{Errors: errs}
	}

	corrections := cfg.normalize()
	if DebugLog != nil {
		for _, c := range corrections {
			DebugLog("config correction: %s", c)
		}
	}

	return cfg, warnings, nil
}

// WorldSize is the total number of trainer processes the run spans.
func (c *TrainingConfig) WorldSize() int {
	return c.Nodes * c.Devices
}

// GradAccumIters reports how many mini-batch iterations accumulate into one
// optimizer step on each device. No mini_batch_size means no accumulation.
func (c *TrainingConfig) GradAccumIters() int {
	if c.MiniBatchSize == nil || *c.MiniBatchSize <= 0 || c.WorldSize() <= 0 {
		return 1
	}
	perDevice := c.GlobalBatchSize / c.WorldSize()
	if perDevice < *c.MiniBatchSize {
		return 1
	}
	return perDevice / *c.MiniBatchSize
}

// StoppingCondition resolves the epochs/steps ambiguity. When both
// num_train_epochs and max_steps are set, training stops at whichever is
// reached first.
func (c *TrainingConfig) StoppingCondition() string {
	switch {
	case c.NumTrainEpochs != nil && c.MaxSteps != nil:
		return fmt.Sprintf("first reached of %g epoch(s) or %d step(s)", *c.NumTrainEpochs, *c.MaxSteps)
	case c.MaxSteps != nil:
		return fmt.Sprintf("%d step(s)", *c.MaxSteps)
	case c.NumTrainEpochs != nil:
		return fmt.Sprintf("%g epoch(s)", *c.NumTrainEpochs)
	}
	return "1 epoch(s)"
}
