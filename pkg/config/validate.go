package config

import (
	"fmt"
	"strings"
)

var (
	pretrainedTypes     = []string{"llama", "mistral", "phi"}
	attnImplementations = []string{"flash_attention_2", "sdpa", "eager"}
	poolingMethods      = []string{"mean", "weightedmean", "cls", "lasttoken"}
	lossGenTypes        = []string{"mixed", "token"}
	precisions          = []string{"bf16-true", "bf16-mixed", "16-mixed", "32", "fp32"}
	modes               = []string{"esft", "edpo", "ecpo", "sft"}
	strategies          = []string{"fsdp", "ddp", "auto"}
	shardingStrategies  = []string{"full_shard", "shard_grad_op", "ddp", "hybrid_full_shard", "hybrid_shard_grad_op"}
	loggerNames         = []string{"tensorboard", "wandb"}
	dpoLossTypes        = []string{"sigmoid", "hinge", "ipo", "kto_pair"}
)

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// validate checks every semantic rule and returns the complete list of
// violations. Nothing is fail-fast: a document with five problems reports all
// five in one pass. The status map tells required-field checks whether a key
// was absent, set, or set to an uncoercible value; a coercion failure already
// produced a TypeMismatchError and gets no second report here.
func (c *TrainingConfig) validate(status map[string]fieldStatus) []error {
	var errs []error
	fail := func(field string, value interface{}, reason string) {
		errs = append(errs, &ConfigError{Field: field, Value: value, Reason: reason})
	}

	// Required fields with no default. An explicit zero or empty value is a
	// range violation, not a missing field.
	required := func(field string, check func()) {
		switch st, ok := status[field]; {
		case !ok:
			errs = append(errs, missingRequired(field))
		case st == fieldFailed:
			// already reported as a type mismatch
		default:
			check()
		}
	}
	required("data_dir", func() {
		if c.DataDir == "" {
			fail("data_dir", c.DataDir, "must be non-empty")
		}
	})
	required("model_name_or_path", func() {
		if c.ModelNameOrPath == "" {
			fail("model_name_or_path", c.ModelNameOrPath, "must be non-empty")
		}
	})
	required("global_batch_size", func() {
		if c.GlobalBatchSize <= 0 {
			fail("global_batch_size", c.GlobalBatchSize, "must be positive")
		}
	})
	required("max_seq_length", func() {
		if c.MaxSeqLength <= 0 {
			fail("max_seq_length", c.MaxSeqLength, "must be positive")
		}
	})
	required("learning_rate", func() {
		if c.LearningRate <= 0 {
			fail("learning_rate", c.LearningRate, "must be positive")
		}
	})

	// Enums.
	enum := func(field, value string, set []string) {
		if !contains(set, value) {
			fail(field, value, fmt.Sprintf("must be one of [%s]", strings.Join(set, ", ")))
		}
	}
	enum("pretrained_type", c.PretrainedType, pretrainedTypes)
	enum("attn_implementation", c.AttnImplementation, attnImplementations)
	enum("pooling_method", c.PoolingMethod, poolingMethods)
	enum("loss_gen_type", c.LossGenType, lossGenTypes)
	enum("precision", c.Precision, precisions)
	enum("mode", c.Mode, modes)
	enum("strategy", c.Strategy, strategies)
	enum("sharding_strategy", c.ShardingStrategy, shardingStrategies)
	enum("logger_name", c.LoggerName, loggerNames)
	if c.DPOLossType != nil {
		enum("dpo_loss_type", *c.DPOLossType, dpoLossTypes)
	}

	// Ranges.
	if c.NumWorkers < 0 {
		fail("num_workers", c.NumWorkers, "must be non-negative")
	}
	if c.MaxDataSamples != nil && *c.MaxDataSamples <= 0 {
		fail("max_data_samples", *c.MaxDataSamples, "must be positive")
	}
	if c.Temperature <= 0 {
		fail("temperature", c.Temperature, "must be positive")
	}
	if c.Nodes <= 0 {
		fail("nodes", c.Nodes, "must be positive")
	}
	if c.Devices <= 0 {
		fail("devices", c.Devices, "must be positive")
	}
	if c.MiniBatchSize != nil && *c.MiniBatchSize <= 0 {
		fail("mini_batch_size", *c.MiniBatchSize, "must be positive")
	}
	if c.NumTrainEpochs != nil && *c.NumTrainEpochs <= 0 {
		fail("num_train_epochs", *c.NumTrainEpochs, "must be positive")
	}
	if c.MaxSteps != nil && *c.MaxSteps <= 0 {
		fail("max_steps", *c.MaxSteps, "must be positive")
	}
	if c.NumPositiveSamples <= 0 {
		fail("num_positive_samples", c.NumPositiveSamples, "must be positive")
	}
	if c.NumNegativeSamples <= 0 {
		fail("num_negative_samples", c.NumNegativeSamples, "must be positive")
	}
	if c.PromptLossWeight < 0 {
		fail("prompt_loss_weight", c.PromptLossWeight, "must be non-negative")
	}
	if c.GenLossWeight != nil && *c.GenLossWeight < 0 {
		fail("gen_loss_weight", *c.GenLossWeight, "must be non-negative")
	}
	if c.KLLossWeight != nil && *c.KLLossWeight < 0 {
		fail("kl_loss_weight", *c.KLLossWeight, "must be non-negative")
	}
	if c.DPOBeta != nil && *c.DPOBeta <= 0 {
		fail("dpo_beta", *c.DPOBeta, "must be positive")
	}
	if c.LabelSmoothingFactor < 0 || c.LabelSmoothingFactor >= 1 {
		fail("label_smoothing_factor", c.LabelSmoothingFactor, "must be in [0, 1)")
	}
	if c.WeightDecay < 0 {
		fail("weight_decay", c.WeightDecay, "must be non-negative")
	}
	if c.AdamBeta1 <= 0 || c.AdamBeta1 >= 1 {
		fail("adam_beta1", c.AdamBeta1, "must be in (0, 1)")
	}
	if c.AdamBeta2 <= 0 || c.AdamBeta2 >= 1 {
		fail("adam_beta2", c.AdamBeta2, "must be in (0, 1)")
	}
	if c.SaveInterval <= 0 {
		fail("save_interval", c.SaveInterval, "must be positive")
	}
	if c.LogInterval <= 0 {
		fail("log_interval", c.LogInterval, "must be positive")
	}

	// LoRA: enabling it requires the full adapter setup.
	if c.UseLora {
		if c.LoraR == nil || c.LoraAlpha == nil || c.LoraDropout == nil {
			fail("use_lora", nil, "missing LoRA fields: lora_r, lora_alpha and lora_dropout are required when use_lora is true")
		}
		if c.EmbAdapterName == nil && c.GenAdapterName == nil {
			fail("use_lora", nil, "missing LoRA fields: at least one of emb_adapter_name or gen_adapter_name is required when use_lora is true")
		}
	}
	if c.LoraR != nil && *c.LoraR <= 0 {
		fail("lora_r", *c.LoraR, "must be positive")
	}
	if c.LoraAlpha != nil && *c.LoraAlpha <= 0 {
		fail("lora_alpha", *c.LoraAlpha, "must be positive")
	}
	if c.LoraDropout != nil && (*c.LoraDropout < 0 || *c.LoraDropout >= 1) {
		fail("lora_dropout", *c.LoraDropout, "must be in [0, 1)")
	}

	// Gradient caching.
	if c.UseGC && (c.GCMiniBatchSize == nil || *c.GCMiniBatchSize <= 0) {
		fail("use_gc", nil, "missing gc_mini_batch_size: a positive gc_mini_batch_size is required when use_gc is true")
	}
	if c.GCMiniBatchSize != nil && *c.GCMiniBatchSize <= 0 {
		fail("gc_mini_batch_size", *c.GCMiniBatchSize, "must be positive")
	}
	if c.GCMiniBatchSize != nil && c.MiniBatchSize != nil && *c.GCMiniBatchSize > *c.MiniBatchSize {
		fail("gc_mini_batch_size", *c.GCMiniBatchSize,
			fmt.Sprintf("must not exceed mini_batch_size (%d)", *c.MiniBatchSize))
	}

	// Gradient clipping.
	if c.ApplyGradientClipping && (c.GradNormClip == nil || *c.GradNormClip <= 0) {
		fail("apply_gradient_clipping", nil, "grad_norm_clip must be present and positive when gradient clipping is enabled")
	}
	if c.GradNormClip != nil && *c.GradNormClip <= 0 {
		fail("grad_norm_clip", *c.GradNormClip, "must be positive")
	}

	// Batch divisibility.
	if c.MiniBatchSize != nil && *c.MiniBatchSize > 0 && c.GlobalBatchSize > 0 &&
		c.GlobalBatchSize%*c.MiniBatchSize != 0 {
		fail("mini_batch_size", *c.MiniBatchSize,
			fmt.Sprintf("batch size mismatch: must evenly divide global_batch_size (%d)", c.GlobalBatchSize))
	}

	return errs
}
