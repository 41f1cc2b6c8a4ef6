package config

// defaultTrainingConfig carries the documented default for every optional
// field. Required fields (data_dir, model_name_or_path, global_batch_size,
// max_seq_length, learning_rate) deliberately stay zero so validation can
// report them when the document omits them.
func defaultTrainingConfig() *TrainingConfig {
	return &TrainingConfig{
		DataName:    "genclm",
		NumWorkers:  4,
		IgnoreIndex: -100,

		PretrainedType:     "llama",
		AttnImplementation: "sdpa",
		Normalized:         true,
		PoolingMethod:      "mean",
		LossGenType:        "mixed",
		Temperature:        0.05,

		Mode:      "esft",
		Seed:      42,
		Precision: "bf16-true",
		OutputDir: "output",
		Nodes:     1,
		Devices:   1,

		Strategy:         "fsdp",
		ShardingStrategy: "full_shard",

		NumPositiveSamples: 1,
		NumNegativeSamples: 1,

		AdamBeta1: 0.9,
		AdamBeta2: 0.999,

		LoggerName:   "tensorboard",
		SaveInterval: 1000,
		LogInterval:  10,
	}
}
