package config

import "fmt"

// normalize applies the documented corrections the genc trainer performs on a
// valid config before training starts. It runs after validation, once, and
// returns a human-readable note per correction.
func (c *TrainingConfig) normalize() []string {
	var notes []string

	if c.UseLora {
		switch {
		case c.GenAdapterName == nil && c.EmbAdapterName != nil:
			name := *c.EmbAdapterName
			c.GenAdapterName = &name
			notes = append(notes, fmt.Sprintf("gen_adapter_name not set, reusing emb_adapter_name %q", name))
		case c.EmbAdapterName == nil && c.GenAdapterName != nil:
			name := *c.GenAdapterName
			c.EmbAdapterName = &name
			notes = append(notes, fmt.Sprintf("emb_adapter_name not set, reusing gen_adapter_name %q", name))
		}
	}

	// cpu offload only works with no_sync once gradients accumulate across
	// mini batches; no_sync without accumulation is a no-op the trainer
	// rejects.
	iters := c.GradAccumIters()
	if c.UseCPUOffload && iters > 1 && !c.NoSync {
		c.NoSync = true
		notes = append(notes, "no_sync enabled: cpu offload with gradient accumulation requires it")
	} else if c.NoSync && iters == 1 {
		c.NoSync = false
		notes = append(notes, "no_sync disabled: no gradient accumulation is configured")
	}

	if c.NumTrainEpochs == nil && c.MaxSteps == nil {
		one := 1.0
		c.NumTrainEpochs = &one
		notes = append(notes, "neither num_train_epochs nor max_steps set, defaulting to 1 epoch")
	}

	return notes
}
