package config

import "fmt"

// Validate checks value ranges. Load calls it automatically.
func (c *Config) Validate() error {
	if c.Pipeline.WorkerCount <= 0 {
		return fmt.Errorf("pipeline.worker_count must be > 0 (got %d)", c.Pipeline.WorkerCount)
	}
	if c.Pipeline.MaxQueueSize <= 0 {
		return fmt.Errorf("pipeline.max_queue_size must be > 0 (got %d)", c.Pipeline.MaxQueueSize)
	}
	if c.Pipeline.JobTTL <= 0 {
		return fmt.Errorf("pipeline.job_ttl must be > 0 (got %s)", c.Pipeline.JobTTL)
	}
	if c.Pipeline.TreeCacheSize <= 0 {
		return fmt.Errorf("pipeline.tree_cache_size must be > 0 (got %d)", c.Pipeline.TreeCacheSize)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be > 0 (got %d)", c.Server.MaxUploadBytes)
	}
	if c.Merge.SkewLengthRatio <= 0 || c.Merge.SkewUnmatchedRatio <= 0 {
		return fmt.Errorf("merge skew ratios must be > 0 (got %v, %v)", c.Merge.SkewLengthRatio, c.Merge.SkewUnmatchedRatio)
	}
	if c.Builder.IndentUnit <= 0 {
		return fmt.Errorf("builder.indent_unit must be > 0 (got %d)", c.Builder.IndentUnit)
	}
	if c.Store.Enabled() && c.Store.APIKey == "" {
		return fmt.Errorf("store.api_key is required when store.url is set")
	}
	return nil
}

// ValidateServer adds the checks only the HTTP service needs.
func (c *Config) ValidateServer() error {
	if c.Server.APIKey == "" {
		return fmt.Errorf("LESSONGEST_API_KEY is required")
	}
	return nil
}
