// Package config loads program configuration with Viper.
//
// Values come from a YAML config file, a .env file, prefixed environment
// variables and command-line flags, in increasing order of precedence.
//
// # Usage
//
//	var cfg AppConfig
//	err := config.LoadConfig("streamkit", &cfg,
//	    config.WithConfigFile(path),
//	    config.WithFlags(flags, map[string]string{"pipeline.batch_size": "batch-size"}),
//	)
//
// STREAMKIT_PIPELINE_BATCH_SIZE=50 then overrides pipeline.batch_size from the
// file.
package config
