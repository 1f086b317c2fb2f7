// Package config loads the syncfs YAML configuration file.
//
// A file only needs the keys it changes; everything else keeps the value
// from Default. Command-line flags are applied on top by the CLI, after
// which Validate reports every problem at once.
//
// Example:
//
//	base_dir: /var/lib/syncfs
//	root_name: automerge-repo-data
//	worker: true
//	read_concurrency: 8
//	fanout_threshold: 5000
//	log:
//	  level: info
//	  format: json
package config
