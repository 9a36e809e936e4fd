// Package config provides configuration management for concord runs.
//
// # Key Features
//
// - Config: one structure describing a check or convert run
// - Structured sections: Source, Check, Output, Sink, Report, Observability, Timeouts, Reliability
// - Settings: typed accessors over connector-specific options
// - Environment variable substitution with ${VAR_NAME} and ${VAR_NAME:-default}
// - Defaults through NewConfig and validation through Validate
//
// # Usage
//
//	cfg, err := config.LoadConfig("run.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// A minimal file:
//
//	name: subjects
//	source:
//	  type: csv
//	  settings:
//	    path: ${DATA_DIR}/subjects.csv
//	check:
//	  key_field: subject
//	  value_fields: [sex, smoker]
//	  missing_policy: skip
//	output:
//	  format: parquet
//	  path: subjects.parquet
//
// The CLI overlays flags and CONCORD_* environment variables on top of the
// file.
package config
