package config_test

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ajitpratap0/concord/pkg/config"
)

// ExampleNewConfig demonstrates the defaults of a new run configuration.
func ExampleNewConfig() {
	cfg := config.NewConfig("subjects")

	fmt.Printf("Missing policy: %s\n", cfg.Check.MissingPolicy)
	fmt.Printf("Sink: %q\n", cfg.Sink.Type)
	fmt.Printf("Request Timeout: %s\n", cfg.Timeouts.Request)

	// Output:
	// Missing policy: skip
	// Sink: ""
	// Request Timeout: 30s
}

// ExampleConfig_Validate shows how to validate a configuration
// before using it.
func ExampleConfig_Validate() {
	cfg := config.NewConfig("subjects")
	cfg.Source.Type = "csv"
	cfg.Source.Settings["path"] = "subjects.csv"
	cfg.Check.KeyField = "subject"
	cfg.Check.ValueFields = []string{"sex", "smoker"}
	cfg.Output.Format = "parquet"
	cfg.Output.Path = "subjects.parquet"

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	fmt.Println("Configuration is valid!")

	// Output:
	// Configuration is valid!
}

// ExampleLoadConfig loads a YAML file with environment variable substitution.
func ExampleLoadConfig() {
	dir, _ := os.MkdirTemp("", "concord-config")
	defer os.RemoveAll(dir)

	os.Setenv("SUBJECTS_PATH", "/data/subjects.csv")
	defer os.Unsetenv("SUBJECTS_PATH")

	path := filepath.Join(dir, "run.yaml")
	_ = os.WriteFile(path, []byte(`
name: subjects
source:
  type: csv
  settings:
    path: ${SUBJECTS_PATH}
check:
  key_field: subject
  value_fields: [sex]
  missing_policy: ${POLICY:-value}
`), 0600)

	cfg, err := config.LoadConfig(path)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(cfg.Source.Settings.String("path", ""))
	fmt.Println(cfg.Check.MissingPolicy)
	fmt.Println(cfg.Source.Delimiter)

	// Output:
	// /data/subjects.csv
	// value
	// ,
}
