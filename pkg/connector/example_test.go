package connector_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ajitpratap0/concord/pkg/config"
	"github.com/ajitpratap0/concord/pkg/connector/registry"
	"github.com/ajitpratap0/concord/pkg/consistency"

	// Register the connectors used below
	_ "github.com/ajitpratap0/concord/pkg/connector/sinks/local"
	_ "github.com/ajitpratap0/concord/pkg/connector/sources/csv"
)

// Example reads a CSV file through the registry and checks it.
func Example() {
	dir, err := os.MkdirTemp("", "concord-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "subjects.csv")
	data := "subject,sex\ns1,F\ns1,F\ns2,M\ns2,F\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		log.Fatal(err)
	}

	cfg := config.NewConfig("example")
	cfg.Source.Type = "csv"
	cfg.Source.Settings["path"] = path

	ctx := context.Background()
	src, err := registry.CreateSource(cfg.Source.Type, cfg)
	if err != nil {
		log.Fatal(err)
	}
	if err := src.Open(ctx); err != nil {
		log.Fatal(err)
	}
	defer src.Close(ctx)

	t, err := src.Read(ctx)
	if err != nil {
		log.Fatal(err)
	}
	keys, values, err := t.Pair("subject", "sex")
	if err != nil {
		log.Fatal(err)
	}
	bad, err := consistency.FindInconsistentKeys(keys, values)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("%s: %d rows\n", t.Name(), t.NumRows())
	fmt.Println("inconsistent:", bad.Members())
	// Output:
	// subjects: 4 rows
	// inconsistent: [s2]
}

// Example_sink stores a report through the local sink.
func Example_sink() {
	dir, err := os.MkdirTemp("", "concord-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	cfg := config.NewConfig("example")
	cfg.Sink.Type = "local"
	cfg.Sink.Directory = dir

	ctx := context.Background()
	sink, err := registry.CreateSink(cfg.Sink.Type, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer sink.Close(ctx)

	loc, err := sink.Put(ctx, "checks/report.json", strings.NewReader(`{"consistent":true}`), "application/json")
	if err != nil {
		log.Fatal(err)
	}
	rel, _ := filepath.Rel(dir, loc)
	fmt.Println(filepath.ToSlash(rel))
	// Output:
	// checks/report.json
}
