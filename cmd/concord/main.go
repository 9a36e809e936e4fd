// Command concord checks that every key of a table maps to a single value
// and converts tables to Arrow, Parquet or Avro.
package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"

	"github.com/ajitpratap0/concord/internal/pipeline"
	"github.com/ajitpratap0/concord/pkg/logger"

	// Register every source and sink
	_ "github.com/ajitpratap0/concord/pkg/connector/sinks"
	_ "github.com/ajitpratap0/concord/pkg/connector/sources"
)

var version = "dev"

// Exit codes.
const (
	exitOK           = 0
	exitError        = 1
	exitInconsistent = 2
)

func main() {
	// A missing .env file is not an error
	_ = godotenv.Load()
	code := run(os.Args[1:], os.Stdout, os.Stderr)
	_ = logger.Sync()
	os.Exit(code)
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	return exitCode(root.Execute(), stderr)
}

func exitCode(err error, stderr io.Writer) int {
	switch {
	case err == nil:
		return exitOK
	case stderrors.Is(err, pipeline.ErrInconsistent):
		fmt.Fprintln(stderr, "error:", err)
		return exitInconsistent
	default:
		fmt.Fprintln(stderr, "error:", err)
		return exitError
	}
}
