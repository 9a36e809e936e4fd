// Package sinks links every sink into the binary. Importing it registers
// local, s3 and gcs with the connector registry.
package sinks

import (
	"github.com/ajitpratap0/concord/pkg/connector/registry"

	_ "github.com/ajitpratap0/concord/pkg/connector/sinks/gcs"
	_ "github.com/ajitpratap0/concord/pkg/connector/sinks/local"
	_ "github.com/ajitpratap0/concord/pkg/connector/sinks/s3"
)

// Names returns the registered sink names.
func Names() []string {
	return registry.ListSinks()
}
