package kafka

import (
	"github.com/ajitpratap0/concord/pkg/connector/core"
	"github.com/ajitpratap0/concord/pkg/connector/registry"
)

func init() {
	_ = registry.RegisterSource("kafka", NewKafkaSource)

	_ = registry.RegisterConnectorInfo(&registry.ConnectorInfo{
		Name:        "kafka",
		Type:        core.ConnectorTypeSource,
		Description: "Bounded snapshot of a Kafka topic holding JSON object messages",
		Settings: map[string]string{
			"brokers":          "comma separated broker addresses",
			"topic":            "topic to snapshot",
			"version":          "broker protocol version, e.g. 3.6.0",
			"include_metadata": "add _partition, _offset, _key and _timestamp columns",
			"flatten":          "lift nested objects into dotted columns",
			"idle_timeout":     "quiet period after which a caught-up partition is done",
			"tls":              "connect with TLS",
			"sasl_mechanism":   "PLAIN, SCRAM-SHA-256 or SCRAM-SHA-512",
			"sasl_username":    "SASL user",
			"sasl_password":    "SASL password",
		},
	})
}
