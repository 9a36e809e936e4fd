// Package connector groups the sources that load a table and the sinks that
// store run artifacts.
//
//   - core: the Source and Sink interfaces and object key helpers.
//   - base: BaseSource and BaseSink, which carry settings, timeouts,
//     tracing, metrics and logging for every connector.
//   - registry: name based factories. Connectors register themselves in
//     init, so importing sources or sinks makes all of them available.
//   - sources: csv, jsonl, columnar, postgresql, sql, mongodb, bigquery and
//     kafka.
//   - sinks: local, s3 and gcs.
//
// A source is opened, read once and closed:
//
//	src, err := registry.CreateSource(cfg.Source.Type, cfg)
//	if err != nil {
//		return err
//	}
//	if err := src.Open(ctx); err != nil {
//		return err
//	}
//	defer src.Close(ctx)
//	t, err := src.Read(ctx)
//
// Connector settings come from the source.settings map of the run
// configuration. Values of the form ${NAME} are expanded from the
// environment when the configuration file is loaded.
package connector
