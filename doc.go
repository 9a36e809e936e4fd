// Package concord checks that tabular data keeps a one-to-one relationship
// between a key field and its value fields, and stores the data in
// compact columnar form.
//
// A subject table where the same subject id appears with two different
// sexes, or a visit table where one visit code maps to two dates, is the
// kind of defect concord reports. Every key that maps to more than one
// value is listed per value field, together with the values seen.
//
// # Layout
//
//   - pkg/consistency: the core check over parallel key and value slices
//   - pkg/table and pkg/schema: in-memory tables, type inference and
//     integer narrowing
//   - pkg/formats/columnar: Arrow IPC, Parquet and Avro writers and readers
//   - pkg/connector: sources (csv, jsonl, columnar files, PostgreSQL, SQL,
//     MongoDB, BigQuery, Kafka) and sinks (local, S3, GCS)
//   - pkg/report: JSON and YAML reports of a check
//   - internal/pipeline: the check and convert runs
//   - cmd/concord: the command line tool
//
// # Quick Start
//
//	keys := []string{"s1", "s1", "s2", "s2"}
//	sexes := []string{"F", "F", "M", "F"}
//	bad, err := consistency.FindInconsistentKeys(keys, sexes)
//	// bad contains "s2"
//
// From the command line:
//
//	concord check --source csv --path subjects.csv --key subject --value sex,smoker
//	concord convert --source postgresql --set query='select * from visits' --format parquet --output visits.parquet
package concord
