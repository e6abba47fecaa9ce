// Package config provides configuration types, loading, validation and
// file watching for the gateway.
//
// Configuration is YAML. Values may reference environment variables with
// ${VAR} or ${VAR:-default}. A file only needs to carry the sections it
// overrides; everything else keeps the values from DefaultConfig.
//
// The service and route tables are read once at startup. The Watcher
// reports later changes so the process can apply the parts that are safe
// to change at runtime (the log level).
package config
