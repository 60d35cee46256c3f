// Package config loads the settings of an entsys deployment and opens the
// storages, caches and TID generator they describe.
//
// Settings come from entsys.yaml (or an explicit file), ENTSYS_* environment
// variables and built-in defaults, in viper's precedence order. A loaded
// Config is checked against an embedded CUE schema before the cross-field
// rules in Validate run.
//
// Example entsys.yaml:
//
//	data_dir: /var/lib/entsys
//	storage:
//	  backend: sqlite
//	partitions:
//	  - type: Book
//	    storage: {backend: badger, path: /var/lib/entsys/books}
//	    cache_ttl: 24h
//	cache:
//	  backend: sqlite
//	  prefix: prod
//	logging:
//	  level: info
//	  format: json
package config
