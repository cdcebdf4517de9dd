// Package config provides configuration loading and directory layout for survdash.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//  1. Environment variables (highest priority)
//  2. YAML file (SURV_CONFIG, ./config.yaml or ./configs/config.yaml)
//  3. Default() values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern SURV_<SECTION>_<FIELD>:
//
//	SURV_SERVER_PORT=8080
//	SURV_INGEST_HEADER_ROW=2
//	SURV_STORE_TTL=30m
//	SURV_STORE_SWEEP_SCHEDULE="@every 1m"
//	SURV_REPORT_PROGRAM="Epidemiology Program, Gilgit-Baltistan"
//	SURV_LOGGING_LEVEL=debug
//
// # Path Management
//
// Paths lays out data, export, report, chart and log directories under a
// single base directory (the executable directory unless SURV_PATHS_BASE_DIR
// is set):
//
//	paths, err := cfg.ResolvePaths()
//	exportPath := paths.GetExportPath("disease_surveillance_20240102_150405.csv")
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
