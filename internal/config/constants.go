package config

// Application constants
const (
	AppName = "survdash"

	// EnvPrefix namespaces every environment variable (SURV_SERVER_PORT, ...)
	EnvPrefix = "SURV"
	// ConfigFileEnv names an explicit YAML config file
	ConfigFileEnv = "SURV_CONFIG"

	// Header rows are 1-based
	DefaultWorkbookHeaderRow = 2
	DefaultCSVHeaderRow      = 1

	DefaultMaxUploadBytes int64 = 32 << 20 // 32MB

	DefaultProgram = "Epidemiology Program, Gilgit-Baltistan"

	LogFileName = "survdash.log"
)
