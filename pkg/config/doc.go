// Package config loads typed configuration from environment variables.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11:
// .env files are merged into the process environment first (explicit process
// variables win), then env.Parse fills the struct from its field tags.
// Every call parses afresh; there is no process-wide cache, so components can
// be configured independently and tests can set variables with t.Setenv.
//
// # Usage
//
//	var cfg queue.Config
//	if err := config.Load(&cfg, config.WithEnvFiles("taskd.env")); err != nil {
//		log.Fatal(err)
//	}
//
// Load options:
//
//   - WithPrefix scopes lookups, e.g. WithPrefix("TASKD_") reads TASKD_QUEUE_MAX_SIZE.
//   - WithEnvFiles loads specific .env files; missing files are an error.
//   - WithoutDefaultEnvFile skips the optional .env in the working directory.
//   - WithRequiredIfNoDefault makes every field without envDefault mandatory.
//
// # Error Handling
//
// Errors can be compared with errors.Is against ErrParsingConfig,
// ErrLoadingEnvFile and ErrNilPointer.
package config
