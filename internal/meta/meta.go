package meta

const (
	CLIName = "portpurge"
	// EnvPrefix is prepended to configuration keys when they are read from the environment,
	// so "client-id" is read from PORT_CLIENT_ID.
	EnvPrefix = "port"
)
