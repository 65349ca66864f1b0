package config

const (
	// EnvPrefix namespaces every environment variable consumed by envconfig.
	EnvPrefix = "SUBVAULT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)
