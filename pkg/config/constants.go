package config

// EnvPrefix namespaces every environment variable consumed by the service.
const EnvPrefix = "THOMAGGIO"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvDBDSN  = "THOMAGGIO_DB_DSN"
	EnvDBHost = "THOMAGGIO_DB_HOST"
	EnvDBUser = "THOMAGGIO_DB_USER"
	EnvDBName = "THOMAGGIO_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
