package config

import (
	"errors"
	"io/fs"

	"github.com/spf13/viper"
)

// Config holds all configuration values for the application, loaded from environment variables or config files.
// Values are read once at startup and never mutated afterwards.
type Config struct {
	Port string // HTTP server port
	Env  string // Application environment (e.g., development, production)

	Store string // User store backend: postgres or memory

	DBUser            string // Database user
	DBPort            string // Database port
	DBHost            string // Database host
	DBName            string // Database name
	DBPassword        string // Database password
	DBMaxOpenConns    int    // Maximum open connections in the pool
	DBMaxIdleConns    int    // Maximum idle connections in the pool
	DBConnMaxLifetime int    // Connection max lifetime in minutes
	DBConnMaxIdleTime int    // Connection max idle time in minutes

	JWTKeySource         string // Where the signing key comes from: env, gcp or azure
	JWTKey               string // Signing key when JWTKeySource is env
	JWTIssuer            string // iss claim written into and expected from every token
	JWTAudience          string // aud claim written into and expected from every token
	JWTDurationInMinutes int    // Token lifetime in minutes

	GCPProjectID       string // Secret Manager project
	GCPSecretName      string // Secret holding the signing key
	GCPSecretVersion   string // Secret version, "latest" by default
	GCPCredentialsFile string // Optional service account key file

	AzureVaultURL     string // Key Vault URL, e.g. https://my-vault.vault.azure.net/
	AzureSecretName   string // Secret holding the signing key
	AzureTenantID     string // Service principal tenant
	AzureClientID     string // Service principal client id
	AzureClientSecret string // Service principal secret; default credential chain when empty

	BcryptCost         int    // bcrypt work factor for new password hashes
	PhoneDefaultRegion string // Region used to parse phone numbers without a country code

	RateLimitPerMinute int // Allowed account requests per client IP per minute
	RateLimitBurst     int // Burst size for the account rate limiter

	BootstrapAdminUsername string // Optional admin seeded at startup
	BootstrapAdminPassword string
	BootstrapAdminEmail    string
	BootstrapAdminClaims   string // Comma-separated type=value claims stored for the admin
}

// Load reads configuration from the .env file and environment variables, returning a Config struct.
// A missing .env file is not an error; environment variables and defaults still apply.
func Load() (*Config, error) {
	return LoadFrom(".env")
}

// LoadFrom is Load with an explicit config file path.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *fs.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, err
		}
	}

	return &Config{
		Port:                   v.GetString("PORT"),
		Env:                    v.GetString("ENV"),
		Store:                  v.GetString("STORE"),
		DBUser:                 v.GetString("DB_USER"),
		DBPort:                 v.GetString("DB_PORT"),
		DBHost:                 v.GetString("DB_HOST"),
		DBName:                 v.GetString("DB_NAME"),
		DBPassword:             v.GetString("DB_PASSWORD"),
		DBMaxOpenConns:         v.GetInt("DB_MAX_OPEN_CONNS"),
		DBMaxIdleConns:         v.GetInt("DB_MAX_IDLE_CONNS"),
		DBConnMaxLifetime:      v.GetInt("DB_CONN_MAX_LIFETIME"),
		DBConnMaxIdleTime:      v.GetInt("DB_CONN_MAX_IDLE_TIME"),
		JWTKeySource:           v.GetString("JWT_KEY_SOURCE"),
		JWTKey:                 v.GetString("JWT_KEY"),
		JWTIssuer:              v.GetString("JWT_ISSUER"),
		JWTAudience:            v.GetString("JWT_AUDIENCE"),
		JWTDurationInMinutes:   v.GetInt("JWT_DURATION_IN_MINUTES"),
		GCPProjectID:           v.GetString("GCP_PROJECT_ID"),
		GCPSecretName:          v.GetString("GCP_SECRET_NAME"),
		GCPSecretVersion:       v.GetString("GCP_SECRET_VERSION"),
		GCPCredentialsFile:     v.GetString("GCP_CREDENTIALS_FILE"),
		AzureVaultURL:          v.GetString("AZURE_VAULT_URL"),
		AzureSecretName:        v.GetString("AZURE_SECRET_NAME"),
		AzureTenantID:          v.GetString("AZURE_TENANT_ID"),
		AzureClientID:          v.GetString("AZURE_CLIENT_ID"),
		AzureClientSecret:      v.GetString("AZURE_CLIENT_SECRET"),
		BcryptCost:             v.GetInt("BCRYPT_COST"),
		PhoneDefaultRegion:     v.GetString("PHONE_DEFAULT_REGION"),
		RateLimitPerMinute:     v.GetInt("RATE_LIMIT_PER_MINUTE"),
		RateLimitBurst:         v.GetInt("RATE_LIMIT_BURST"),
		BootstrapAdminUsername: v.GetString("BOOTSTRAP_ADMIN_USERNAME"),
		BootstrapAdminPassword: v.GetString("BOOTSTRAP_ADMIN_PASSWORD"),
		BootstrapAdminEmail:    v.GetString("BOOTSTRAP_ADMIN_EMAIL"),
		BootstrapAdminClaims:   v.GetString("BOOTSTRAP_ADMIN_CLAIMS"),
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("STORE", "postgres")

	v.SetDefault("DB_USER", "kavach_user")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "kavach")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", 30) // minutes
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", 5) // minutes

	v.SetDefault("JWT_KEY_SOURCE", "env")
	v.SetDefault("JWT_KEY", "")
	v.SetDefault("JWT_ISSUER", "kavach-auth")
	v.SetDefault("JWT_AUDIENCE", "kavach-clients")
	v.SetDefault("JWT_DURATION_IN_MINUTES", 60)

	v.SetDefault("GCP_PROJECT_ID", "")
	v.SetDefault("GCP_SECRET_NAME", "")
	v.SetDefault("GCP_SECRET_VERSION", "latest")
	v.SetDefault("GCP_CREDENTIALS_FILE", "")

	v.SetDefault("AZURE_VAULT_URL", "")
	v.SetDefault("AZURE_SECRET_NAME", "")
	v.SetDefault("AZURE_TENANT_ID", "")
	v.SetDefault("AZURE_CLIENT_ID", "")
	v.SetDefault("AZURE_CLIENT_SECRET", "")

	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("PHONE_DEFAULT_REGION", "US")

	v.SetDefault("RATE_LIMIT_PER_MINUTE", 30)
	v.SetDefault("RATE_LIMIT_BURST", 10)

	v.SetDefault("BOOTSTRAP_ADMIN_USERNAME", "")
	v.SetDefault("BOOTSTRAP_ADMIN_PASSWORD", "")
	v.SetDefault("BOOTSTRAP_ADMIN_EMAIL", "")
	v.SetDefault("BOOTSTRAP_ADMIN_CLAIMS", "")
}
