package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	HTTPAddr string

	// StorageDir is the root directory for generated certificate artifacts.
	// Rendered intermediates land in StorageDir/working, converted PDFs in
	// StorageDir/certificates, uploaded templates in StorageDir/templates.
	StorageDir string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	// ConverterBin is the LibreOffice binary used by the conversion daemon.
	ConverterBin  string
	ConverterPort int

	// BarangayName and CityProvince appear on composed artifacts such as
	// claim slips.
	BarangayName string
	CityProvince string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "lingkod"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),

		HTTPAddr:   getenv("HTTP_ADDR", ":8080"),
		StorageDir: getenv("STORAGE_DIR", "./storage"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "lingkod"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),

		ConverterBin:  getenv("CONVERTER_BIN", "soffice"),
		ConverterPort: getenvInt("CONVERTER_PORT", 2002),

		BarangayName: getenv("BARANGAY_NAME", "Barangay San Isidro"),
		CityProvince: getenv("CITY_PROVINCE", "City of Santa Rosa, Laguna"),
	}

	return cfg
}

func (c Config) WorkingDir() string {
	return c.StorageDir + "/working"
}

func (c Config) CertificateDir() string {
	return c.StorageDir + "/certificates"
}

func (c Config) TemplateDir() string {
	return c.StorageDir + "/templates"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
