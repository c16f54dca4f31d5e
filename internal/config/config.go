package config

import (
	"fmt"
)

type Config struct {
	ServerAddr     string
	DataFile       string
	DatabaseDSN    string
	AllowedOrigins []string
	IceServers     []string
}

// NewConfig validates and assembles the server configuration. State is
// persisted either to a JSON snapshot file (dataFile) or to Postgres
// (dsn); exactly one backend must be configured.
func NewConfig(serverAddr, dataFile, dsn string, allowedOrigins, iceServers []string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if dataFile == "" && dsn == "" {
		return nil, fmt.Errorf("either a data file or a database DSN is required")
	}
	if dataFile != "" && dsn != "" {
		return nil, fmt.Errorf("data file and database DSN are mutually exclusive")
	}

	return &Config{
		ServerAddr:     serverAddr,
		DataFile:       dataFile,
		DatabaseDSN:    dsn,
		AllowedOrigins: allowedOrigins,
		IceServers:     iceServers,
	}, nil
}
