// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles bootstrap settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

The engine itself is configured programmatically; this package only feeds the
bootstrap binary. Once loaded, configuration is read-only and passed to core
components via constructors. No global variables store config.
*/
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the Strata bootstrap binary.
type Config struct {

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Key-Value Cache (Redis). Empty disables caching.
	RedisURL string `env:"REDIS_URL"`

	// Schema identity
	Database  string `env:"STRATA_DATABASE"  envDefault:"strata"`
	Schema    string `env:"STRATA_SCHEMA"    envDefault:"public"`
	Namespace string `env:"STRATA_NAMESPACE"`

	// Tenancy
	SharedTables      bool  `env:"STRATA_SHARED_TABLES"       envDefault:"false"`
	TenantID          int64 `env:"STRATA_TENANT_ID"           envDefault:"0"`
	TenantPerDocument bool  `env:"STRATA_TENANT_PER_DOCUMENT" envDefault:"false"`

	Debug bool `env:"DEBUG" envDefault:"false"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	return cfg, nil
}
