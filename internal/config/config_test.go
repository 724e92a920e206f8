package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 180*time.Second, cfg.Commerce.ReturnWindow)
	assert.Equal(t, 10*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, 300*time.Second, cfg.Cache.ProductTTL)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:8080"}, cfg.Server.AllowedOrigins)
}

func TestLoad_ReturnWindowOverride(t *testing.T) {
	viper.Reset()
	t.Setenv("RETURN_WINDOW", "72h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 72*time.Hour, cfg.Commerce.ReturnWindow)
}

func TestLoad_InvalidDuration(t *testing.T) {
	viper.Reset()
	t.Setenv("AUTH_TOKEN_TTL", "ten minutes")

	_, err := Load()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_TOKEN_TTL")
}

func TestLoad_NonPositiveReturnWindow(t *testing.T) {
	viper.Reset()
	t.Setenv("RETURN_WINDOW", "0s")

	_, err := Load()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "RETURN_WINDOW")
}

func TestGetDSN(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{
		Host: "db", Port: "5432", User: "u", Password: "p", Name: "shop", SSLMode: "disable",
	}}

	assert.Equal(t, "host=db port=5432 user=u password=p dbname=shop sslmode=disable", cfg.GetDSN())
}
