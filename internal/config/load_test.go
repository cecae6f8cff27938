package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_HappyPath(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config_test")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	tempConfigsSubDir := filepath.Join(tempDir, "configs")
	err = os.Mkdir(tempConfigsSubDir, 0755)
	require.NoError(t, err)

	testAppName := "TestReconciler"
	testPort := 9090
	testLogLevel := "debug"
	testKafkaBrokers := "kafka1:9092,kafka2:9092"
	testLowThreshold := "50.00"

	envContent := fmt.Sprintf(
		"APP_NAME=%s\nSERVER_PORT=%d\nLOG_LEVEL=%s\nKAFKA_BROKERS=%s\nSEVERITY_LOW_THRESHOLD=%s\n",
		testAppName, testPort, testLogLevel, testKafkaBrokers, testLowThreshold,
	)
	envFilePath := filepath.Join(tempConfigsSubDir, "test_happy.env")
	err = os.WriteFile(envFilePath, []byte(envContent), 0644)
	require.NoError(t, err)

	originalWD, err := os.Getwd()
	require.NoError(t, err)
	defer func() {
		_ = os.Chdir(originalWD)
	}()

	err = os.Chdir(tempDir)
	require.NoError(t, err)

	cfg, err := LoadConfig("test_happy")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, testAppName, cfg.Application.Name)
	assert.Equal(t, testPort, cfg.Server.Port)
	assert.Equal(t, testLogLevel, cfg.Logging.Level)
	assert.Equal(t, testKafkaBrokers, cfg.Kafka.Brokers)
	assert.Equal(t, testLowThreshold, cfg.Reconciliation.SeverityLowThreshold)

	assert.Equal(t, "development", cfg.Application.Env)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "reconciliation_requests", cfg.Kafka.ReconcileTopic)
	assert.Equal(t, "financial_events", cfg.Kafka.EventsTopic)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoDB.URI)
	assert.Equal(t, "10000.00", cfg.Reconciliation.SeverityMediumThreshold)
	assert.Equal(t, 5*time.Minute, cfg.Reconciliation.DuplicateWindow)
	assert.Equal(t, "BDT", cfg.Currency.Code)
	assert.Equal(t, "৳", cfg.Currency.Symbol)
	assert.Equal(t, 4, cfg.WorkerPool.Size)

	cfgWithName, err := LoadConfigWithName("configs/test_happy")
	require.NoError(t, err)
	require.NotNil(t, cfgWithName)
	assert.Equal(t, testAppName, cfgWithName.Application.Name)

	cfgWithNameAndType, err := LoadConfigWithNameAndType("configs/test_happy", "env")
	require.NoError(t, err)
	require.NotNil(t, cfgWithNameAndType)
	assert.Equal(t, testAppName, cfgWithNameAndType.Application.Name)
}

func TestConfig_Validate_HappyPath(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := fromViper(v)

	err := cfg.validate()
	assert.NoError(t, err, "Default config should be valid")
}

func TestConfig_Validate_SeverityBands(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	t.Run("LowNotBelowMedium", func(t *testing.T) {
		cfg := fromViper(v)
		cfg.Reconciliation.SeverityLowThreshold = "20000.00"

		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SEVERITY_LOW_THRESHOLD must be less than SEVERITY_MEDIUM_THRESHOLD")
	})

	t.Run("MalformedThreshold", func(t *testing.T) {
		cfg := fromViper(v)
		cfg.Reconciliation.SeverityMediumThreshold = "lots"

		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SEVERITY_MEDIUM_THRESHOLD must be a positive amount")
	})

	t.Run("AccumulatesMessages", func(t *testing.T) {
		cfg := fromViper(v)
		cfg.Server.Port = 0
		cfg.Currency.Code = "TAKA"

		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SERVER_PORT must be greater than 0")
		assert.Contains(t, err.Error(), "CURRENCY_CODE must be a 3-letter code")
	})
}

func TestReconciliationConfig_Location(t *testing.T) {
	assert.Equal(t, time.UTC, ReconciliationConfig{}.Location())
	assert.Equal(t, time.UTC, ReconciliationConfig{Timezone: "Not/AZone"}.Location())

	loc := ReconciliationConfig{Timezone: "Asia/Dhaka"}.Location()
	assert.Equal(t, "Asia/Dhaka", loc.String())
}
