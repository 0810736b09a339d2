package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvPositiveInt(t *testing.T) {
	t.Setenv("TEST_INT", "25")
	assert.Equal(t, 25, GetEnvPositiveInt("TEST_INT", 10))

	t.Setenv("TEST_INT", "-3")
	assert.Equal(t, 10, GetEnvPositiveInt("TEST_INT", 10))

	t.Setenv("TEST_INT", "abc")
	assert.Equal(t, 10, GetEnvPositiveInt("TEST_INT", 10))
}

func TestGetEnvPositiveDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "90s")
	assert.Equal(t, 90*time.Second, GetEnvPositiveDuration("TEST_DURATION", time.Minute))

	t.Setenv("TEST_DURATION", "0s")
	assert.Equal(t, time.Minute, GetEnvPositiveDuration("TEST_DURATION", time.Minute))
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("TEST_BOOL", " true ")
	assert.True(t, GetEnvBool("TEST_BOOL", false))

	t.Setenv("TEST_BOOL", "nope")
	assert.True(t, GetEnvBool("TEST_BOOL", true))
}

func TestOTelServiceName_Default(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "")
	assert.Equal(t, "go-rest-starter", OTelServiceName())
}
