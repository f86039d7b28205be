package telemetry

import (
	"testing"

	"github.com/herdtrack/herdtrack-go/internal/conf"
	"github.com/herdtrack/herdtrack-go/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_DisabledIsNoOp(t *testing.T) {
	settings := &conf.Settings{}
	require.NoError(t, Init(settings))
	assert.Nil(t, errors.GetTelemetryReporter())
}

func TestInit_EnabledWithoutDSNFails(t *testing.T) {
	settings := &conf.Settings{}
	settings.Sentry.Enabled = true

	err := Init(settings)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}
