package env

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionHandler(t *testing.T) {
	assert := assert.New(t)
	t.Setenv("ENVIRONMENT", "staging")

	orig := Version
	Version = "v1.2.3"
	defer func() { Version = orig }()

	rec := httptest.NewRecorder()
	VersionHandler(rec, httptest.NewRequest("GET", "/version", nil))
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal("v1.2.3", out["version"])
	assert.Equal("staging", out["environment"])
	assert.False(IsProd())

	t.Setenv("ENVIRONMENT", "production")
	assert.True(IsProd())
}
