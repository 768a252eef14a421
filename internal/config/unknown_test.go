package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_UnknownKey_Suggestion(t *testing.T) {
	//nolint:misspell // intentional typo to test unknown key detection
	path := writeTestConfig(t, `orphan_polcy = "delete"`+"\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key")
	assert.Contains(t, err.Error(), `did you mean "orphan_policy"`)
}

func TestLoad_UnknownKey_NoSuggestion(t *testing.T) {
	path := writeTestConfig(t, `completely_unrelated_setting = 1`+"\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"completely_unrelated_setting"`)
	assert.NotContains(t, err.Error(), "did you mean")
}

func TestLoad_UnknownKey_AllReported(t *testing.T) {
	path := writeTestConfig(t, "client_idd = \"a\"\nlog_levle = \"debug\"\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"client_id"`)
	assert.Contains(t, err.Error(), `"log_level"`)
}

func TestClosestMatch(t *testing.T) {
	assert.Equal(t, "base_url", closestMatch("baseurl", knownGlobalKeysList))
	assert.Equal(t, "", closestMatch("zzzzzzzzzz", knownGlobalKeysList))
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein("scopes", "scopes"))
	assert.Equal(t, 1, levenshtein("scope", "scopes"))
	assert.Equal(t, 3, levenshtein("", "abc"))
	assert.Equal(t, 3, levenshtein("kitten", "sitting"))
}
