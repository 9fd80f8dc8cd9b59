package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/go-mail-setup/internal/application/records"
	"github.com/go-mail-setup/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func buildSet(t *testing.T) domain.ProviderRecordSet {
	t.Helper()
	set, err := records.NewBuilder("us-east-1", "").Build("example.com", domain.ProviderMicrosoft)
	require.NoError(t, err)
	return set
}

func TestWriteRecords_YAML(t *testing.T) {
	set := buildSet(t)
	var buf bytes.Buffer
	require.NoError(t, writeRecords(&buf, "yaml", set))

	var got struct {
		Domain  string `yaml:"domain"`
		Records []struct {
			Name   string   `yaml:"name"`
			Type   string   `yaml:"type"`
			Values []string `yaml:"values"`
		} `yaml:"records"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "example.com", got.Domain)
	assert.Len(t, got.Records, len(set.Records))
	assert.NotContains(t, buf.String(), "family")
}

func TestWriteRecords_JSON(t *testing.T) {
	set := buildSet(t)
	var buf bytes.Buffer
	require.NoError(t, writeRecords(&buf, "JSON", set))

	var got domain.ProviderRecordSet
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, set.Provider, got.Provider)
	assert.Len(t, got.Records, len(set.Records))
}

func TestWriteRecords_UnknownFormat(t *testing.T) {
	err := writeRecords(&bytes.Buffer{}, "toml", buildSet(t))
	assert.ErrorContains(t, err, "unknown format")
}
