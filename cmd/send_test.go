package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVars(t *testing.T) {
	vars, err := parseVars([]string{"sender_name=Jordan", "your_email=j@x.com", "note=a=b"})
	require.NoError(t, err)

	assert.Equal(t, "Jordan", vars["sender_name"])
	assert.Equal(t, "a=b", vars["note"])
}

func TestParseVarsInvalid(t *testing.T) {
	_, err := parseVars([]string{"no-separator"})
	require.Error(t, err)

	_, err = parseVars([]string{"=value"})
	require.Error(t, err)
}

func TestWriteResultsUnsupportedFormat(t *testing.T) {
	err := writeResults("out.pdf", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}
