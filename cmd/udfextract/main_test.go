package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateProgressCallbackNilSpinner(t *testing.T) {
	// Without a spinner there is nothing to update, so no callback
	// should be registered with the extractor.
	require.Nil(t, CreateProgressCallback(nil))
}
