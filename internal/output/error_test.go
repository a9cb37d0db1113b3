package output_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shroudhq/shroud-keyring/internal/output"
	"github.com/shroudhq/shroud-keyring/pkg/keyerr"
)

// failingWriter implements io.Writer but always returns an error.
type failingWriter struct{}

func (failingWriter) Write(_ []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func TestFormatError_NilError(t *testing.T) {
	t.Parallel()

	for _, format := range []output.Format{output.FormatJSON, output.FormatText} {
		var buf bytes.Buffer
		err := output.FormatError(&buf, nil, format)
		require.NoError(t, err)
		assert.Empty(t, buf.String())
	}
}

func TestFormatError_GenericError_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := output.FormatError(&buf, errors.New("something went wrong"), output.FormatJSON)
	require.NoError(t, err)

	var result output.ErrorOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))

	assert.Equal(t, "GENERAL_ERROR", result.Error.Code)
	assert.Equal(t, "something went wrong", result.Error.Message)
	assert.Equal(t, keyerr.ExitGeneral, result.Error.ExitCode)
	assert.Empty(t, result.Error.Details)
	assert.Empty(t, result.Error.Suggestion)
}

func TestFormatError_GenericError_Text(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := output.FormatError(&buf, errors.New("something went wrong"), output.FormatText)
	require.NoError(t, err)

	result := buf.String()
	assert.Contains(t, result, "Error: something went wrong")
	assert.NotContains(t, result, "Details:")
	assert.NotContains(t, result, "Suggestion:")
}

func TestFormatError_KeyringError_AllFields_JSON(t *testing.T) {
	t.Parallel()

	err := keyerr.WithDetails(keyerr.ErrUnknownAccount, map[string]string{
		"id": "abc-123",
	})
	err = keyerr.WithSuggestion(err, "Run 'shroud account list' to see known ids")

	var buf bytes.Buffer
	require.NoError(t, output.FormatError(&buf, err, output.FormatJSON))

	var result output.ErrorOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))

	assert.Equal(t, "UNKNOWN_ACCOUNT", result.Error.Code)
	assert.Contains(t, result.Error.Message, "account not found")
	assert.Equal(t, keyerr.ExitNotFound, result.Error.ExitCode)
	assert.Equal(t, "abc-123", result.Error.Details["id"])
	assert.Equal(t, "Run 'shroud account list' to see known ids", result.Error.Suggestion)
}

func TestFormatError_KeyringError_AllFields_Text(t *testing.T) {
	t.Parallel()

	err := keyerr.WithDetails(keyerr.ErrBadPassword, map[string]string{"account": "parent-1"})
	err = keyerr.WithSuggestion(err, "Check your password and try again")

	var buf bytes.Buffer
	require.NoError(t, output.FormatError(&buf, err, output.FormatText))

	result := buf.String()
	assert.Contains(t, result, "Error: incorrect password")
	assert.Contains(t, result, "Details:")
	assert.Contains(t, result, "account: parent-1")
	assert.Contains(t, result, "Suggestion: Check your password and try again")
}

func TestFormatError_EmptyDetails_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, output.FormatError(&buf, keyerr.ErrUnknownChain, output.FormatJSON))

	var result output.ErrorOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Nil(t, result.Error.Details)
	assert.NotContains(t, buf.String(), `"details"`)
}

func TestFormatError_DetailsSorted_Text(t *testing.T) {
	t.Parallel()

	details := map[string]string{
		"3_third": "c", "1_first": "a", "4_fourth": "d", "2_second": "b",
	}
	err := keyerr.WithDetails(keyerr.ErrUnknownChain, details)

	var buf bytes.Buffer
	require.NoError(t, output.FormatError(&buf, err, output.FormatText))
	result := buf.String()

	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	positions := make(map[string]int, len(keys))
	for _, k := range keys {
		positions[k] = strings.Index(result, k)
		assert.NotEqual(t, -1, positions[k])
	}
	for i := 1; i < len(keys); i++ {
		assert.Less(t, positions[keys[i-1]], positions[keys[i]])
	}
}

func TestFormatError_EmptySuggestion(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, output.FormatError(&buf, keyerr.ErrUnknownChain, output.FormatJSON))
	assert.NotContains(t, buf.String(), `"suggestion"`)
}

func TestFormatError_WriterError(t *testing.T) {
	t.Parallel()

	fw := failingWriter{}
	writeErr := output.FormatError(&fw, keyerr.ErrUnknownChain, output.FormatJSON)
	require.Error(t, writeErr)
	assert.Contains(t, writeErr.Error(), "write failed")
}

func TestFormatError_JSONIndentation(t *testing.T) {
	t.Parallel()

	err := keyerr.WithDetails(keyerr.ErrUnknownChain, map[string]string{"chain": "does-not-exist"})

	var buf bytes.Buffer
	require.NoError(t, output.FormatError(&buf, err, output.FormatJSON))
	jsonStr := buf.String()

	assert.Contains(t, jsonStr, "{\n  \"error\":")
	assert.Contains(t, jsonStr, "    \"code\":")
}

func TestFormatSuccess_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, output.FormatSuccess(&buf, "Operation completed successfully", output.FormatJSON))

	var result map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, "success", result["status"])
	assert.Equal(t, "Operation completed successfully", result["message"])
}

func TestFormatSuccess_TextFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, output.FormatSuccess(&buf, "Operation completed", output.FormatText))
	result := buf.String()
	assert.Contains(t, result, "Operation completed")
	assert.True(t, strings.HasSuffix(result, "\n"))
}

func TestFormatSuccess_WriterError(t *testing.T) {
	t.Parallel()

	fw := failingWriter{}
	assert.Error(t, output.FormatSuccess(&fw, "test", output.FormatText))
}
