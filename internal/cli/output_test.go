package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nestrow/internal/mapper"
	"github.com/roach88/nestrow/internal/querysql"
	"github.com/roach88/nestrow/internal/schema"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_RawMessage(t *testing.T) {
	raw := json.RawMessage(`[{"id":1}]`)

	buf := &bytes.Buffer{}
	text := &OutputFormatter{Format: "text", Writer: buf}
	require.NoError(t, text.Success(raw))
	assert.Equal(t, "[{\"id\":1}]\n", buf.String())

	buf.Reset()
	js := &OutputFormatter{Format: "json", Writer: buf}
	require.NoError(t, js.Success(raw))
	assert.JSONEq(t, `{"status":"ok","data":[{"id":1}]}`, buf.String())
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error(&CLIError{Code: ErrCodeSchema, Message: "not mappable"})
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeSchema, resp.Error.Code)
	assert.Equal(t, "not mappable", resp.Error.Message)
	assert.Nil(t, resp.Error.Details)
}

func TestOutputFormatter_TextError(t *testing.T) {
	row := 2
	tests := []struct {
		name    string
		err     *CLIError
		want    string
		wantNot string
	}{
		{
			name:    "no details",
			err:     &CLIError{Code: ErrCodeGeneric, Message: "decode failed"},
			want:    "Error [E001]: decode failed\n",
			wantNot: "at ",
		},
		{
			name: "row and column",
			err:  &CLIError{Code: ErrCodeDiscriminator, Message: "null id", Details: &ErrorDetails{Row: &row, Column: "c__id"}},
			want: "Error [E_DISCRIMINATOR]: null id\n  at row 2, column c__id\n",
		},
		{
			name: "cue position",
			err:  &CLIError{Code: ErrCodeLoadFailed, Message: "Post.id: bad kind", Details: &ErrorDetails{File: "blog.cue", Line: 3, Col: 5}},
			want: "  at blog.cue:3:5\n",
		},
		{
			name: "schema path",
			err:  &CLIError{Code: ErrCodeSchema, Message: "not mappable", Details: &ErrorDetails{Path: "<root>", Kind: "scalar"}},
			want: "  at field <root> (scalar)\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "text", Writer: buf}

			require.NoError(t, formatter.Error(tt.err))
			assert.Contains(t, buf.String(), tt.want)
			if tt.wantNot != "" {
				assert.NotContains(t, buf.String(), tt.wantNot)
			}
		})
	}
}

func TestOutputFormatter_Fail(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	decodeErr := &mapper.DiscriminatorError{Row: 3, Column: "c__id"}
	err := formatter.Fail(ExitFailure, "decode failed", decodeErr)

	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.ErrorIs(t, err, decodeErr)

	var resp struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, ErrCodeDiscriminator, resp.Error.Code)
	assert.Equal(t, map[string]any{"row": float64(3), "column": "c__id"}, resp.Error.Details)
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			errBuf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:    "json",
				Writer:    buf,
				ErrWriter: errBuf,
				Verbose:   tt.verbose,
			}

			formatter.VerboseLog("Processing %s", "blog.cue")

			assert.Empty(t, buf.String(), "verbose logs never go to the output writer")
			if tt.wantLog {
				assert.Contains(t, errBuf.String(), "Processing blog.cue")
			} else {
				assert.Empty(t, errBuf.String())
			}
		})
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad path")))

	wrapped := fmt.Errorf("outer: %w", WrapExitError(ExitCommandError, "bad path", errors.New("inner")))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
	assert.Equal(t, "outer: bad path: inner", wrapped.Error())
}

func TestDescribeError(t *testing.T) {
	zero := 0
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
		wantDetails *ErrorDetails
	}{
		{
			name:        "load",
			err:         &LoadError{Code: ErrCodeNotFound, Message: "missing"},
			wantCode:    ErrCodeNotFound,
			wantMessage: "missing",
		},
		{
			name:        "schema",
			err:         &schema.SchemaError{Path: "<root>", Kind: "scalar", Message: "not mappable"},
			wantCode:    ErrCodeSchema,
			wantDetails: &ErrorDetails{Path: "<root>", Kind: "scalar"},
		},
		{
			name:        "discriminator on the first row",
			err:         &mapper.DiscriminatorError{Row: 0, Column: "p__id"},
			wantCode:    ErrCodeDiscriminator,
			wantDetails: &ErrorDetails{Row: &zero, Column: "p__id"},
		},
		{
			name:        "wrapped unmappable",
			err:         fmt.Errorf("wrapped: %w", &mapper.RootUnmappableError{Row: 0}),
			wantCode:    ErrCodeUnmappable,
			wantDetails: &ErrorDetails{Row: &zero},
		},
		{
			name:     "template",
			err:      &querysql.UnresolvedSlotError{Reason: "slot was left unset"},
			wantCode: ErrCodeTemplate,
		},
		{
			name:        "other",
			err:         errors.New("boom"),
			wantCode:    ErrCodeGeneric,
			wantMessage: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := describeError(tt.err)
			assert.Equal(t, tt.wantCode, got.Code)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, got.Message)
			}
			assert.Equal(t, tt.wantDetails, got.Details)
		})
	}
}

func TestLoadErrorText(t *testing.T) {
	assert.Equal(t, "E005: missing", (&LoadError{Code: ErrCodeNotFound, Message: "missing"}).Error())
}
