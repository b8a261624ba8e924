package cmd

import (
	"flag"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantPos []string
		wantTyp string
	}{
		{"flags first", []string{"--type", "int", "port", "5432"}, []string{"port", "5432"}, "int"},
		{"flags last", []string{"port", "5432", "--type", "int"}, []string{"port", "5432"}, "int"},
		{"stdin dash", []string{"key", "-"}, []string{"key", "-"}, ""},
		{"terminator", []string{"--type=int", "n", "--", "-5"}, []string{"n", "-5"}, "int"},
		{"no args", nil, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("put", flag.ContinueOnError)
			typ := fs.String("type", "", "")

			pos, err := ParseArgs(fs, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPos, pos)
			assert.Equal(t, tt.wantTyp, *typ)
		})
	}
}

func TestParseArgs_UnknownFlag(t *testing.T) {
	fs := flag.NewFlagSet("put", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	_, err := ParseArgs(fs, []string{"name", "--bogus"})
	assert.Error(t, err)
}
