package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionCmd(t *testing.T) {
	isolate(t)
	var out, errOut bytes.Buffer
	// version needs neither configuration nor a store, so a bad backend is ignored.
	code := run(context.Background(), []string{"--store", "etcd", "version"}, strings.NewReader(""), &out, &errOut)

	assert.Equal(t, 0, code, errOut.String())
	assert.Contains(t, out.String(), "Paydash version: "+version)
	assert.Contains(t, out.String(), "Go version:")
	assert.Contains(t, out.String(), "Platform:")
}
