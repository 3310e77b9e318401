package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress(t *testing.T) {
	var out bytes.Buffer
	p := NewProgress(&out, 100, "checking")

	p.Update("migrating", 30)
	assert.Equal(t, 30, p.Value())

	p.Update("loading", 80)
	assert.Equal(t, 80, p.Value())

	p.Finish()
	assert.Equal(t, 100, p.Value())
}

func TestProgress_Step(t *testing.T) {
	var out bytes.Buffer
	p := NewProgress(&out, 3, "importing")

	p.Step("accounts")
	p.Step("transactions")
	assert.Equal(t, 2, p.Value())
}

func TestProgress_NilWriter(t *testing.T) {
	p := NewProgress(nil, 1, "noop")
	assert.NotNil(t, p.writer)
}
