package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type dummyBuilder struct{}

func (dummyBuilder) Build(in BuildInput) (BuildOutput, error) { return BuildOutput{}, nil }

func TestRegisterAndLookup(t *testing.T) {
	const typ = "test_dummy_builder"
	if _, ok := Lookup(typ); ok {
		t.Skip("builder already registered by earlier test run")
	}
	RegisterBuilder(typ, dummyBuilder{})
	_, ok := Lookup(typ)
	assert.True(t, ok)
	assert.Contains(t, Types(), typ)
}

func TestRegisterDuplicatePanics(t *testing.T) {
	const typ = "test_duplicate_builder"
	if _, ok := Lookup(typ); !ok {
		RegisterBuilder(typ, dummyBuilder{})
	}
	assert.Panics(t, func() { RegisterBuilder(typ, dummyBuilder{}) })
}
