package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/burl/pkg/config"
)

func TestNewSdfx(t *testing.T) {
	k, err := New(config.KernelConfig{Backend: config.BackendSdfx, MeshCells: 16, Segments: 16}, nil)
	require.NoError(t, err)

	k.Init()
	doc := k.CreateDocument()
	require.NotZero(t, doc)
	id := k.AddSphere(doc, 1)
	require.NotZero(t, id)
	assert.NotEmpty(t, k.GetMeshIndices(doc, id))
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := New(config.KernelConfig{Backend: "brep"}, nil)
	assert.ErrorContains(t, err, "unknown kernel backend")
}
