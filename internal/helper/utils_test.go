package helper

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUUID(t *testing.T) {
	a, err := GenerateUUID()
	require.NoError(t, err)
	b, err := GenerateUUID()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())
}

func TestCreateFolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "nested")
	require.NoError(t, CreateFolder(path))
	require.NoError(t, CreateFolder(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestPrettyPrint(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrettyPrint(&buf, map[string]string{"collection_name": "documents"}))
	assert.Equal(t, "{\n    \"collection_name\": \"documents\"\n}\n", buf.String())
}

func TestPrettyPrint_Unsupported(t *testing.T) {
	err := PrettyPrint(&bytes.Buffer{}, make(chan int))
	assert.Error(t, err)
}
