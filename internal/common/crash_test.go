package common

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCrashFileIncludesServiceContext(t *testing.T) {
	CrashLogDir = t.TempDir()
	SetCrashContext("document_root", "/srv/expenses")
	SetCrashContext("index", "ndf-docs")
	t.Cleanup(func() {
		crashContextMu.Lock()
		crashContext = map[string]string{}
		crashContextMu.Unlock()
	})

	path := WriteCrashFile("boom", GetStackTrace())
	require.NotEmpty(t, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	report := string(data)

	assert.Contains(t, report, strings.ToUpper(ServiceName)+" CRASH REPORT")
	assert.Contains(t, report, "=== SERVICE CONTEXT ===")
	assert.Contains(t, report, "document_root: /srv/expenses")
	assert.Contains(t, report, "index: ndf-docs")
	assert.Contains(t, report, "boom")
}
