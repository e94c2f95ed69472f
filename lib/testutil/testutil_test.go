package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupServiceSingleConnection(t *testing.T) {
	result, cleanup := SetupService(t, ServiceParams{
		Name:     "lib/testutil",
		DbSchema: "CREATE TABLE items (id INTEGER PRIMARY KEY);",
	})
	t.Cleanup(cleanup)

	require.Equal(t, 1, result.DB.Stats().MaxOpenConnections)

	_, err := result.DB.Exec("INSERT INTO items (id) VALUES (1)")
	require.NoError(t, err)

	var count int
	err = result.DB.QueryRow("SELECT COUNT(*) FROM items").Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
