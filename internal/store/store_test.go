package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

var testDBCounter int

// newTestStore opens a fresh in-memory sqlite3 database, migrated and ready
// to use. Each call gets its own named database so tests never see each
// other's rows despite sqlite3's shared-cache mode.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	testDBCounter++
	dsn := fmt.Sprintf("file:store_test_%d?mode=memory&cache=shared&_fk=1", testDBCounter)

	s, err := Open("sqlite3", dsn, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Migrate(context.Background()))
	return s
}
