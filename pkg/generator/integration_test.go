//go:build integration

package generator

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildledger/rpcrewrite/internal/testutil"
)

// TestMigration_AppliesToPostgres loads the snapshot into a real database, applies
// the generated migration, and calls the rewritten function.
func TestMigration_AppliesToPostgres(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db := testutil.EmptyDB(t)
	src := readSnapshot(t)

	_, err := db.ExecContext(ctx, src)
	require.NoError(t, err, "load snapshot")

	res, err := Run(src, Options{Verify: true, Now: fixedNow})
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, res.Migration)
	require.NoError(t, err, "apply migration")

	insert := func(t *testing.T, input string) (name string, color sql.NullString, err error) {
		t.Helper()
		err = db.QueryRowContext(ctx,
			`SELECT name, color FROM public.insert_widgets($1::jsonb)`, input,
		).Scan(&name, &color)
		return name, color, err
	}

	t.Run("absent key takes default", func(t *testing.T) {
		name, color, err := insert(t, `{"name": "Widget A"}`)
		require.NoError(t, err)
		assert.Equal(t, "Widget A", name)
		assert.Equal(t, sql.NullString{String: "red", Valid: true}, color)
	})

	t.Run("present key is inserted", func(t *testing.T) {
		_, color, err := insert(t, `{"name": "Widget B", "color": "blue"}`)
		require.NoError(t, err)
		assert.Equal(t, "blue", color.String)
	})

	t.Run("explicit null overrides default", func(t *testing.T) {
		_, color, err := insert(t, `{"name": "Widget C", "color": null}`)
		require.NoError(t, err)
		assert.False(t, color.Valid)
	})

	t.Run("system keys are stripped", func(t *testing.T) {
		var id int64
		var createdAt time.Time
		err := db.QueryRowContext(ctx,
			`SELECT id, created_at FROM public.insert_widgets($1::jsonb)`,
			`{"name": "Widget D", "id": 9999, "created_at": "2000-01-01T00:00:00Z"}`,
		).Scan(&id, &createdAt)
		require.NoError(t, err)
		assert.NotEqual(t, int64(9999), id)
		assert.True(t, createdAt.After(time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)))
	})

	t.Run("missing required column fails in the database", func(t *testing.T) {
		_, _, err := insert(t, `{"color": "green"}`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not-null")
	})

	t.Run("outlier is untouched", func(t *testing.T) {
		var label string
		err := db.QueryRowContext(ctx,
			`SELECT label FROM public.insert_gadgets($1::jsonb)`, `{"label": "g1"}`,
		).Scan(&label)
		require.NoError(t, err)
		assert.Equal(t, "g1", label)
	})
}
