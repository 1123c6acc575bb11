package generator

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildledger/rpcrewrite"
	"github.com/buildledger/rpcrewrite/pkg/rewriter"
)

func fixedNow() time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func readSnapshot(t *testing.T) string {
	t.Helper()
	src, err := os.ReadFile(filepath.Join("testdata", "backend.snapshot.sql"))
	require.NoError(t, err)
	return string(src)
}

func outputPaths(dir string) Paths {
	return Paths{
		Migration: filepath.Join(dir, "supabase", "migrations", "rewrite_insert_rpc_defaults.sql"),
		Audit:     filepath.Join(dir, "audits", "supabase", "insert_rpc_rewrite_audit.md"),
		Delta:     filepath.Join(dir, "audits", "supabase", "insert_rpc_rewrite_delta.md"),
	}
}

func TestRun_Snapshot(t *testing.T) {
	src := readSnapshot(t)

	res, err := Run(src, Options{Verify: true, Now: fixedNow})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Total)
	require.Len(t, res.Rewrites, 1)
	require.Len(t, res.Outliers, 1)
	assert.Equal(t, res.Total, len(res.Rewrites)+len(res.Outliers))

	widgets := res.Rewrites[0]
	assert.Equal(t, "insert_widgets", widgets.Function.FunctionName)
	assert.Equal(t, []string{"id", "created_at", "updated_at", "deleted_at"}, widgets.ForbiddenColumns)
	assert.Equal(t, []string{"name", "color"}, widgets.CandidateColumns)
	assert.Equal(t, 23, widgets.SourceLineNumber)

	// Hand-written inserts are reported and never appear in the migration.
	gadgets := res.Outliers[0]
	assert.Equal(t, "insert_gadgets", gadgets.FunctionName)
	assert.Equal(t, 34, gadgets.Line)
	assert.Contains(t, src, gadgets.BodyText)
	assert.NotContains(t, res.Migration, "insert_gadgets")

	assert.True(t, strings.HasPrefix(res.Migration,
		"-- Migration: rewrite insert RPC functions to preserve DB defaults when keys are omitted\n"+
			"-- Generated from backend.snapshot.sql\n"+
			"-- Date: 2024-05-01T12:00:00.000Z\n\nBEGIN;\n\nCREATE OR REPLACE FUNCTION public.insert_widgets(_input jsonb)"))
	assert.True(t, strings.HasSuffix(res.Migration, "END;\n$$;\n\nCOMMIT;\n"))
	assert.Contains(t, res.Migration, "  IF _input_sanitized ? 'name' THEN\n")
	assert.Contains(t, res.Migration, "  IF _input_sanitized ? 'color' THEN\n")
	assert.NotContains(t, res.Migration, "touch_updated_at")

	assert.Contains(t, res.Audit, "- insert_gadgets (table: gadgets, line: 34)\n")
	assert.Contains(t, res.Audit, "### insert_widgets -> public.widgets\n- Line: 23\n")
	assert.Contains(t, res.Audit, "- Defaulted columns omitted when key absent: color\n")
	assert.Contains(t, res.Delta, "- Rewritten (populate-star targets): 1\n- Outliers unchanged: 1\n")
	assert.Contains(t, res.Delta, "## Outliers unchanged\n- insert_gadgets (line 34)\n")
}

func TestRun_Deterministic(t *testing.T) {
	src := readSnapshot(t)
	a, err := Run(src, Options{Now: fixedNow})
	require.NoError(t, err)
	b, err := Run(src, Options{Now: fixedNow})
	require.NoError(t, err)

	assert.Equal(t, a.Migration, b.Migration)
	assert.Equal(t, a.Audit, b.Audit)
	assert.Equal(t, a.Delta, b.Delta)
}

func TestRun_ExtraForbiddenAndSource(t *testing.T) {
	res, err := Run(readSnapshot(t), Options{
		ExtraForbidden: []string{"color"},
		Source:         "prod.sql",
		Description:    "strip color",
		Now:            fixedNow,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"name"}, res.Rewrites[0].CandidateColumns)
	assert.Contains(t, res.Migration, "-- Migration: strip color\n-- Generated from prod.sql\n")
	assert.Contains(t, res.Audit, "color (forbidden)")
	assert.Contains(t, res.Delta, "- Source: prod.sql\n")
}

func TestRun_OutlierNeedsNoTable(t *testing.T) {
	src := strings.Replace(readSnapshot(t), "CREATE TABLE public.gadgets (", "CREATE TABLE public.gizmos (", 1)

	res, err := Run(src, Options{Now: fixedNow})
	require.NoError(t, err)
	assert.Len(t, res.Outliers, 1)
}

func TestRun_MissingTable(t *testing.T) {
	src := strings.Replace(readSnapshot(t), "CREATE TABLE public.widgets (", "CREATE TABLE public.sprockets (", 1)

	_, err := Run(src, Options{Now: fixedNow})
	require.Error(t, err)
	assert.True(t, rpcrewrite.IsMissingTableErr(err))
	assert.Contains(t, err.Error(), "insert_widgets (table widgets, line 23)")
}

func TestRun_SecondRunTreatsRewrittenAsOutliers(t *testing.T) {
	src := readSnapshot(t)
	first, err := Run(src, Options{Now: fixedNow})
	require.NoError(t, err)

	// A dump taken after applying the migration shows the rewritten body under a
	// plain CREATE FUNCTION header.
	applied := strings.Replace(first.Rewrites[0].UpdatedBody, "CREATE OR REPLACE FUNCTION", "CREATE FUNCTION", 1)
	redumped := strings.Replace(src, first.Rewrites[0].Function.BodyText, applied, 1)

	second, err := Run(redumped, Options{Verify: true, Now: fixedNow})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Total)
	assert.Empty(t, second.Rewrites)
	require.Len(t, second.Outliers, 2)
	assert.Equal(t, "insert_widgets", second.Outliers[0].FunctionName)
	assert.Equal(t, applied, second.Outliers[0].BodyText)
	assert.Equal(t, 1, strings.Count(applied, "_input_sanitized jsonb := '{}'::jsonb;"))

	// The migration itself only holds CREATE OR REPLACE headers, so nothing is located.
	third, err := Run(first.Migration, Options{Now: fixedNow})
	require.NoError(t, err)
	assert.Zero(t, third.Total)
}

func TestAnalyze(t *testing.T) {
	a, err := Analyze(readSnapshot(t), Options{})
	require.NoError(t, err)

	assert.Len(t, a.Tables, 2)
	require.Len(t, a.Functions, 2)
	assert.True(t, a.Functions[0].Rewritable)
	assert.NotNil(t, a.Functions[0].Table)
	assert.False(t, a.Functions[1].Rewritable)
}

func TestGenerate_WritesAllOutputs(t *testing.T) {
	dir := t.TempDir()
	paths := outputPaths(dir)

	res, err := Generate(filepath.Join("testdata", "backend.snapshot.sql"), paths, Options{Now: fixedNow})
	require.NoError(t, err)

	for path, want := range map[string]string{
		paths.Migration: res.Migration,
		paths.Audit:     res.Audit,
		paths.Delta:     res.Delta,
	} {
		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}

	leftovers, err := filepath.Glob(filepath.Join(dir, "*", "*", ".*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestGenerate_UnterminatedWritesNothing(t *testing.T) {
	dir := t.TempDir()
	paths := outputPaths(dir)

	snapshot := filepath.Join(dir, "broken.sql")
	src := readSnapshot(t)
	// Drop the closing tag of the last insert function.
	i := strings.LastIndex(src, "  RETURN NEXT _new_row;\nEND;\n$$;")
	require.Positive(t, i)
	broken := src[:i] + "  RETURN NEXT _new_row;\nEND;\n"
	require.NoError(t, os.WriteFile(snapshot, []byte(broken), 0o644))

	_, err := Generate(snapshot, paths, Options{Now: fixedNow})
	require.Error(t, err)
	assert.True(t, rpcrewrite.IsStructuralErr(err))
	assert.Contains(t, err.Error(), "insert_gadgets")

	for _, p := range []string{paths.Migration, paths.Audit, paths.Delta} {
		assert.NoFileExists(t, p)
	}
	assert.NoDirExists(t, filepath.Join(dir, "supabase"))
}

func TestVerify(t *testing.T) {
	rewrites := []*rewriter.RewriteResult{{}}
	rewrites[0].Function.FunctionName = "insert_widgets"

	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name: "valid",
			doc:  "BEGIN;\nCREATE OR REPLACE FUNCTION public.insert_widgets(_input jsonb) RETURNS void LANGUAGE plpgsql AS $$ BEGIN END; $$;\nCOMMIT;\n",
		},
		{
			name:    "syntax error",
			doc:     "BEGIN;\nCREATE OR REPLACE FUNCTION public.insert_widgets(;\nCOMMIT;\n",
			wantErr: "migration is invalid",
		},
		{
			name:    "missing commit",
			doc:     "BEGIN;\nCREATE OR REPLACE FUNCTION public.insert_widgets() RETURNS void LANGUAGE sql AS $$ SELECT 1 $$;\nSELECT 1;\n",
			wantErr: "last statement is not COMMIT",
		},
		{
			name:    "not replace",
			doc:     "BEGIN;\nCREATE FUNCTION public.insert_widgets() RETURNS void LANGUAGE sql AS $$ SELECT 1 $$;\nCOMMIT;\n",
			wantErr: "is not CREATE OR REPLACE",
		},
		{
			name:    "wrong function",
			doc:     "BEGIN;\nCREATE OR REPLACE FUNCTION public.insert_gadgets() RETURNS void LANGUAGE sql AS $$ SELECT 1 $$;\nCOMMIT;\n",
			wantErr: "creates insert_gadgets, want insert_widgets",
		},
		{
			name:    "statement count",
			doc:     "BEGIN;\nCOMMIT;\n",
			wantErr: "got 2 statements, want 3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Verify(tt.doc, rewrites)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, rpcrewrite.IsInvalidMigrationErr(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWriteOutputs_FailedReplaceKeepsMigration(t *testing.T) {
	dir := t.TempDir()
	paths := outputPaths(dir)

	require.NoError(t, os.MkdirAll(filepath.Dir(paths.Migration), 0o755))
	require.NoError(t, os.WriteFile(paths.Migration, []byte("-- previous run\n"), 0o644))

	// A directory at the delta path makes its rename fail after the audit is replaced.
	require.NoError(t, os.MkdirAll(filepath.Join(paths.Delta, "occupied"), 0o755))

	res, err := Run(readSnapshot(t), Options{Now: fixedNow})
	require.NoError(t, err)

	err = WriteOutputs(res, paths)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "replacing "+paths.Delta)

	got, err := os.ReadFile(paths.Migration)
	require.NoError(t, err)
	assert.Equal(t, "-- previous run\n", string(got))

	for _, d := range []string{filepath.Dir(paths.Migration), filepath.Dir(paths.Delta)} {
		leftovers, err := filepath.Glob(filepath.Join(d, ".*.tmp"))
		require.NoError(t, err)
		assert.Empty(t, leftovers, d)
	}
}
