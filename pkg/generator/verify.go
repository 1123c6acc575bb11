package generator

import (
	"fmt"

	pgquery "github.com/pganalyze/pg_query_go/v6"

	"github.com/buildledger/rpcrewrite"
	"github.com/buildledger/rpcrewrite/pkg/rewriter"
)

// Verify parses doc with the PostgreSQL parser and checks its shape: BEGIN, one
// CREATE OR REPLACE FUNCTION per rewrite in order, then COMMIT. Function bodies are
// string constants to the SQL grammar and are not checked here.
func Verify(doc string, rewrites []*rewriter.RewriteResult) error {
	tree, err := pgquery.Parse(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", rpcrewrite.ErrInvalidMigration, err)
	}

	stmts := tree.GetStmts()
	if want := len(rewrites) + 2; len(stmts) != want {
		return fmt.Errorf("%w: got %d statements, want %d", rpcrewrite.ErrInvalidMigration, len(stmts), want)
	}

	if !isTransaction(stmts[0].GetStmt(), pgquery.TransactionStmtKind_TRANS_STMT_BEGIN) {
		return fmt.Errorf("%w: first statement is not BEGIN", rpcrewrite.ErrInvalidMigration)
	}
	if !isTransaction(stmts[len(stmts)-1].GetStmt(), pgquery.TransactionStmtKind_TRANS_STMT_COMMIT) {
		return fmt.Errorf("%w: last statement is not COMMIT", rpcrewrite.ErrInvalidMigration)
	}

	for i, r := range rewrites {
		fn := stmts[i+1].GetStmt().GetCreateFunctionStmt()
		name := r.Function.FunctionName
		if fn == nil {
			return fmt.Errorf("%w: statement %d is not CREATE FUNCTION (want %s)", rpcrewrite.ErrInvalidMigration, i+2, name)
		}
		if !fn.GetReplace() {
			return fmt.Errorf("%w: %s is not CREATE OR REPLACE", rpcrewrite.ErrInvalidMigration, name)
		}
		if got := lastName(fn); got != name {
			return fmt.Errorf("%w: statement %d creates %s, want %s", rpcrewrite.ErrInvalidMigration, i+2, got, name)
		}
	}

	return nil
}

func isTransaction(n *pgquery.Node, kind pgquery.TransactionStmtKind) bool {
	tx := n.GetTransactionStmt()
	return tx != nil && tx.GetKind() == kind
}

// lastName returns the unqualified name of a CREATE FUNCTION statement.
func lastName(fn *pgquery.CreateFunctionStmt) string {
	parts := fn.GetFuncname()
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1].GetString_().GetSval()
}
