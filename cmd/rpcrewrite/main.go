// Command rpcrewrite rewrites naive insert_<table>(_input jsonb) functions found in
// a pg_dump schema snapshot so that omitted keys take their column defaults.
//
// Usage:
//
//	rpcrewrite [flags] <command>
//
// The generate command writes a transactional migration plus audit and delta
// reports; inspect shows how each function would be classified without writing
// anything.
package main

func main() {
	Execute()
}
