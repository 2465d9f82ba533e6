package rule

// builtinArity lists the oracle-backed and string builtins the expression
// evaluator recognizes, keyed to their required argument count. The parser
// consults this table at load time to reject unknown names and arity
// mismatches before any rule is admitted to the registry (spec §4.2).
var builtinArity = map[string]int{
	"IS_REGISTER":          1,
	"IS_INDIR":             1,
	"IS_LABEL":             1,
	"IS_NUMERIC":           1,
	"IS_INT":               1,
	"IS_FLAG_UNUSED_BEFORE": 2,
	"IS_REQUIRED":          1,
	"OP_NARGS":             1,
	"OP_FLAGS_UNUSED_AT":   1,
	"LOWER":                1,
	"UPPER":                1,
	"CONCAT":               2,
}

// KnownBuiltin reports whether name is a recognized builtin and, if so, its
// required arity.
func KnownBuiltin(name string) (arity int, ok bool) {
	arity, ok = builtinArity[name]
	return
}
