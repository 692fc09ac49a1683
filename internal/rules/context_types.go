package rules

// ContextType identifies which classifier table an operation type/context
// value should be interpreted against, grounded on
// paio::core::ContextType (spec.md §4.11).
type ContextType int

const (
	ContextPAIOGeneral ContextType = iota
	ContextPOSIX
	ContextPOSIXMeta
	ContextLSMKVSSimple
	ContextLSMKVSDetailed
	ContextKVS
)

// ContextTypeFromString converts a rules-file token into a ContextType,
// returning (type, false) for an unrecognized token.
func ContextTypeFromString(s string) (ContextType, bool) {
	switch s {
	case "PAIO_GENERAL":
		return ContextPAIOGeneral, true
	case "POSIX":
		return ContextPOSIX, true
	case "POSIX_META":
		return ContextPOSIXMeta, true
	case "LSM_KVS_SIMPLE":
		return ContextLSMKVSSimple, true
	case "LSM_KVS_DETAILED":
		return ContextLSMKVSDetailed, true
	case "KVS":
		return ContextKVS, true
	default:
		return 0, false
	}
}

// PAIOGeneral is the generic foreground/background, high/low-priority
// classifier set usable by any interface layer.
const (
	PAIOGeneralNoOp int = iota
	PAIOGeneralForeground
	PAIOGeneralBackground
	PAIOGeneralHighPriority
	PAIOGeneralLowPriority
)

var paioGeneralTable = map[string]int{
	"foreground":    PAIOGeneralForeground,
	"background":    PAIOGeneralBackground,
	"high_priority":  PAIOGeneralHighPriority,
	"low_priority":   PAIOGeneralLowPriority,
	"no_op":          PAIOGeneralNoOp,
}

// posixTable enumerates the POSIX operation classifiers an interception
// layer (e.g. an LD_PRELOAD shim) can tag a Ticket with. Grounded verbatim
// on paio::core::POSIX (90 operations + no_op).
var posixTable = buildPosixTable()

func buildPosixTable() map[string]int {
	ops := []string{
		"read", "write", "pread", "pwrite", "pread64", "pwrite64", "fread", "fwrite",
		"open", "open64", "creat", "creat64", "openat", "close", "fsync", "fdatasync",
		"sync", "syncfs", "truncate", "truncate64", "ftruncate", "ftruncate64",
		"xstat", "xstat64", "lxstat", "lxstat64", "fxstat", "fxstat64", "fxstatat",
		"fxstatat64", "statfs", "statfs64", "fstatfs", "fstatfs64", "link", "linkat",
		"unlink", "unlinkat", "rename", "renameat", "symlink", "symlinkat", "readlink",
		"readlinkat", "fopen", "fopen64", "fdopen", "freopen", "freopen64", "fclose",
		"fflush", "access", "faccessat", "lseek", "lseek64", "fseek", "fseek64", "ftell",
		"fseeko", "fseeko64", "ftello", "ftello64", "mkdir", "mkdirat", "readdir",
		"readdir64", "opendir", "fdopendir", "closedir", "rmdir", "dirfd", "getxattr",
		"lgetxattr", "fgetxattr", "setxattr", "lsetxattr", "fsetxattr", "listxattr",
		"llistxattr", "flistxattr", "removexattr", "lremovexattr", "fremovexattr",
		"chmod", "fchmod", "fchmodat", "chown", "lchown", "fchown", "fchownat",
	}
	table := map[string]int{"no_op": 0}
	for i, op := range ops {
		table[op] = i + 1
	}
	return table
}

// posixMetaTable enumerates POSIX_META's class/priority/context tags.
var posixMetaTable = map[string]int{
	"no_op":        0,
	"foreground":   1,
	"background":   2,
	"high_priority": 3,
	"med_priority": 4,
	"low_priority": 5,
	"data_op":      6,
	"meta_op":      7,
	"dir_op":       8,
	"ext_attr_op":  9,
	"file_mod_op":  10,
}

// lsmKVSSimpleTable enumerates LSM_KVS_SIMPLE's aggregated compaction tags.
var lsmKVSSimpleTable = map[string]int{
	"no_op":                       0,
	"bg_flush":                    1,
	"bg_compaction_high_priority": 2,
	"bg_compaction_low_priority":  3,
	"foreground":                  4,
	"background":                  5,
}

// lsmKVSDetailedTable enumerates LSM_KVS_DETAILED's per-level compaction tags.
var lsmKVSDetailedTable = map[string]int{
	"no_op":                0,
	"bg_flush":             1,
	"bg_compaction":        2,
	"bg_compaction_L0_L0":  3,
	"bg_compaction_L0_L1":  4,
	"bg_compaction_L1_L2":  5,
	"bg_compaction_L2_L3":  6,
	"bg_compaction_LN":     7,
	"foreground":           8,
}

// kvsTable enumerates KVS's operation classifiers.
var kvsTable = map[string]int{
	"no_op":                0,
	"put":                  1,
	"get":                  2,
	"new_iterator":         3,
	"delete":               4,
	"write":                5,
	"get_snapshot":         6,
	"get_property":         7,
	"get_approximate_size": 8,
	"compact_range":        9,
}

// ConvertDifferentiationDefinition converts a string-based classifier
// definition into its numeric value for the given ContextType. Unknown
// tokens map to -1, matching the original's documented unknown-token
// fallback (spec.md §6).
func ConvertDifferentiationDefinition(contextType ContextType, definition string) int64 {
	var table map[string]int
	switch contextType {
	case ContextPAIOGeneral:
		table = paioGeneralTable
	case ContextPOSIX:
		table = posixTable
	case ContextPOSIXMeta:
		table = posixMetaTable
	case ContextLSMKVSSimple:
		table = lsmKVSSimpleTable
	case ContextLSMKVSDetailed:
		table = lsmKVSDetailedTable
	case ContextKVS:
		table = kvsTable
	default:
		return -1
	}
	if v, ok := table[definition]; ok {
		return int64(v)
	}
	return -1
}
