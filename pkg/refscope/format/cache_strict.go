//go:build refscope_debug

package format

// Debug builds panic on cache protocol violations.
const strictCache = true
