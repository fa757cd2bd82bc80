//go:build !refscope_debug

package format

const strictCache = false
