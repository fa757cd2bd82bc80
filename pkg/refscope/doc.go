// Package refscope renders any Go value as a browsable tree: scalars,
// slices and maps, structs with their type lineage, members and methods,
// and external handles such as files, sockets and channels.
//
// # Quick Start
//
//	in := refscope.New()
//	var buf bytes.Buffer
//	if err := in.Query(format.NewHTML(&buf), ledger, "ledger"); err != nil {
//		log.Fatal(err)
//	}
//
// # Output
//
// Rendering is driven through the format.Formatter interface. The html
// renderer produces collapsible spans with tooltips, the text renderer an
// indented terminal tree and the events renderer the raw call stream as
// JSON. Repeated subtrees (the same instance, the same type header) are
// rendered once and replayed.
//
// # Cycles and Limits
//
// An instance already being expanded renders as a recursion marker, as does
// a slice or map that contains itself at any depth. Group nesting stops at
// config.Config.MaxDepth with a "..." placeholder.
//
// # Strings
//
// With ShowStringMatches on, strings are checked for secondary readings: a
// file on disk, a registered type or function, a date, an embedded
// serialized or JSON document and a regular expression. Each reading is
// rendered under the string.
//
// # Sinks
//
// Publish renders with the configured format and hands the document to the
// registered sinks: the console, a structured log or the live dashboard.
//
//	in.RegisterSink("console", sink.NewConsole(os.Stdout))
//	in.Publish(ledger, "ledger")
package refscope
