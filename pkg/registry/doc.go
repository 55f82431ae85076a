// Package registry holds the process-wide provider state for ccproxy.
//
// # Overview
//
// A Registry owns the provider list, the current selection, the shared
// credential override, the named header and request override sets, and the
// per-provider consecutive error counters. Every field is guarded by one
// mutex and every accessor returns copies, so callers never observe a
// provider list that a concurrent reload is replacing.
//
// The selection and the shared override survive restarts through a
// StateStore. FileStore writes a small JSON document atomically; MemoryStore
// keeps state in process for tests and one-shot commands.
//
// # Usage
//
//	store := registry.NewFileStore(cfg.Proxy.StateFile)
//	reg := registry.New(cfg, config.FileLoader(path), store, logger)
//
//	p, ok := reg.Selected()
//	if !ok {
//	    // nothing selected: answer 503
//	}
//
// # Selection Rules
//
// Selected returns nothing while the selection_required flag is set (after
// Reset, until Select is called). Otherwise it returns the named provider if
// it still exists, else the first provider in configuration order.
package registry
