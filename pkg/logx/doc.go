// Package logx configures linotify's structured logging.
//
// logx.Logger is a small wrapper on top of zerolog: console output stays
// readable (short timestamp and caller) while file output is JSON. A Service
// owns the writers and can swap them at runtime via Apply.
package logx
