// Package hcl provides the concrete HCL implementation of the config.Loader
// interface. It discovers .hcl files, decodes them against the structs in
// internal/schema and translates the result into a config.Model.
//
// Files are processed in lexical path order, so task declaration order is
// stable across runs regardless of how the paths were passed.
package hcl
