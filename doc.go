// Package xmatch contains the core components of xmatch, a framework for positional (sky-cone)
// cross-matching of tabular data against remote or local positional data sources.
// This root package defines the types which are employed during the regular use of the framework,
// as well as in its extension with concrete protocol clients, and is an excellent overview of
// xmatch's key concepts: Tables, Queries, Searchers, Coverages, RowMappers and UploadMatchers.
package xmatch
