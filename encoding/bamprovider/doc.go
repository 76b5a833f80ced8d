// Package bamprovider provides indexed region queries over BAM files.
//
// The Provider is an interface for reading the records that overlap a genomic
// region. Each BAMProvider owns one file handle, so callers that read
// several files concurrently should create one provider per file.
package bamprovider
