// Package types defines the vocabulary shared by the migration engine and its
// callers, including the state store contract and the error taxonomy.
//
// Implementations live under internal/.
package types
