// Package textutil turns free-form labels into tokens that are safe to embed
// in file names.
package textutil
