// Package textutil provides filename sanitization shared by report keys and
// staged files.
package textutil
