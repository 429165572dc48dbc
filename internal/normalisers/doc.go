// Package normalisers holds the body-text projections shared by source
// adapters. Adapters call them while mapping; they perform no I/O.
package normalisers
