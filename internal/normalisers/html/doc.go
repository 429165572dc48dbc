// Package html projects HTML bodies into plain text and sanitises
// automation-supplied markup before it is pushed back to a platform.
package html
