// Package drive implements the Google Drive adapter.
//
// Files are listed page by page, Google Docs are exported as HTML and
// text files are downloaded, so every pulled record carries its content.
// Each file maps to an asset resource. Names and descriptions can be
// written back.
package drive
