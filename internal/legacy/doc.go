// Package legacy reads vaults written by the earlier JVLT desktop app so
// their entries can be imported into a pwvault file.
//
// Only reading is supported. Entries without an id, or with a duplicate
// one, get a fresh UUID; millisecond timestamps are converted to UTC.
package legacy
