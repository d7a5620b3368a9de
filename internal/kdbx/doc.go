// Package kdbx imports entries from KeePass (KDBX 3.1 and 4) databases.
package kdbx
