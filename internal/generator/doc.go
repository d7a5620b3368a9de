// Package generator creates random passwords from selectable character
// classes using crypto/rand, and scores existing secrets by class variety.
package generator
