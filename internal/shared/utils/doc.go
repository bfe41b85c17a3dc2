// Package utils holds request validation shared by the HTTP handlers: body
// size limits, JSON nesting depth and data store key rules.
package utils
